package store

import (
	"context"
	"fmt"

	"github.com/roach88/fairseed/internal/ir"
)

// WriteDistribution registers a distribution and its configuration.
// Registering an existing ID fails with ErrDistributionExists.
func (s *Store) WriteDistribution(ctx context.Context, rec ir.DistributionRecord) error {
	configJSON, err := marshalObject(rec.Config)
	if err != nil {
		return fmt.Errorf("write distribution: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO distributions
		(id, config, config_hash, created_at, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		configJSON,
		rec.ConfigHash,
		rec.CreatedAt,
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("write distribution %s: %w", rec.ID, ErrDistributionExists)
		}
		return fmt.Errorf("write distribution: %w", err)
	}

	return nil
}

// DeleteDistribution removes a distribution that has no events yet. It is
// used to undo a registration whose opening event could not be written.
func (s *Store) DeleteDistribution(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM distributions
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM events WHERE distribution_id = ?)
	`, id, id)
	if err != nil {
		return fmt.Errorf("delete distribution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete distribution: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete distribution %s: %w", id, ErrNotFound)
	}
	return nil
}

// AppendEvents writes the events of one transition atomically.
//
// Implements engine.Journal. Either every event is written or none is. If a
// seq is already taken the whole batch fails with ErrSeqConflict.
func (s *Store) AppendEvents(ctx context.Context, events []ir.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, e := range events {
		payloadJSON, err := marshalObject(e.Payload)
		if err != nil {
			return fmt.Errorf("append events: seq %d: %w", e.Seq, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO events
			(id, distribution_id, seq, type, at, payload)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			e.ID,
			e.DistributionID,
			e.Seq,
			string(e.Type),
			e.At,
			payloadJSON,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("append events: %s seq %d: %w", e.DistributionID, e.Seq, ErrSeqConflict)
			}
			return fmt.Errorf("append events: seq %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append events: commit: %w", err)
	}

	return nil
}
