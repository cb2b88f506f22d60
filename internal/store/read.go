package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/fairseed/internal/ir"
)

// ReadDistribution returns the registration of a distribution.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadDistribution(ctx context.Context, id string) (ir.DistributionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, config, config_hash, created_at
		FROM distributions
		WHERE id = ?
	`, id)

	var (
		rec        ir.DistributionRecord
		configJSON string
	)
	if err := row.Scan(&rec.ID, &configJSON, &rec.ConfigHash, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.DistributionRecord{}, fmt.Errorf("read distribution %s: %w", id, ErrNotFound)
		}
		return ir.DistributionRecord{}, fmt.Errorf("read distribution: %w", err)
	}

	config, err := unmarshalObject(configJSON)
	if err != nil {
		return ir.DistributionRecord{}, fmt.Errorf("read distribution %s: %w", id, err)
	}
	rec.Config = config

	return rec, nil
}

// ReadEvents returns all events of a distribution.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the distribution has no events.
func (s *Store) ReadEvents(ctx context.Context, distributionID string) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, distribution_id, seq, type, at, payload
		FROM events
		WHERE distribution_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, distributionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []ir.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []ir.Event{}
	}

	return events, nil
}

// scanEvent scans a single event from rows.
func scanEvent(rows *sql.Rows) (ir.Event, error) {
	var (
		e           ir.Event
		eventType   string
		payloadJSON string
	)
	if err := rows.Scan(&e.ID, &e.DistributionID, &e.Seq, &eventType, &e.At, &payloadJSON); err != nil {
		return ir.Event{}, fmt.Errorf("scan event: %w", err)
	}
	e.Type = ir.EventType(eventType)

	payload, err := unmarshalObject(payloadJSON)
	if err != nil {
		return ir.Event{}, fmt.Errorf("scan event %s: %w", e.ID, err)
	}
	e.Payload = payload

	return e, nil
}
