package store

import (
	"context"
	"fmt"

	"github.com/roach88/fairseed/internal/ir"
)

// Journal is everything needed to restore one distribution.
type Journal struct {
	Record ir.DistributionRecord
	Events []ir.Event
}

// LoadJournal reads a distribution's registration and its events.
// Returns ErrNotFound if the distribution does not exist.
func (s *Store) LoadJournal(ctx context.Context, id string) (Journal, error) {
	rec, err := s.ReadDistribution(ctx, id)
	if err != nil {
		return Journal{}, err
	}

	events, err := s.ReadEvents(ctx, id)
	if err != nil {
		return Journal{}, fmt.Errorf("load journal %s: %w", id, err)
	}

	return Journal{Record: rec, Events: events}, nil
}

// DistributionSummary describes a stored distribution without loading its
// events.
type DistributionSummary struct {
	ID         string
	ConfigHash string
	CreatedAt  int64
	EventCount int64
	LastSeq    int64
	LastType   ir.EventType
	LastAt     int64
}

// ListDistributions returns a summary of every stored distribution, ordered
// by ID. UUIDv7 IDs make this creation order.
func (s *Store) ListDistributions(ctx context.Context) ([]DistributionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.config_hash, d.created_at,
		       COUNT(e.id),
		       COALESCE(MAX(e.seq), 0),
		       COALESCE((SELECT type FROM events WHERE distribution_id = d.id ORDER BY seq DESC LIMIT 1), ''),
		       COALESCE((SELECT at FROM events WHERE distribution_id = d.id ORDER BY seq DESC LIMIT 1), 0)
		FROM distributions d
		LEFT JOIN events e ON e.distribution_id = d.id
		GROUP BY d.id
		ORDER BY d.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list distributions: %w", err)
	}
	defer rows.Close()

	summaries := []DistributionSummary{}
	for rows.Next() {
		var (
			sum      DistributionSummary
			lastType string
		)
		if err := rows.Scan(&sum.ID, &sum.ConfigHash, &sum.CreatedAt,
			&sum.EventCount, &sum.LastSeq, &lastType, &sum.LastAt); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		sum.LastType = ir.EventType(lastType)
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distributions: %w", err)
	}

	return summaries, nil
}

// GetLastSeq returns the highest seq written for a distribution, or 0 if it
// has no events.
func (s *Store) GetLastSeq(ctx context.Context, distributionID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM events WHERE distribution_id = ?
	`, distributionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}
