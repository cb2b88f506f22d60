package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/fairseed/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a distribution registration with a small config.
func createTestRecord(id string) ir.DistributionRecord {
	return ir.DistributionRecord{
		ID: id,
		Config: ir.IRObject{
			"max_supply":   ir.IRInt(10),
			"start_policy": ir.IRString("first_mint"),
		},
		ConfigHash: "config-hash-" + id,
		CreatedAt:  1700000000,
	}
}

// createTestEvent creates an event with a valid content-addressed ID.
func createTestEvent(distributionID string, seq int64, typ ir.EventType, payload ir.IRObject) ir.Event {
	e := ir.Event{
		DistributionID: distributionID,
		Seq:            seq,
		Type:           typ,
		At:             1700000000 + seq,
		Payload:        payload,
	}
	e.ID = ir.MustEventID(e)
	return e
}
