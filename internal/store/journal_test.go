package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/fairseed/internal/ir"
)

func TestWriteDistribution_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestRecord("dist-a")

	if err := s.WriteDistribution(ctx, rec); err != nil {
		t.Fatalf("WriteDistribution() failed: %v", err)
	}

	got, err := s.ReadDistribution(ctx, "dist-a")
	if err != nil {
		t.Fatalf("ReadDistribution() failed: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("ReadDistribution() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDistribution_Duplicate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.WriteDistribution(ctx, createTestRecord("dist-a")); err != nil {
		t.Fatalf("WriteDistribution() failed: %v", err)
	}

	err := s.WriteDistribution(ctx, createTestRecord("dist-a"))
	if !errors.Is(err, ErrDistributionExists) {
		t.Errorf("second WriteDistribution() = %v, want ErrDistributionExists", err)
	}
}

func TestReadDistribution_NotFound(t *testing.T) {
	s := createTestStore(t)

	if _, err := s.ReadDistribution(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadDistribution() = %v, want ErrNotFound", err)
	}
	if _, err := s.LoadJournal(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadJournal() = %v, want ErrNotFound", err)
	}
}

func TestAppendEvents_PreservesPayloadsAndOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.WriteDistribution(ctx, createTestRecord("dist-a")); err != nil {
		t.Fatalf("WriteDistribution() failed: %v", err)
	}

	events := []ir.Event{
		createTestEvent("dist-a", 1, ir.EventDistributionOpened, ir.IRObject{"config_hash": ir.IRString("abc")}),
		createTestEvent("dist-a", 2, ir.EventMintRecorded, ir.IRObject{
			"count":        ir.IRInt(math.MaxInt64),
			"minted_count": ir.IRInt(math.MaxInt64),
		}),
	}
	for i := range events {
		if err := s.AppendEvents(ctx, events[i:i+1]); err != nil {
			t.Fatalf("AppendEvents(seq %d) failed: %v", events[i].Seq, err)
		}
	}

	got, err := s.ReadEvents(ctx, "dist-a")
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("ReadEvents() mismatch (-want +got):\n%s", diff)
	}

	// Stored payloads still hash to the stored IDs
	for _, e := range got {
		if err := ir.VerifyEventID(e); err != nil {
			t.Errorf("event %d: %v", e.Seq, err)
		}
	}
}

func TestAppendEvents_NilPayloadStoredAsEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.WriteDistribution(ctx, createTestRecord("dist-a")); err != nil {
		t.Fatalf("WriteDistribution() failed: %v", err)
	}

	e := createTestEvent("dist-a", 1, ir.EventDistributionOpened, nil)
	if err := s.AppendEvents(ctx, []ir.Event{e}); err != nil {
		t.Fatalf("AppendEvents() failed: %v", err)
	}

	got, err := s.ReadEvents(ctx, "dist-a")
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Payload == nil || len(got[0].Payload) != 0 {
		t.Errorf("payload = %#v, want empty object", got[0].Payload)
	}
	if err := ir.VerifyEventID(got[0]); err != nil {
		t.Error(err)
	}
}

func TestAppendEvents_SeqConflictIsAtomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.WriteDistribution(ctx, createTestRecord("dist-a")); err != nil {
		t.Fatalf("WriteDistribution() failed: %v", err)
	}
	if err := s.AppendEvents(ctx, []ir.Event{
		createTestEvent("dist-a", 1, ir.EventDistributionOpened, ir.IRObject{}),
		createTestEvent("dist-a", 2, ir.EventMintRecorded, ir.IRObject{"count": ir.IRInt(1)}),
	}); err != nil {
		t.Fatalf("AppendEvents() failed: %v", err)
	}

	// A competing writer that read seq 1 tries to write 2 and 3
	err := s.AppendEvents(ctx, []ir.Event{
		createTestEvent("dist-a", 3, ir.EventMintRecorded, ir.IRObject{"count": ir.IRInt(9)}),
		createTestEvent("dist-a", 2, ir.EventMintRecorded, ir.IRObject{"count": ir.IRInt(2)}),
	})
	if !errors.Is(err, ErrSeqConflict) {
		t.Fatalf("conflicting AppendEvents() = %v, want ErrSeqConflict", err)
	}

	last, err := s.GetLastSeq(ctx, "dist-a")
	if err != nil {
		t.Fatalf("GetLastSeq() failed: %v", err)
	}
	if last != 2 {
		t.Errorf("last seq = %d, want 2", last)
	}
}

func TestAppendEvents_Empty(t *testing.T) {
	s := createTestStore(t)
	if err := s.AppendEvents(context.Background(), nil); err != nil {
		t.Errorf("AppendEvents(nil) = %v, want nil", err)
	}
}

func TestReadEvents_Empty(t *testing.T) {
	s := createTestStore(t)

	events, err := s.ReadEvents(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("ReadEvents() = %#v, want empty non-nil slice", events)
	}
}

func TestDeleteDistribution(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"empty", "used"} {
		if err := s.WriteDistribution(ctx, createTestRecord(id)); err != nil {
			t.Fatalf("WriteDistribution(%s) failed: %v", id, err)
		}
	}
	if err := s.AppendEvents(ctx, []ir.Event{
		createTestEvent("used", 1, ir.EventDistributionOpened, ir.IRObject{}),
	}); err != nil {
		t.Fatalf("AppendEvents() failed: %v", err)
	}

	if err := s.DeleteDistribution(ctx, "empty"); err != nil {
		t.Fatalf("DeleteDistribution(empty) failed: %v", err)
	}
	if _, err := s.ReadDistribution(ctx, "empty"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadDistribution(empty) = %v, want ErrNotFound", err)
	}

	// Distributions with events are never deleted
	if err := s.DeleteDistribution(ctx, "used"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDistribution(used) = %v, want ErrNotFound", err)
	}
}

func TestListDistributions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"dist-b", "dist-a"} {
		if err := s.WriteDistribution(ctx, createTestRecord(id)); err != nil {
			t.Fatalf("WriteDistribution(%s) failed: %v", id, err)
		}
	}
	if err := s.AppendEvents(ctx, []ir.Event{
		createTestEvent("dist-b", 1, ir.EventDistributionOpened, ir.IRObject{}),
		createTestEvent("dist-b", 2, ir.EventMintRecorded, ir.IRObject{"count": ir.IRInt(1)}),
	}); err != nil {
		t.Fatalf("AppendEvents() failed: %v", err)
	}

	got, err := s.ListDistributions(ctx)
	if err != nil {
		t.Fatalf("ListDistributions() failed: %v", err)
	}

	want := []DistributionSummary{
		{
			ID:         "dist-a",
			ConfigHash: "config-hash-dist-a",
			CreatedAt:  1700000000,
		},
		{
			ID:         "dist-b",
			ConfigHash: "config-hash-dist-b",
			CreatedAt:  1700000000,
			EventCount: 2,
			LastSeq:    2,
			LastType:   ir.EventMintRecorded,
			LastAt:     1700000002,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListDistributions() mismatch (-want +got):\n%s", diff)
	}
}
