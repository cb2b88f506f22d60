package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fairseed/internal/ir"
)

func journal(types ...ir.EventType) []ir.Event {
	events := make([]ir.Event, len(types))
	for i, typ := range types {
		events[i] = ir.Event{Seq: int64(i + 1), Type: typ}
	}
	return events
}

func TestAssertEventCount(t *testing.T) {
	events := journal(ir.EventDistributionOpened, ir.EventMintRecorded, ir.EventMintRecorded)

	require.NoError(t, assertEventCount(events, Assertion{Event: "mint_recorded", Count: int64Ptr(2)}))
	require.NoError(t, assertEventCount(events, Assertion{Event: "fallback_applied", Count: int64Ptr(0)}))

	err := assertEventCount(events, Assertion{Event: "mint_recorded", Count: int64Ptr(3)})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "mint_recorded x3", ae.Expected)
	assert.Equal(t, "mint_recorded x2", ae.Actual)
}

func TestAssertEventOrder(t *testing.T) {
	events := journal(
		ir.EventDistributionOpened,
		ir.EventMintRecorded,
		ir.EventDistributionEnded,
		ir.EventSeedBlockFixed,
	)

	tests := []struct {
		name    string
		order   []string
		wantErr string
	}{
		{name: "in order", order: []string{"distribution_opened", "distribution_ended"}},
		{name: "all", order: []string{"distribution_opened", "mint_recorded", "distribution_ended", "seed_block_fixed"}},
		{name: "reversed", order: []string{"seed_block_fixed", "mint_recorded"}, wantErr: "should be before"},
		{name: "missing", order: []string{"mint_recorded", "fallback_applied"}, wantErr: "missing event: fallback_applied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertEventOrder(events, Assertion{Events: tt.order})
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertionError_IncludesJournal(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFinalPhase,
		Expected: "finalized",
		Actual:   "active",
		Events:   []ir.Event{{Seq: 1, Type: ir.EventDistributionOpened, At: 1704067200}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: final_phase")
	assert.Contains(t, msg, "Expected: finalized")
	assert.Contains(t, msg, "Actual: active")
	assert.Contains(t, msg, "[1] distribution_opened at=1704067200")
}

func TestFinalSeedAssertions(t *testing.T) {
	guardian := testScenario(
		Step{Op: OpMint, Count: 10},
		Step{Op: OpFixBlock},
		Step{Op: OpMine},
		Step{Op: OpReveal},
		Step{Op: OpSubmitSeed},
	)

	guardian.Assertions = []Assertion{{Type: AssertFinalSeed, Source: SourceGuardian}}
	result, err := Run(guardian)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	guardian.Assertions = []Assertion{{Type: AssertFinalSeed, Source: SourceFallback}}
	result, err = Run(guardian)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "final seed from fallback")

	guardian.Assertions = []Assertion{{Type: AssertFinalSeed, Source: SourceNone}}
	result, err = Run(guardian)
	require.NoError(t, err)
	assert.False(t, result.Pass)
}

func TestFinalSeedAssertion_NotFinalized(t *testing.T) {
	scenario := testScenario(Step{Op: OpMint, Count: 1})
	scenario.Assertions = []Assertion{
		{Type: AssertFinalSeed, Source: SourceNone},
		{Type: AssertFinalPhase, Phase: "active"},
	}
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	scenario.Assertions = []Assertion{{Type: AssertFinalSeed, Source: SourceGuardian}}
	result, err = Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "NOT_FINALIZED")
}
