package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func testScenario(steps ...Step) *Scenario {
	return &Scenario{
		Name:           "inline",
		Description:    "Inline scenario",
		DistributionID: "dist-inline",
		Config: ScenarioConfig{
			GuardianWindowSeconds:  600,
			MaxDistributionSeconds: 60,
			MaxSupply:              10,
		},
		Steps: steps,
	}
}

func uintPtr(v uint64) *uint64 { return &v }
func int64Ptr(v int64) *int64  { return &v }
func boolPtr(v bool) *bool     { return &v }

func TestRun_TraceRecordsEventsPerStep(t *testing.T) {
	result, err := Run(testScenario(
		Step{Op: OpMint, Count: 10},
		Step{Op: OpFixBlock},
		Step{Op: OpMine},
		Step{Op: OpReveal},
	))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, "dist-inline", result.DistributionID)
	require.Len(t, result.Trace, 4)
	assert.Equal(t, []string{"mint_recorded", "distribution_ended"}, result.Trace[0].Events)
	assert.Equal(t, []string{"seed_block_fixed"}, result.Trace[1].Events)
	assert.Empty(t, result.Trace[2].Events)
	assert.Equal(t, []string{"automatic_seed_revealed"}, result.Trace[3].Events)
	assert.Equal(t, "awaiting_guardian_seed", result.Trace[3].Phase)

	// The opening event is journaled but belongs to no step.
	require.Len(t, result.Events, 5)
	assert.Equal(t, "distribution_opened", string(result.Events[0].Type))
}

func TestRun_DefaultDistributionID(t *testing.T) {
	scenario := testScenario(Step{Op: OpMint, Count: 1})
	scenario.DistributionID = ""

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, defaultDistributionID, result.DistributionID)
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	result, err := Run(testScenario(Step{Op: OpFinalSeed}))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected error "", got "NOT_FINALIZED"`)
	assert.Equal(t, "NOT_FINALIZED", result.Trace[0].Error)
}

func TestRun_MissingExpectedErrorFails(t *testing.T) {
	result, err := Run(testScenario(
		Step{Op: OpMint, Count: 1, Expect: &StepExpect{Error: "SUPPLY_EXCEEDED"}},
	))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected error "SUPPLY_EXCEEDED", got ""`)
}

func TestRun_ExpectationMismatches(t *testing.T) {
	result, err := Run(testScenario(
		Step{Op: OpMint, Count: 2, Expect: &StepExpect{Phase: "distribution_ended", Minted: uintPtr(3)}},
		Step{Op: OpClose, Expect: &StepExpect{Closed: boolPtr(true)}},
	))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected phase distribution_ended, got active")
	assert.Contains(t, result.Errors[1], "expected minted 3, got 2")
	assert.Contains(t, result.Errors[2], "expected closed=true, got false")
}

func TestRun_FailedAssertion(t *testing.T) {
	scenario := testScenario(Step{Op: OpMint, Count: 4})
	scenario.Assertions = []Assertion{
		{Type: AssertMintedCount, Count: int64Ptr(5)},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertion 1")
	assert.Contains(t, result.Errors[0], "Expected: 5")
}

func TestRun_SubmitWithOtherPassword(t *testing.T) {
	result, err := Run(testScenario(
		Step{Op: OpMint, Count: 10},
		Step{Op: OpFixBlock},
		Step{Op: OpMine},
		Step{Op: OpReveal},
		Step{Op: OpSubmitSeed, Password: "someone-else", Expect: &StepExpect{Error: "COMMITMENT_MISMATCH"}},
		Step{Op: OpSubmitSeed, Expect: &StepExpect{Phase: "finalized"}},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidConfig(t *testing.T) {
	scenario := testScenario(Step{Op: OpMint, Count: 1})
	scenario.Config.MaxSupply = 0

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario config")
}

func TestMarshalTrace_Canonical(t *testing.T) {
	result := NewResult()
	result.DistributionID = "dist-1"
	result.Trace = []TraceEvent{
		{Step: 1, Op: OpMint, Phase: "active", Minted: 1, Events: []string{"mint_recorded"}},
		{Step: 2, Op: OpMint, Phase: "active", Minted: 1, Error: "INVALID_MINT_COUNT"},
	}

	got, err := MarshalTrace("tiny", result)
	require.NoError(t, err)

	want := `{"distribution_id":"dist-1","scenario_name":"tiny","trace":[` +
		`{"elapsed":0,"events":["mint_recorded"],"minted":1,"op":"mint","phase":"active","step":1},` +
		`{"elapsed":0,"error":"INVALID_MINT_COUNT","minted":1,"op":"mint","phase":"active","step":2}]}`
	assert.Equal(t, want, string(got))
}
