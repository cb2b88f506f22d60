package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/fairseed/internal/ir"
)

// TraceSnapshot captures the step trace of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName   string       `json:"scenario_name"`
	DistributionID string       `json:"distribution_id"`
	Trace          []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step":    event.Step,
			"op":      event.Op,
			"elapsed": event.Elapsed,
			"phase":   event.Phase,
			"minted":  int64(event.Minted),
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		if len(event.Events) > 0 {
			events := make([]any, len(event.Events))
			for j, e := range event.Events {
				events[j] = e
			}
			eventMap["events"] = events
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name":   s.ScenarioName,
		"distribution_id": s.DistributionID,
		"trace":           traceList,
	}
}

// MarshalTrace renders the result's trace as canonical JSON.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName:   scenarioName,
		DistributionID: result.DistributionID,
		Trace:          result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
