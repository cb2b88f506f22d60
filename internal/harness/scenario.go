package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/ir"
)

// Scenario defines one distribution run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// DistributionID is the fixed distribution ID. Default: "scenario-default".
	DistributionID string `yaml:"distribution_id,omitempty"`

	// StartBlock is the chain head when the scenario starts.
	StartBlock uint64 `yaml:"start_block,omitempty"`

	// Config is the distribution configuration.
	Config ScenarioConfig `yaml:"config"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and journal.
	Assertions []Assertion `yaml:"assertions"`
}

// ScenarioConfig mirrors the configuration file, with the guardian's
// password in place of the commitment.
type ScenarioConfig struct {
	// GuardianPassword derives the guardian seed and commitment.
	// Default: testutil.GuardianPassword.
	GuardianPassword       string `yaml:"guardian_password,omitempty"`
	GuardianWindowSeconds  int64  `yaml:"guardian_window_seconds"`
	MaxDistributionSeconds int64  `yaml:"max_distribution_seconds"`
	MaxSupply              uint64 `yaml:"max_supply"`
	StartPolicy            string `yaml:"start_policy,omitempty"`
}

// Step is one operation on the distribution or its environment.
type Step struct {
	// Op is the operation, one of the Op* constants.
	Op string `yaml:"op"`

	// Count is the number of units to mint (mint).
	Count uint64 `yaml:"count,omitempty"`

	// Seconds is how far to move the clock (advance).
	Seconds int64 `yaml:"seconds,omitempty"`

	// Password submits the seed derived from this password instead of the
	// guardian's (submit_seed).
	Password string `yaml:"password,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect specifies the expected outcome of a step.
type StepExpect struct {
	// Error is the expected error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Phase is the expected phase after the step.
	Phase string `yaml:"phase,omitempty"`

	// Minted is the expected minted count after the step.
	Minted *uint64 `yaml:"minted,omitempty"`

	// Closed is the expected return value of close.
	Closed *bool `yaml:"closed,omitempty"`
}

// Step op constants.
const (
	OpMint       = "mint"
	OpAdvance    = "advance"
	OpClose      = "close"
	OpFixBlock   = "fix_block"
	OpMine       = "mine"
	OpReveal     = "reveal"
	OpSubmitSeed = "submit_seed"
	OpFallback   = "fallback"
	OpFinalSeed  = "final_seed"
)

var validOps = map[string]bool{
	OpMint: true, OpAdvance: true, OpClose: true, OpFixBlock: true, OpMine: true,
	OpReveal: true, OpSubmitSeed: true, OpFallback: true, OpFinalSeed: true,
}

// Assertion validates the final state or journal.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_phase": the distribution ended in Phase
	// - "minted_count": the minted count equals Count
	// - "final_seed": the final seed was derived from Source
	// - "event_count": event type Event was journaled exactly Count times
	// - "event_order": event types Events appear in this order
	Type string `yaml:"type"`

	Phase  string   `yaml:"phase,omitempty"`
	Count  *int64   `yaml:"count,omitempty"`
	Source string   `yaml:"source,omitempty"` // guardian, fallback or none
	Event  string   `yaml:"event,omitempty"`
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalPhase  = "final_phase"
	AssertMintedCount = "minted_count"
	AssertFinalSeed   = "final_seed"
	AssertEventCount  = "event_count"
	AssertEventOrder  = "event_order"
)

// Final seed sources.
const (
	SourceGuardian = "guardian"
	SourceFallback = "fallback"
	SourceNone     = "none"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s *Step) error {
	if !validOps[s.Op] {
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	if s.Op == OpMint && s.Count == 0 && (s.Expect == nil || s.Expect.Error == "") {
		return fmt.Errorf("steps[%d]: count is required for mint", index)
	}
	if s.Op == OpAdvance && s.Seconds <= 0 {
		return fmt.Errorf("steps[%d]: seconds must be positive for advance", index)
	}
	if s.Expect != nil && s.Expect.Phase != "" {
		if _, err := engine.ParsePhase(s.Expect.Phase); err != nil {
			return fmt.Errorf("steps[%d].expect: %w", index, err)
		}
	}
	if s.Expect != nil && s.Expect.Closed != nil && s.Op != OpClose {
		return fmt.Errorf("steps[%d].expect: closed only applies to close", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalPhase:
		if _, err := engine.ParsePhase(a.Phase); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertMintedCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for minted_count", index)
		}
	case AssertFinalSeed:
		switch a.Source {
		case SourceGuardian, SourceFallback, SourceNone:
		default:
			return fmt.Errorf("assertions[%d]: source must be guardian, fallback or none", index)
		}
	case AssertEventCount:
		if !ir.ValidEventTypes[ir.EventType(a.Event)] {
			return fmt.Errorf("assertions[%d]: unknown event %q", index, a.Event)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
		for _, e := range a.Events {
			if !ir.ValidEventTypes[ir.EventType(e)] {
				return fmt.Errorf("assertions[%d]: unknown event %q", index, e)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
