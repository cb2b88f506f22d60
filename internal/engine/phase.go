package engine

import "fmt"

// Phase is the lifecycle phase of a distribution. It alone decides which
// operations are legal.
type Phase int

const (
	// PhaseUnknown is the zero value; no engine is ever in it after construction.
	PhaseUnknown Phase = iota
	PhaseActive
	PhaseDistributionEnded
	PhaseAwaitingAutomaticSeed
	PhaseAwaitingGuardianSeed
	PhaseFinalized
	PhaseFinalizedFallback
)

var phaseNames = map[Phase]string{
	PhaseUnknown:               "unknown",
	PhaseActive:                "active",
	PhaseDistributionEnded:     "distribution_ended",
	PhaseAwaitingAutomaticSeed: "awaiting_automatic_seed",
	PhaseAwaitingGuardianSeed:  "awaiting_guardian_seed",
	PhaseFinalized:             "finalized",
	PhaseFinalizedFallback:     "finalized_fallback",
}

// String returns the snake_case phase name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// IsTerminal reports whether the final seed has been set.
func (p Phase) IsTerminal() bool {
	return p == PhaseFinalized || p == PhaseFinalizedFallback
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase parses a phase name as produced by String.
func ParsePhase(s string) (Phase, error) {
	for p, name := range phaseNames {
		if name == s && p != PhaseUnknown {
			return p, nil
		}
	}
	return PhaseUnknown, fmt.Errorf("unknown phase %q", s)
}

// EndReason records why minting ended.
type EndReason string

const (
	EndReasonSupplyExhausted EndReason = "supply_exhausted"
	EndReasonDurationElapsed EndReason = "duration_elapsed"
)

// StartPolicy decides when the distribution duration starts counting.
type StartPolicy string

const (
	// StartOnFirstMint starts the duration at the first accepted mint.
	StartOnFirstMint StartPolicy = "first_mint"

	// StartOnDeployment starts the duration when the engine is created.
	StartOnDeployment StartPolicy = "deployment"
)

// Valid reports whether p is a known policy.
func (p StartPolicy) Valid() bool {
	return p == StartOnFirstMint || p == StartOnDeployment
}
