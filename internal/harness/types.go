package harness

import (
	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/ir"
	"github.com/roach88/fairseed/internal/seed"
)

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step    int      `json:"step"` // 1-indexed
	Op      string   `json:"op"`
	Elapsed int64    `json:"elapsed"` // seconds since scenario start
	Phase   string   `json:"phase"`   // phase after the step
	Minted  uint64   `json:"minted"`
	Error   string   `json:"error,omitempty"`  // error code, empty on success
	Events  []string `json:"events,omitempty"` // event types journaled by the step
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step expectation, assertion and
	// the replay check held.
	Pass bool `json:"pass"`

	// DistributionID is the ID the scenario ran under.
	DistributionID string `json:"distribution_id"`

	// Trace contains one entry per step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final engine state.
	State engine.State `json:"-"`

	// Events is the full journal as read back from the store.
	Events []ir.Event `json:"-"`

	// Guardian is the commitment chain the scenario ran with.
	Guardian *seed.Commitment `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
