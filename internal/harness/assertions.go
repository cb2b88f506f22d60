package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/ir"
	"github.com/roach88/fairseed/internal/seed"
)

// AssertionError is returned when an assertion fails.
// It includes the journal to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Events   []ir.Event // Full journal for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nJournal:\n")
	for _, event := range e.Events {
		fmt.Fprintf(&buf, "  [%d] %s at=%d\n", event.Seq, event.Type, event.At)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, eng *engine.Engine) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, eng); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i+1, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, eng *engine.Engine) error {
	switch a.Type {
	case AssertFinalPhase:
		return assertFinalPhase(result, a)
	case AssertMintedCount:
		return assertMintedCount(result, a)
	case AssertFinalSeed:
		return assertFinalSeed(result, a, eng)
	case AssertEventCount:
		return assertEventCount(result.Events, a)
	case AssertEventOrder:
		return assertEventOrder(result.Events, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertFinalPhase(result *Result, a Assertion) error {
	if got := result.State.Phase.String(); got != a.Phase {
		return &AssertionError{
			Type:     AssertFinalPhase,
			Expected: a.Phase,
			Actual:   got,
			Events:   result.Events,
		}
	}
	return nil
}

func assertMintedCount(result *Result, a Assertion) error {
	if int64(result.State.MintedCount) != *a.Count {
		return &AssertionError{
			Type:     AssertMintedCount,
			Expected: fmt.Sprint(*a.Count),
			Actual:   fmt.Sprint(result.State.MintedCount),
			Events:   result.Events,
		}
	}
	return nil
}

// assertFinalSeed re-derives the expected final seed from the automatic seed
// and the guardian's seed, independently of the engine.
func assertFinalSeed(result *Result, a Assertion, eng *engine.Engine) error {
	got, err := eng.FinalSeed()
	fail := func(actual string) error {
		return &AssertionError{
			Type:     AssertFinalSeed,
			Expected: "final seed from " + a.Source,
			Actual:   actual,
			Events:   result.Events,
		}
	}

	if a.Source == SourceNone {
		if err == nil {
			return fail("final seed " + got.Hex())
		}
		return nil
	}
	if err != nil {
		return fail(err.Error())
	}
	if result.State.AutomaticSeed == nil {
		return fail("no automatic seed")
	}

	var want seed.Hash
	switch a.Source {
	case SourceGuardian:
		want = seed.Combine(*result.State.AutomaticSeed, result.Guardian.Seed)
	case SourceFallback:
		want = seed.Fallback(*result.State.AutomaticSeed)
	}
	if got != want {
		return fail("final seed " + got.Hex() + ", want " + want.Hex())
	}
	return nil
}

// assertEventCount checks that the event type was journaled exactly Count times.
func assertEventCount(events []ir.Event, a Assertion) error {
	count := int64(0)
	for _, e := range events {
		if string(e.Type) == a.Event {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%s x%d", a.Event, *a.Count),
			Actual:   fmt.Sprintf("%s x%d", a.Event, count),
			Events:   events,
		}
	}
	return nil
}

// assertEventOrder checks that event types first appear in the specified
// order. Events don't need to be consecutive.
func assertEventOrder(events []ir.Event, a Assertion) error {
	positions := make(map[string]int)
	for i, e := range events {
		if _, seen := positions[string(e.Type)]; !seen {
			positions[string(e.Type)] = i + 1 // 1-indexed for readability
		}
	}

	for _, name := range a.Events {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all events present: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", name),
				Events:   events,
			}
		}
	}

	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Events: events,
			}
		}
	}

	return nil
}
