package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/fairseed/internal/chain"
	"github.com/roach88/fairseed/internal/config"
	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/ir"
	"github.com/roach88/fairseed/internal/seed"
	"github.com/roach88/fairseed/internal/store"
	"github.com/roach88/fairseed/internal/testutil"
)

const defaultDistributionID = "scenario-default"

// Harness executes one scenario. It observes the engine to attribute
// journaled events to the step that caused them.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	clock    *testutil.FakeClock
	source   *chain.StaticSource
	guardian *seed.Commitment
	cfg      engine.Config
	id       string
	logger   *slog.Logger

	mu      sync.Mutex
	pending []ir.Event
}

var _ engine.Observer = (*Harness)(nil)

// StateChanged implements engine.Observer.
func (h *Harness) StateChanged(distributionID string, events []ir.Event, state engine.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, events...)
}

// OperationRejected implements engine.Observer.
func (h *Harness) OperationRejected(distributionID string, op engine.Operation, code engine.ErrorCode) {}

func (h *Harness) takePending() []ir.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := h.pending
	h.pending = nil
	return events
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// fake clock starting at testutil.Epoch and an in-memory chain.
//
// Execution flow:
// 1. Derive the guardian commitment and build the configuration
// 2. Register the distribution and open it
// 3. Execute steps with expect validation
// 4. Evaluate assertions
// 5. Restore from the journal and compare with the live state
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	password := scenario.Config.GuardianPassword
	if password == "" {
		password = testutil.GuardianPassword
	}
	guardian, err := seed.CommitmentFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("guardian commitment: %w", err)
	}

	cfg, err := config.File{
		GuardianSeedHash:       guardian.Hash.Hex(),
		GuardianWindowSeconds:  scenario.Config.GuardianWindowSeconds,
		MaxDistributionSeconds: scenario.Config.MaxDistributionSeconds,
		MaxSupply:              scenario.Config.MaxSupply,
		StartPolicy:            scenario.Config.StartPolicy,
	}.Config()
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}

	id := scenario.DistributionID
	if id == "" {
		id = defaultDistributionID
	}

	h := &Harness{
		store:    st,
		clock:    testutil.NewFakeClock(time.Time{}),
		source:   chain.NewStaticSource(scenario.StartBlock),
		guardian: guardian,
		cfg:      cfg,
		id:       id,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	rec, err := cfg.Record(h.id, h.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := st.WriteDistribution(ctx, rec); err != nil {
		return nil, fmt.Errorf("register distribution: %w", err)
	}
	h.engine, err = engine.New(ctx, h.id, cfg, h.source,
		engine.WithClock(h.clock),
		engine.WithJournal(st),
		engine.WithObserver(h),
		engine.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("open distribution: %w", err)
	}
	h.takePending()

	result := NewResult()
	result.DistributionID = h.id
	result.Guardian = guardian
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	result.State = h.engine.Snapshot()
	result.Events, err = st.ReadEvents(ctx, h.id)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, h.engine) {
		result.AddError(errMsg)
	}

	if err := h.checkReplay(ctx, result); err != nil {
		result.AddError(err.Error())
	}

	return result, nil
}

// executeStep runs one step, appends its trace entry and checks its
// expectation.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	var (
		err    error
		closed bool
	)

	switch step.Op {
	case OpMint:
		err = h.engine.RecordMint(ctx, step.Count)
	case OpAdvance:
		h.clock.Advance(time.Duration(step.Seconds) * time.Second)
	case OpClose:
		closed, err = h.engine.CloseIfExpired(ctx)
	case OpFixBlock:
		_, err = h.engine.FixAutomaticSeedBlock(ctx)
	case OpMine:
		h.source.Mine()
	case OpReveal:
		_, err = h.engine.RevealAutomaticSeed(ctx)
	case OpSubmitSeed:
		raw := h.guardian.Seed
		if step.Password != "" {
			raw = seed.SeedFromPassword(step.Password)
		}
		_, err = h.engine.SubmitGuardianSeed(ctx, raw)
	case OpFallback:
		_, err = h.engine.ApplyFallbackSeed(ctx)
	case OpFinalSeed:
		_, err = h.engine.FinalSeed()
	}

	st := h.engine.Snapshot()
	event := TraceEvent{
		Step:    index + 1,
		Op:      step.Op,
		Elapsed: int64(h.clock.Now().Sub(testutil.Epoch) / time.Second),
		Phase:   st.Phase.String(),
		Minted:  st.MintedCount,
		Error:   string(engine.CodeOf(err)),
	}
	for _, e := range h.takePending() {
		event.Events = append(event.Events, string(e.Type))
	}
	result.Trace = append(result.Trace, event)

	prefix := fmt.Sprintf("step %d (%s)", index+1, step.Op)
	if err != nil && event.Error == "" {
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", prefix, err))
		return
	}

	expect := step.Expect
	if expect == nil {
		expect = &StepExpect{}
	}
	if event.Error != expect.Error {
		result.AddError(fmt.Sprintf("%s: expected error %q, got %q", prefix, expect.Error, event.Error))
	}
	if expect.Phase != "" && expect.Phase != event.Phase {
		result.AddError(fmt.Sprintf("%s: expected phase %s, got %s", prefix, expect.Phase, event.Phase))
	}
	if expect.Minted != nil && *expect.Minted != event.Minted {
		result.AddError(fmt.Sprintf("%s: expected minted %d, got %d", prefix, *expect.Minted, event.Minted))
	}
	if expect.Closed != nil && *expect.Closed != closed {
		result.AddError(fmt.Sprintf("%s: expected closed=%t, got %t", prefix, *expect.Closed, closed))
	}
}

// checkReplay restores the distribution from the stored journal and
// compares it with the live engine.
func (h *Harness) checkReplay(ctx context.Context, result *Result) error {
	journal, err := h.store.LoadJournal(ctx, h.id)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	cfg, err := engine.ConfigFromIR(journal.Record.Config)
	if err != nil {
		return fmt.Errorf("replay: stored config: %w", err)
	}
	restored, err := engine.Restore(h.id, cfg, h.source, journal.Events, engine.WithLogger(h.logger))
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if diff := cmp.Diff(result.State, restored.Snapshot()); diff != "" {
		return fmt.Errorf("replay: restored state differs (-live +restored):\n%s", diff)
	}
	return nil
}
