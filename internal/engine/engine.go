package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/fairseed/internal/ir"
	"github.com/roach88/fairseed/internal/seed"
)

// Operation names an engine operation for logs and metrics.
type Operation string

const (
	OpRecordMint            Operation = "record_mint"
	OpCloseIfExpired        Operation = "close_if_expired"
	OpFixAutomaticSeedBlock Operation = "fix_automatic_seed_block"
	OpRevealAutomaticSeed   Operation = "reveal_automatic_seed"
	OpSubmitGuardianSeed    Operation = "submit_guardian_seed"
	OpApplyFallbackSeed     Operation = "apply_fallback_seed"
	OpFinalSeed             Operation = "final_seed"
)

// Journal durably records events before the engine commits them.
// Implemented by store.Store.
type Journal interface {
	AppendEvents(ctx context.Context, events []ir.Event) error
}

// Observer is notified of committed transitions and rejected operations.
// Implemented by metrics.Recorder.
type Observer interface {
	StateChanged(distributionID string, events []ir.Event, state State)
	OperationRejected(distributionID string, op Operation, code ErrorCode)
}

// Engine owns the lifecycle of one distribution.
//
// Thread-safety model: every exported method is safe for concurrent use;
// state-changing methods are serialized and each is one atomic step.
//
// INVARIANTS:
//   - state only changes through apply, after the journal accepted the events
//   - a rejected operation appends nothing and leaves state untouched
//   - FinalSeed is set at most once
type Engine struct {
	mu       sync.Mutex
	id       string
	cfg      Config
	state    State
	source   EntropySource
	clock    Clock
	journal  Journal
	observer Observer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithJournal sets the journal events are written to before commit.
// Without a journal the engine is purely in-memory.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithObserver registers an observer for transitions and rejections.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func newEngine(id string, cfg Config, source EntropySource, opts []Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, newError(ErrInvalidConfig, PhaseUnknown, "distribution id is required")
	}
	if source == nil {
		return nil, newError(ErrInvalidConfig, PhaseUnknown, "entropy source is required")
	}

	e := &Engine{
		id:     id,
		cfg:    cfg.withDefaults(),
		source: source,
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// New creates a distribution in the Active phase and journals its opening.
func New(ctx context.Context, id string, cfg Config, source EntropySource, opts ...Option) (*Engine, error) {
	e, err := newEngine(id, cfg, source, opts)
	if err != nil {
		return nil, err
	}

	fingerprint, ferr := e.cfg.Fingerprint()
	if ferr != nil {
		return nil, &Error{Code: ErrCodeInvalidConfig, Message: "fingerprint configuration", Err: ferr}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	opened, err := e.event(ir.EventDistributionOpened, e.now(), 1, ir.IRObject{
		keyConfigHash:  ir.IRString(fingerprint),
		keyStartPolicy: ir.IRString(string(e.cfg.StartPolicy)),
	})
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, opened); err != nil {
		return nil, err
	}
	return e, nil
}

// Restore rebuilds a distribution from its journal. Every event ID and every
// derived hash is re-verified; any mismatch fails with CORRUPT_JOURNAL.
// Restore itself writes nothing.
func Restore(id string, cfg Config, source EntropySource, events []ir.Event, opts ...Option) (*Engine, error) {
	e, err := newEngine(id, cfg, source, opts)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 || events[0].Type != ir.EventDistributionOpened {
		return nil, corrupt(1, "journal must start with %s", ir.EventDistributionOpened)
	}

	for _, ev := range events {
		if ev.DistributionID != id {
			return nil, corrupt(ev.Seq, "belongs to distribution %q", ev.DistributionID)
		}
		if verr := ir.VerifyEventID(ev); verr != nil {
			return nil, &Error{Code: ErrCodeCorruptJournal, Message: "event id mismatch", Err: verr}
		}
	}
	state, aerr := applyAll(e.cfg, State{}, events)
	if aerr != nil {
		return nil, aerr
	}
	e.state = state

	if e.observer != nil {
		e.observer.StateChanged(e.id, nil, e.state.clone())
	}
	return e, nil
}

// ID returns the distribution ID.
func (e *Engine) ID() string {
	return e.id
}

// Config returns the immutable configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Phase
}

// RecordMint accounts for count newly minted units. The first mint starts
// the distribution clock under StartOnFirstMint. Minting ends when supply is
// exhausted or the maximum duration has elapsed.
//
// Retries are not idempotent: every successful call consumes supply.
func (e *Engine) RecordMint(ctx context.Context, count uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case count == 0:
		return e.reject(OpRecordMint, newError(ErrInvalidMintCount, e.state.Phase, ""))
	case e.state.Phase != PhaseActive:
		return e.reject(OpRecordMint, newError(ErrDistributionClosed, e.state.Phase, ""))
	case count > e.cfg.MaxSupply-e.state.MintedCount:
		return e.reject(OpRecordMint, newError(ErrSupplyExceeded, e.state.Phase,
			"mint of %d exceeds remaining supply %d", count, e.cfg.MaxSupply-e.state.MintedCount))
	}

	now := e.now()
	minted := e.state.MintedCount + count
	mint, err := e.event(ir.EventMintRecorded, now, 1, ir.IRObject{
		keyCount:       ir.IRInt(int64(count)),
		keyMintedCount: ir.IRInt(int64(minted)),
	})
	if err != nil {
		return err
	}
	events := []ir.Event{mint}

	start := e.state.StartTime
	if start.IsZero() {
		start = now
	}
	var reason EndReason
	switch {
	case minted == e.cfg.MaxSupply:
		reason = EndReasonSupplyExhausted
	case !now.Before(start.Add(e.cfg.MaxDistributionDuration)):
		reason = EndReasonDurationElapsed
	}
	if reason != "" {
		ended, err := e.endedEvent(now, 2, reason, minted)
		if err != nil {
			return err
		}
		events = append(events, ended)
	}

	return e.commit(ctx, events...)
}

// CloseIfExpired ends minting once the maximum duration has elapsed, whether
// or not supply was exhausted. It reports whether it closed the distribution;
// it is a no-op if minting already ended, the duration has not started, or it
// has not elapsed yet.
func (e *Engine) CloseIfExpired(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != PhaseActive {
		return false, nil
	}
	end, started := e.state.DistributionEnd(e.cfg)
	now := e.now()
	if !started || now.Before(end) {
		return false, nil
	}

	ended, err := e.endedEvent(now, 1, EndReasonDurationElapsed, e.state.MintedCount)
	if err != nil {
		return false, err
	}
	if err := e.commit(ctx, ended); err != nil {
		return false, err
	}
	return true, nil
}

// FixAutomaticSeedBlock pins the future block whose hash becomes the
// automatic seed. The block is obtained from the entropy source and does not
// exist yet, so its hash is unknown to everyone, including this caller.
func (e *Engine) FixAutomaticSeedBlock(ctx context.Context) (PendingReference, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.SeedBlockFixed {
		return PendingReference{}, e.reject(OpFixAutomaticSeedBlock, newError(ErrAlreadyFixed, e.state.Phase,
			"automatic seed block already fixed at %d", e.state.SeedBlockNumber))
	}
	if e.state.Phase != PhaseDistributionEnded {
		return PendingReference{}, e.reject(OpFixAutomaticSeedBlock, newError(ErrWrongPhase, e.state.Phase,
			"automatic seed block can only be fixed after the distribution ended"))
	}

	ref, err := e.source.Future(ctx)
	if err != nil {
		return PendingReference{}, e.reject(OpFixAutomaticSeedBlock, &Error{
			Code: ErrCodeEntropyUnavailable, Message: "get future block", Phase: e.state.Phase, Err: err,
		})
	}

	fixed, ferr := e.event(ir.EventSeedBlockFixed, e.now(), 1, ir.IRObject{
		keyBlockNumber: ir.IRInt(int64(ref.BlockNumber)),
	})
	if ferr != nil {
		return PendingReference{}, ferr
	}
	if err := e.commit(ctx, fixed); err != nil {
		return PendingReference{}, err
	}
	return ref, nil
}

// RevealAutomaticSeed derives the automatic seed from the fixed block once it
// exists and starts the guardian window. It fails with ENTROPY_PENDING until
// then; callers poll.
func (e *Engine) RevealAutomaticSeed(ctx context.Context) (seed.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != PhaseAwaitingAutomaticSeed {
		return seed.Hash{}, e.reject(OpRevealAutomaticSeed, newError(ErrWrongPhase, e.state.Phase,
			"automatic seed can only be revealed after its block was fixed, and only once"))
	}

	ref := PendingReference{BlockNumber: e.state.SeedBlockNumber}
	blockHash, ok, err := e.source.Resolve(ctx, ref)
	if err != nil {
		return seed.Hash{}, e.reject(OpRevealAutomaticSeed, &Error{
			Code: ErrCodeEntropyUnavailable, Message: "resolve seed block", Phase: e.state.Phase, Err: err,
		})
	}
	if !ok {
		return seed.Hash{}, e.reject(OpRevealAutomaticSeed, newError(ErrEntropyPending, e.state.Phase,
			"block %d does not exist yet", ref.BlockNumber))
	}

	now := e.now()
	auto := seed.AutomaticSeed(blockHash)
	revealed, ferr := e.event(ir.EventAutomaticSeedRevealed, now, 1, ir.IRObject{
		keyBlockNumber:      ir.IRInt(int64(ref.BlockNumber)),
		keyBlockHash:        ir.IRString(blockHash.Hex()),
		keyAutomaticSeed:    ir.IRString(auto.Hex()),
		keyGuardianDeadline: ir.IRInt(now.Add(e.cfg.GuardianWindow).Unix()),
	})
	if ferr != nil {
		return seed.Hash{}, ferr
	}
	if err := e.commit(ctx, revealed); err != nil {
		return seed.Hash{}, err
	}
	return auto, nil
}

// SubmitGuardianSeed verifies the guardian's revealed seed against the
// commitment and, on success, sets the final seed. A mismatch fails with
// COMMITMENT_MISMATCH and changes nothing, so the guardian may retry until
// the deadline.
func (e *Engine) SubmitGuardianSeed(ctx context.Context, raw seed.Hash) (seed.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase.IsTerminal() {
		return seed.Hash{}, e.reject(OpSubmitGuardianSeed, newError(ErrAlreadyFinalized, e.state.Phase, ""))
	}
	if e.state.Phase != PhaseAwaitingGuardianSeed {
		return seed.Hash{}, e.reject(OpSubmitGuardianSeed, newError(ErrWrongPhase, e.state.Phase,
			"guardian seed can only be submitted once the automatic seed is revealed"))
	}
	now := e.now()
	if !now.Before(e.state.GuardianDeadline) {
		return seed.Hash{}, e.reject(OpSubmitGuardianSeed, newError(ErrWindowExpired, e.state.Phase,
			"guardian window closed at %s", e.state.GuardianDeadline.Format(time.RFC3339)))
	}
	if !seed.Verify(raw, e.cfg.GuardianSeedHash) {
		return seed.Hash{}, e.reject(OpSubmitGuardianSeed, newError(ErrCommitmentMismatch, e.state.Phase, ""))
	}

	final := seed.Combine(*e.state.AutomaticSeed, raw)
	accepted, err := e.event(ir.EventGuardianSeedAccepted, now, 1, ir.IRObject{
		keyGuardianSeed: ir.IRString(raw.Hex()),
		keyFinalSeed:    ir.IRString(final.Hex()),
	})
	if err != nil {
		return seed.Hash{}, err
	}
	if err := e.commit(ctx, accepted); err != nil {
		return seed.Hash{}, err
	}
	return final, nil
}

// ApplyFallbackSeed sets the final seed from the automatic seed alone once
// the guardian window has passed without a valid reveal.
func (e *Engine) ApplyFallbackSeed(ctx context.Context) (seed.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase.IsTerminal() {
		return seed.Hash{}, e.reject(OpApplyFallbackSeed, newError(ErrAlreadyFinalized, e.state.Phase, ""))
	}
	if e.state.Phase != PhaseAwaitingGuardianSeed {
		return seed.Hash{}, e.reject(OpApplyFallbackSeed, newError(ErrWrongPhase, e.state.Phase,
			"fallback seed can only be applied once the automatic seed is revealed"))
	}
	now := e.now()
	if now.Before(e.state.GuardianDeadline) {
		return seed.Hash{}, e.reject(OpApplyFallbackSeed, newError(ErrWindowOpen, e.state.Phase,
			"guardian window open until %s", e.state.GuardianDeadline.Format(time.RFC3339)))
	}

	final := seed.Fallback(*e.state.AutomaticSeed)
	applied, err := e.event(ir.EventFallbackApplied, now, 1, ir.IRObject{
		keyFinalSeed: ir.IRString(final.Hex()),
	})
	if err != nil {
		return seed.Hash{}, err
	}
	if err := e.commit(ctx, applied); err != nil {
		return seed.Hash{}, err
	}
	return final, nil
}

// FinalSeed returns the immutable final seed. It fails with NOT_FINALIZED
// until one of the terminal phases is reached.
func (e *Engine) FinalSeed() (seed.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Phase.IsTerminal() {
		return seed.Hash{}, e.reject(OpFinalSeed, newError(ErrNotFinalized, e.state.Phase, ""))
	}
	return *e.state.FinalSeed, nil
}

// now returns the current time in whole seconds, never earlier than the last
// committed event.
func (e *Engine) now() time.Time {
	t := time.Unix(e.clock.Now().Unix(), 0).UTC()
	if t.Before(e.state.UpdatedAt) {
		return e.state.UpdatedAt
	}
	return t
}

// event builds the offset-th event of the pending transition.
func (e *Engine) event(typ ir.EventType, at time.Time, offset int64, payload ir.IRObject) (ir.Event, error) {
	ev := ir.Event{
		DistributionID: e.id,
		Seq:            e.state.Seq + offset,
		Type:           typ,
		At:             at.Unix(),
		Payload:        payload,
	}
	id, err := ir.EventID(ev)
	if err != nil {
		return ir.Event{}, &Error{Code: ErrCodeJournal, Message: "compute event id", Phase: e.state.Phase, Err: err}
	}
	ev.ID = id
	return ev, nil
}

func (e *Engine) endedEvent(at time.Time, offset int64, reason EndReason, minted uint64) (ir.Event, error) {
	return e.event(ir.EventDistributionEnded, at, offset, ir.IRObject{
		keyReason:      ir.IRString(string(reason)),
		keyMintedCount: ir.IRInt(int64(minted)),
	})
}

// commit applies events to a copy of the state, journals them, then swaps
// the state in. Callers hold e.mu.
func (e *Engine) commit(ctx context.Context, events ...ir.Event) error {
	next, aerr := applyAll(e.cfg, e.state, events)
	if aerr != nil {
		return aerr
	}
	if e.journal != nil {
		if err := e.journal.AppendEvents(ctx, events); err != nil {
			return &Error{Code: ErrCodeJournal, Message: "append events", Phase: e.state.Phase, Err: err}
		}
	}

	prev := e.state.Phase
	e.state = next
	if prev != next.Phase {
		e.logger.Info("distribution transition",
			"distribution", e.id,
			"from", prev.String(),
			"to", next.Phase.String(),
			"seq", next.Seq,
			"minted", next.MintedCount)
	} else {
		e.logger.Debug("distribution updated", "distribution", e.id, "seq", next.Seq, "minted", next.MintedCount)
	}
	if e.observer != nil {
		e.observer.StateChanged(e.id, events, next.clone())
	}
	return nil
}

// reject logs and reports a rejected operation. Callers hold e.mu.
func (e *Engine) reject(op Operation, err *Error) error {
	e.logger.Debug("operation rejected",
		"distribution", e.id,
		"op", string(op),
		"code", string(err.Code),
		"phase", e.state.Phase.String())
	if e.observer != nil {
		e.observer.OperationRejected(e.id, op, err.Code)
	}
	return err
}
