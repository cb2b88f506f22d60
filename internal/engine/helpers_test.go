package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/roach88/fairseed/internal/ir"
	"github.com/roach88/fairseed/internal/seed"
	"github.com/roach88/fairseed/internal/testutil"
	"github.com/stretchr/testify/require"
)

const testDistributionID = "dist-0001"

// stubSource is an in-memory chain: Future is head+1, Resolve knows only
// mined blocks.
type stubSource struct {
	mu     sync.Mutex
	head   uint64
	hashes map[uint64]seed.Hash
	err    error
}

func newStubSource() *stubSource {
	return &stubSource{head: 100, hashes: make(map[uint64]seed.Hash)}
}

func (s *stubSource) Future(ctx context.Context) (PendingReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return PendingReference{}, s.err
	}
	return PendingReference{BlockNumber: s.head + 1}, nil
}

func (s *stubSource) Resolve(ctx context.Context, ref PendingReference) (seed.Hash, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return seed.Hash{}, false, s.err
	}
	h, ok := s.hashes[ref.BlockNumber]
	return h, ok, nil
}

func (s *stubSource) mine() seed.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head++
	h := seed.Keccak256([]byte(fmt.Sprintf("block-%d", s.head)))
	s.hashes[s.head] = h
	return h
}

// memJournal keeps appended events in memory and can be told to fail.
type memJournal struct {
	mu     sync.Mutex
	events []ir.Event
	fail   error
}

func (j *memJournal) AppendEvents(ctx context.Context, events []ir.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail != nil {
		return j.fail
	}
	j.events = append(j.events, events...)
	return nil
}

func (j *memJournal) all() []ir.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ir.Event(nil), j.events...)
}

type recordingObserver struct {
	mu       sync.Mutex
	phases   []Phase
	rejected []ErrorCode
}

func (o *recordingObserver) StateChanged(id string, events []ir.Event, st State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, st.Phase)
}

func (o *recordingObserver) OperationRejected(id string, op Operation, code ErrorCode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, code)
}

type fixture struct {
	engine   *Engine
	clock    *testutil.FakeClock
	source   *stubSource
	journal  *memJournal
	guardian *seed.Commitment
	cfg      Config
}

func testConfig(t *testing.T) (Config, *seed.Commitment) {
	t.Helper()
	g := testutil.Guardian(t, "")
	return Config{
		GuardianSeedHash:        g.Hash,
		GuardianWindow:          10 * time.Minute,
		MaxDistributionDuration: 60 * time.Second,
		MaxSupply:               10,
	}, g
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()
	cfg, g := testConfig(t)
	for _, m := range mutate {
		m(&cfg)
	}
	f := &fixture{
		clock:    testutil.NewFakeClock(time.Time{}),
		source:   newStubSource(),
		journal:  &memJournal{},
		guardian: g,
		cfg:      cfg,
	}
	e, err := New(context.Background(), testDistributionID, cfg, f.source,
		WithClock(f.clock), WithJournal(f.journal))
	require.NoError(t, err)
	f.engine = e
	return f
}

// toAwaitingGuardian drives the fixture through minting, block fixing and
// the automatic seed reveal.
func (f *fixture) toAwaitingGuardian(t *testing.T) seed.Hash {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.engine.RecordMint(ctx, f.cfg.MaxSupply))
	_, err := f.engine.FixAutomaticSeedBlock(ctx)
	require.NoError(t, err)
	f.source.mine()
	auto, err := f.engine.RevealAutomaticSeed(ctx)
	require.NoError(t, err)
	return auto
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, CodeOf(err), "error: %v", err)
}

var errBoom = errors.New("boom")
