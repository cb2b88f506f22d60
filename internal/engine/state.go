package engine

import (
	"time"

	"github.com/roach88/fairseed/internal/seed"
)

// State is a snapshot of a distribution. Engines hand out copies; mutating a
// State never affects the engine.
type State struct {
	Phase       Phase
	MintedCount uint64

	// StartTime is when the distribution duration started counting; zero
	// until the first mint under StartOnFirstMint.
	StartTime time.Time

	// EndTime and EndReason are set when minting ends.
	EndTime   time.Time
	EndReason EndReason

	// SeedBlockNumber is valid once SeedBlockFixed is true.
	SeedBlockNumber uint64
	SeedBlockFixed  bool

	BlockHash        *seed.Hash
	AutomaticSeed    *seed.Hash
	GuardianDeadline time.Time
	GuardianSeed     *seed.Hash
	FinalSeed        *seed.Hash

	// Seq is the seq of the last applied event.
	Seq int64

	// UpdatedAt is the time of the last applied event. Event times never go
	// backwards.
	UpdatedAt time.Time
}

// DistributionEnd returns the scheduled end of minting, if the duration has
// started counting.
func (s State) DistributionEnd(cfg Config) (time.Time, bool) {
	if s.StartTime.IsZero() {
		return time.Time{}, false
	}
	return s.StartTime.Add(cfg.MaxDistributionDuration), true
}

// clone returns a deep copy so pointer fields are never shared.
func (s State) clone() State {
	s.BlockHash = cloneHash(s.BlockHash)
	s.AutomaticSeed = cloneHash(s.AutomaticSeed)
	s.GuardianSeed = cloneHash(s.GuardianSeed)
	s.FinalSeed = cloneHash(s.FinalSeed)
	return s
}

func cloneHash(h *seed.Hash) *seed.Hash {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}
