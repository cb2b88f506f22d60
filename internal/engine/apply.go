package engine

import (
	"time"

	"github.com/roach88/fairseed/internal/ir"
	"github.com/roach88/fairseed/internal/seed"
)

// Payload keys shared by event construction and apply.
const (
	keyConfigHash       = "config_hash"
	keyStartPolicy      = "start_policy"
	keyCount            = "count"
	keyMintedCount      = "minted_count"
	keyReason           = "reason"
	keyBlockNumber      = "block_number"
	keyBlockHash        = "block_hash"
	keyAutomaticSeed    = "automatic_seed"
	keyGuardianDeadline = "guardian_deadline"
	keyGuardianSeed     = "guardian_seed"
	keyFinalSeed        = "final_seed"
)

// applyAll applies events in order to a copy of s.
//
// apply does not trust derived values in a payload: it recomputes them from
// the configuration and earlier state and rejects any mismatch, so a replayed
// journal is also an audit of every hash it contains.
func applyAll(cfg Config, s State, events []ir.Event) (State, *Error) {
	next := s.clone()
	for _, e := range events {
		if err := apply(cfg, &next, e); err != nil {
			return s, err
		}
	}
	return next, nil
}

func apply(cfg Config, s *State, e ir.Event) *Error {
	if e.Seq != s.Seq+1 {
		return corrupt(e.Seq, "expected seq %d", s.Seq+1)
	}
	at := time.Unix(e.At, 0).UTC()
	if at.Before(s.UpdatedAt) {
		return corrupt(e.Seq, "time %s before previous event %s", at, s.UpdatedAt)
	}

	var err *Error
	switch e.Type {
	case ir.EventDistributionOpened:
		err = applyOpened(cfg, s, e, at)
	case ir.EventMintRecorded:
		err = applyMint(cfg, s, e, at)
	case ir.EventDistributionEnded:
		err = applyEnded(cfg, s, e, at)
	case ir.EventSeedBlockFixed:
		err = applySeedBlockFixed(s, e)
	case ir.EventAutomaticSeedRevealed:
		err = applyAutomaticSeed(cfg, s, e, at)
	case ir.EventGuardianSeedAccepted:
		err = applyGuardianSeed(cfg, s, e, at)
	case ir.EventFallbackApplied:
		err = applyFallback(s, e, at)
	default:
		err = corrupt(e.Seq, "unknown event type %q", e.Type)
	}
	if err != nil {
		return err
	}

	s.Seq = e.Seq
	s.UpdatedAt = at
	return nil
}

func expectPhase(s *State, e ir.Event, want Phase) *Error {
	if s.Phase != want {
		return corrupt(e.Seq, "%s in phase %s, want %s", e.Type, s.Phase, want)
	}
	return nil
}

func applyOpened(cfg Config, s *State, e ir.Event, at time.Time) *Error {
	if err := expectPhase(s, e, PhaseUnknown); err != nil {
		return err
	}
	want, ferr := cfg.Fingerprint()
	if ferr != nil {
		return corrupt(e.Seq, "fingerprint config: %v", ferr)
	}
	if got, _ := e.Payload.String(keyConfigHash); got != want {
		return corrupt(e.Seq, "config hash %q does not match configuration %q", got, want)
	}
	if cfg.withDefaults().StartPolicy == StartOnDeployment {
		s.StartTime = at
	}
	s.Phase = PhaseActive
	return nil
}

func applyMint(cfg Config, s *State, e ir.Event, at time.Time) *Error {
	if err := expectPhase(s, e, PhaseActive); err != nil {
		return err
	}
	count, ok := e.Payload.Int(keyCount)
	if !ok || count <= 0 {
		return corrupt(e.Seq, "invalid mint count")
	}
	if uint64(count) > cfg.MaxSupply-s.MintedCount {
		return corrupt(e.Seq, "mint of %d exceeds remaining supply %d", count, cfg.MaxSupply-s.MintedCount)
	}
	minted := s.MintedCount + uint64(count)
	if got, _ := e.Payload.Int(keyMintedCount); got != int64(minted) {
		return corrupt(e.Seq, "minted count %d, want %d", got, minted)
	}
	s.MintedCount = minted
	if s.StartTime.IsZero() {
		s.StartTime = at
	}
	return nil
}

func applyEnded(cfg Config, s *State, e ir.Event, at time.Time) *Error {
	if err := expectPhase(s, e, PhaseActive); err != nil {
		return err
	}
	reason, _ := e.Payload.String(keyReason)
	switch EndReason(reason) {
	case EndReasonSupplyExhausted:
		if s.MintedCount != cfg.MaxSupply {
			return corrupt(e.Seq, "supply exhausted with %d of %d minted", s.MintedCount, cfg.MaxSupply)
		}
	case EndReasonDurationElapsed:
		end, started := s.DistributionEnd(cfg)
		if !started || at.Before(end) {
			return corrupt(e.Seq, "duration not elapsed at %s", at)
		}
	default:
		return corrupt(e.Seq, "unknown end reason %q", reason)
	}
	s.EndTime = at
	s.EndReason = EndReason(reason)
	s.Phase = PhaseDistributionEnded
	return nil
}

func applySeedBlockFixed(s *State, e ir.Event) *Error {
	if err := expectPhase(s, e, PhaseDistributionEnded); err != nil {
		return err
	}
	n, ok := e.Payload.Int(keyBlockNumber)
	if !ok || n < 0 {
		return corrupt(e.Seq, "invalid block number")
	}
	s.SeedBlockNumber = uint64(n)
	s.SeedBlockFixed = true
	s.Phase = PhaseAwaitingAutomaticSeed
	return nil
}

func applyAutomaticSeed(cfg Config, s *State, e ir.Event, at time.Time) *Error {
	if err := expectPhase(s, e, PhaseAwaitingAutomaticSeed); err != nil {
		return err
	}
	if n, _ := e.Payload.Int(keyBlockNumber); n < 0 || uint64(n) != s.SeedBlockNumber {
		return corrupt(e.Seq, "block number %d, want %d", n, s.SeedBlockNumber)
	}
	blockHash, err := payloadHash(e, keyBlockHash)
	if err != nil {
		return err
	}
	auto := seed.AutomaticSeed(blockHash)
	if err := expectHash(e, keyAutomaticSeed, auto); err != nil {
		return err
	}
	deadline := at.Add(cfg.GuardianWindow)
	if got, _ := e.Payload.Int(keyGuardianDeadline); got != deadline.Unix() {
		return corrupt(e.Seq, "guardian deadline %d, want %d", got, deadline.Unix())
	}
	s.BlockHash = &blockHash
	s.AutomaticSeed = &auto
	s.GuardianDeadline = deadline
	s.Phase = PhaseAwaitingGuardianSeed
	return nil
}

func applyGuardianSeed(cfg Config, s *State, e ir.Event, at time.Time) *Error {
	if err := expectPhase(s, e, PhaseAwaitingGuardianSeed); err != nil {
		return err
	}
	if !at.Before(s.GuardianDeadline) {
		return corrupt(e.Seq, "guardian seed accepted at %s, deadline %s", at, s.GuardianDeadline)
	}
	guardian, err := payloadHash(e, keyGuardianSeed)
	if err != nil {
		return err
	}
	if !seed.Verify(guardian, cfg.GuardianSeedHash) {
		return corrupt(e.Seq, "guardian seed does not match commitment")
	}
	final := seed.Combine(*s.AutomaticSeed, guardian)
	if err := expectHash(e, keyFinalSeed, final); err != nil {
		return err
	}
	s.GuardianSeed = &guardian
	s.FinalSeed = &final
	s.Phase = PhaseFinalized
	return nil
}

func applyFallback(s *State, e ir.Event, at time.Time) *Error {
	if err := expectPhase(s, e, PhaseAwaitingGuardianSeed); err != nil {
		return err
	}
	if at.Before(s.GuardianDeadline) {
		return corrupt(e.Seq, "fallback at %s before deadline %s", at, s.GuardianDeadline)
	}
	final := seed.Fallback(*s.AutomaticSeed)
	if err := expectHash(e, keyFinalSeed, final); err != nil {
		return err
	}
	s.FinalSeed = &final
	s.Phase = PhaseFinalizedFallback
	return nil
}

func payloadHash(e ir.Event, key string) (seed.Hash, *Error) {
	str, ok := e.Payload.String(key)
	if !ok {
		return seed.Hash{}, corrupt(e.Seq, "%s missing", key)
	}
	h, err := seed.ParseHash(str)
	if err != nil {
		return seed.Hash{}, corrupt(e.Seq, "%s: %v", key, err)
	}
	return h, nil
}

func expectHash(e ir.Event, key string, want seed.Hash) *Error {
	got, err := payloadHash(e, key)
	if err != nil {
		return err
	}
	if got != want {
		return corrupt(e.Seq, "%s %s, want %s", key, got.Hex(), want.Hex())
	}
	return nil
}
