// Package engine implements the distribution engine: the commit/reveal
// state machine that turns a guardian commitment and a future block hash into
// an unbiasable final seed.
//
// LIFECYCLE:
//
//	Active --(supply full | duration elapsed)--> DistributionEnded
//	DistributionEnded --(FixAutomaticSeedBlock)--> AwaitingAutomaticSeed
//	AwaitingAutomaticSeed --(RevealAutomaticSeed, block exists)--> AwaitingGuardianSeed
//	AwaitingGuardianSeed --(valid guardian seed, before deadline)--> Finalized
//	AwaitingGuardianSeed --(deadline passed)--> FinalizedFallback
//
// ORDERING GUARANTEES:
//
// The guardian commits before the distribution starts. The automatic seed
// block is fixed only after minting has ended, and it is always a block that
// does not exist yet when it is fixed. The guardian window opens only once
// that block hash is locked in. So minters cannot know the automatic entropy,
// whoever fixes the block cannot know it either, and the guardian cannot pick
// a seed after seeing it.
//
// FALLBACK:
//
// If the guardian does not reveal before the deadline, anyone may apply the
// fallback seed keccak256(automaticSeed || 0x00..00). This trades the
// guardian's contribution for liveness: the final seed then rests on the block
// hash alone, which a block producer could influence by withholding a block.
// That weakening is bounded to the unresponsive-guardian case.
//
// EVENT SOURCING:
//
// Every transition is expressed as one or more ir.Events. Live operations and
// Restore share a single apply path, so a state rebuilt from the journal is
// identical to the live state. A rejected operation builds no events and
// leaves the state untouched.
//
// CONCURRENCY:
//
// All operations on an Engine are serialized by a mutex. Conflicting callers
// observe the advanced phase and fail with a phase error. Waiting for time to
// pass or for a block to exist is the caller's job (see the watch command).
package engine
