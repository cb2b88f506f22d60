package ir

// EventType names a state transition recorded in the journal.
type EventType string

const (
	// EventDistributionOpened is written once, at construction.
	EventDistributionOpened EventType = "distribution_opened"

	// EventMintRecorded is written for every accepted mint.
	EventMintRecorded EventType = "mint_recorded"

	// EventDistributionEnded closes minting (supply exhausted or duration elapsed).
	EventDistributionEnded EventType = "distribution_ended"

	// EventSeedBlockFixed pins the future block supplying automatic entropy.
	EventSeedBlockFixed EventType = "seed_block_fixed"

	// EventAutomaticSeedRevealed records the block hash and starts the guardian window.
	EventAutomaticSeedRevealed EventType = "automatic_seed_revealed"

	// EventGuardianSeedAccepted records the verified guardian seed and the final seed.
	EventGuardianSeedAccepted EventType = "guardian_seed_accepted"

	// EventFallbackApplied records the fallback final seed.
	EventFallbackApplied EventType = "fallback_applied"
)

// ValidEventTypes lists every event type the engine understands.
var ValidEventTypes = map[EventType]bool{
	EventDistributionOpened:    true,
	EventMintRecorded:          true,
	EventDistributionEnded:     true,
	EventSeedBlockFixed:        true,
	EventAutomaticSeedRevealed: true,
	EventGuardianSeedAccepted:  true,
	EventFallbackApplied:       true,
}

// Event is one journal entry. Events are append-only; replaying them in seq
// order reconstructs the distribution state exactly.
type Event struct {
	ID             string    `json:"id"` // Content-addressed, see EventID
	DistributionID string    `json:"distribution_id"`
	Seq            int64     `json:"seq"` // Per-distribution logical clock, starts at 1
	Type           EventType `json:"type"`
	At             int64     `json:"at"` // Unix seconds
	Payload        IRObject  `json:"payload"`
}

// DistributionRecord is the immutable registration of a distribution.
type DistributionRecord struct {
	ID         string   `json:"id"`
	Config     IRObject `json:"config"`
	ConfigHash string   `json:"config_hash"`
	CreatedAt  int64    `json:"created_at"` // Unix seconds
}
