// Package store provides SQLite-backed durable storage for distribution
// journals.
//
// The store is an append-only log with:
//   - Distributions: one registration per distribution, holding its
//     immutable configuration and config hash
//   - Events: the ordered transitions of each distribution
//
// # Guarantees
//
// Single writer per seq:
//   - UNIQUE(distribution_id, seq) constraint
//   - A second writer appending the same seq fails with ErrSeqConflict
//     instead of forking the journal
//
// Atomic transitions:
//   - AppendEvents writes all events of one transition in one transaction
//
// Deterministic reads:
//   - Event queries order by seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Payloads are stored as canonical JSON (see internal/ir), so the stored text
// hashes to the same event ID that was computed before the write.
package store
