package chain

import "errors"

var (
	// ErrHashChanged is returned when a node reports a different hash for a
	// block that was already pinned, which indicates a reorg past the block.
	ErrHashChanged = errors.New("chain: block hash changed since it was pinned")

	// ErrNilClient is returned when an EthSource is built without a client.
	ErrNilClient = errors.New("chain: nil client")
)
