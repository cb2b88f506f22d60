package engine

import (
	"context"

	"github.com/roach88/fairseed/internal/seed"
)

// PendingReference identifies a future block whose hash will supply the
// automatic seed.
type PendingReference struct {
	BlockNumber uint64
}

// EntropySource provides unpredictable future values.
//
// Future must return a reference that nobody, including the caller, can
// resolve yet; for a chain that is the block after the current head.
// Resolve returns ok=false while the referenced value does not exist.
type EntropySource interface {
	Future(ctx context.Context) (PendingReference, error)
	Resolve(ctx context.Context, ref PendingReference) (blockHash seed.Hash, ok bool, err error)
}
