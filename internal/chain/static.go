package chain

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/seed"
)

// StaticSource is an in-memory chain. Blocks exist once mined or set.
//
// Thread-safety: StaticSource is safe for concurrent use via internal mutex.
type StaticSource struct {
	mu     sync.Mutex
	head   uint64
	hashes map[uint64]seed.Hash
}

var _ engine.EntropySource = (*StaticSource)(nil)

// NewStaticSource creates a chain whose current head is head.
func NewStaticSource(head uint64) *StaticSource {
	return &StaticSource{head: head, hashes: make(map[uint64]seed.Hash)}
}

// BlockHash returns the deterministic hash Mine assigns to block n.
func BlockHash(n uint64) seed.Hash {
	var num [8]byte
	binary.BigEndian.PutUint64(num[:], n)
	return seed.Keccak256([]byte("fairseed/static-block"), num[:])
}

// Head returns the current head.
func (s *StaticSource) Head() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// Mine appends one block with hash BlockHash(head+1) and returns it.
func (s *StaticSource) Mine() (uint64, seed.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head++
	h := BlockHash(s.head)
	s.hashes[s.head] = h
	return s.head, h
}

// SetHash records h as the hash of block n and moves the head to n if it is
// behind.
func (s *StaticSource) SetHash(n uint64, h seed.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[n] = h
	if n > s.head {
		s.head = n
	}
}

// Future implements engine.EntropySource.
func (s *StaticSource) Future(ctx context.Context) (engine.PendingReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.PendingReference{BlockNumber: s.head + 1}, nil
}

// Resolve implements engine.EntropySource.
func (s *StaticSource) Resolve(ctx context.Context, ref engine.PendingReference) (seed.Hash, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[ref.BlockNumber]
	return h, ok, nil
}
