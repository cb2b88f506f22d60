package chain

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/roach88/fairseed/internal/seed"
	"go.etcd.io/bbolt"
)

var bucketBlockHashes = []byte("block_hashes")

// BoltCache persists observed block hashes in a bbolt database.
//
// The first hash stored for a block number is kept forever; later Pin calls
// return it instead of overwriting it.
type BoltCache struct {
	db *bbolt.DB
}

// OpenBoltCache opens or creates the cache at path.
// The parent directory is created if it does not exist.
func OpenBoltCache(path string) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("chain: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketBlockHashes); err != nil {
			return fmt.Errorf("create bucket %q: %w", bucketBlockHashes, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("chain: create buckets: %w", err)
	}

	return &BoltCache{db: db}, nil
}

// Close closes the underlying database.
func (c *BoltCache) Close() error { return c.db.Close() }

// numberKey encodes a block number as an 8-byte big-endian key for sorted storage.
func numberKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

// Get returns the pinned hash of block n.
func (c *BoltCache) Get(n uint64) (seed.Hash, bool, error) {
	var (
		h     seed.Hash
		found bool
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketBlockHashes).Get(numberKey(n))
		if v == nil {
			return nil
		}
		if len(v) != seed.HashLength {
			return fmt.Errorf("chain: cached hash for block %d has %d bytes", n, len(v))
		}
		h = common.BytesToHash(v)
		found = true
		return nil
	})
	if err != nil {
		return seed.Hash{}, false, err
	}
	return h, found, nil
}

// Pin stores h as the hash of block n unless one is already stored, and
// returns the stored hash.
func (c *BoltCache) Pin(n uint64, h seed.Hash) (seed.Hash, error) {
	pinned := h
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBlockHashes)
		key := numberKey(n)
		if v := b.Get(key); v != nil {
			pinned = common.BytesToHash(v)
			return nil
		}
		if err := b.Put(key, h.Bytes()); err != nil {
			return fmt.Errorf("chain: put block %d: %w", n, err)
		}
		return nil
	})
	if err != nil {
		return seed.Hash{}, err
	}
	return pinned, nil
}
