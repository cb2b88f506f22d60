package seed

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// Hash is a 32-byte keccak256 digest.
type Hash = common.Hash

// HashLength is the size of a Hash in bytes.
const HashLength = common.HashLength

// PasswordBytes is the number of random bytes behind a generated guardian
// password. The password itself is their standard base64 encoding.
const PasswordBytes = 24

// Keccak256 hashes the concatenation of parts.
func Keccak256(parts ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// SeedFromPassword derives the guardian seed from its password.
func SeedFromPassword(password string) Hash {
	return Keccak256([]byte(password))
}

// Commit returns the public commitment to a guardian seed.
func Commit(seed Hash) Hash {
	return Keccak256(seed[:])
}

// Verify reports whether seed opens commitment.
func Verify(seed, commitment Hash) bool {
	c := Commit(seed)
	return subtle.ConstantTimeCompare(c[:], commitment[:]) == 1
}

// AutomaticSeed derives the automatic entropy component from a block hash.
func AutomaticSeed(blockHash Hash) Hash {
	return Keccak256(blockHash[:])
}

// Combine derives the final seed from the automatic and guardian components.
func Combine(automatic, guardian Hash) Hash {
	return Keccak256(automatic[:], guardian[:])
}

// Fallback derives the final seed when the guardian never revealed. It is
// Combine with an all-zero guardian seed, so it depends on the automatic seed
// only.
func Fallback(automatic Hash) Hash {
	return Combine(automatic, Hash{})
}

// ParseHash decodes a 32-byte hex string, with or without the 0x prefix.
func ParseHash(s string) (Hash, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidHash, HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

// Commitment is the full guardian secret chain. Only Hash may be published
// before the distribution ends.
type Commitment struct {
	Password string
	Seed     Hash
	Hash     Hash
}

// NewCommitment generates a fresh guardian password from r and derives its
// seed and commitment.
func NewCommitment(r io.Reader) (*Commitment, error) {
	buf := make([]byte, PasswordBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("seed: read randomness: %w", err)
	}
	return CommitmentFromPassword(base64.StdEncoding.EncodeToString(buf))
}

// CommitmentFromPassword re-derives the commitment chain for an existing
// password.
func CommitmentFromPassword(password string) (*Commitment, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	s := SeedFromPassword(password)
	return &Commitment{Password: password, Seed: s, Hash: Commit(s)}, nil
}
