package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/seed"
)

// HeaderReader is the subset of ethclient.Client used by EthSource.
type HeaderReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// EthSource derives entropy from Ethereum block hashes.
//
// Future returns the block after the current head. Resolve returns a block's
// hash once the head is at least Confirmations blocks past it.
type EthSource struct {
	client        HeaderReader
	confirmations uint64
	cache         *BoltCache
	logger        *slog.Logger
}

var _ engine.EntropySource = (*EthSource)(nil)

// EthOption configures an EthSource.
type EthOption func(*EthSource)

// WithConfirmations sets how many blocks must be built on top of the seed
// block before it resolves. Default: 0.
func WithConfirmations(n uint64) EthOption {
	return func(s *EthSource) {
		s.confirmations = n
	}
}

// WithCache pins resolved hashes in c.
func WithCache(c *BoltCache) EthOption {
	return func(s *EthSource) {
		s.cache = c
	}
}

// WithSourceLogger sets the logger. Default: slog.Default().
func WithSourceLogger(l *slog.Logger) EthOption {
	return func(s *EthSource) {
		s.logger = l
	}
}

// NewEthSource wraps client.
func NewEthSource(client HeaderReader, opts ...EthOption) (*EthSource, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	s := &EthSource{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DialEth connects to a JSON-RPC endpoint. The returned close function
// releases the connection.
func DialEth(ctx context.Context, rawURL string, opts ...EthOption) (*EthSource, func(), error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: dial %s: %w", rawURL, err)
	}
	s, err := NewEthSource(client, opts...)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return s, client.Close, nil
}

// Future implements engine.EntropySource.
func (s *EthSource) Future(ctx context.Context) (engine.PendingReference, error) {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return engine.PendingReference{}, fmt.Errorf("chain: block number: %w", err)
	}
	return engine.PendingReference{BlockNumber: head + 1}, nil
}

// Resolve implements engine.EntropySource.
func (s *EthSource) Resolve(ctx context.Context, ref engine.PendingReference) (seed.Hash, bool, error) {
	if s.cache != nil {
		h, ok, err := s.cache.Get(ref.BlockNumber)
		if err != nil {
			return seed.Hash{}, false, err
		}
		if ok {
			return h, true, nil
		}
	}

	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return seed.Hash{}, false, fmt.Errorf("chain: block number: %w", err)
	}
	if head < ref.BlockNumber || head-ref.BlockNumber < s.confirmations {
		return seed.Hash{}, false, nil
	}

	header, err := s.client.HeaderByNumber(ctx, new(big.Int).SetUint64(ref.BlockNumber))
	if errors.Is(err, ethereum.NotFound) {
		return seed.Hash{}, false, nil
	}
	if err != nil {
		return seed.Hash{}, false, fmt.Errorf("chain: header %d: %w", ref.BlockNumber, err)
	}
	h := header.Hash()

	if s.cache != nil {
		pinned, err := s.cache.Pin(ref.BlockNumber, h)
		if err != nil {
			return seed.Hash{}, false, err
		}
		if pinned != h {
			s.logger.Warn("seed block hash differs from pinned hash",
				"block", ref.BlockNumber,
				"pinned", pinned.Hex(),
				"observed", h.Hex())
			return seed.Hash{}, false, fmt.Errorf("%w: block %d", ErrHashChanged, ref.BlockNumber)
		}
	}

	s.logger.Debug("seed block resolved", "block", ref.BlockNumber, "hash", h.Hex(), "head", head)
	return h, true, nil
}
