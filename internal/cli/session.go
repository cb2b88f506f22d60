package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/fairseed/internal/chain"
	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/seed"
	"github.com/roach88/fairseed/internal/store"
)

// SessionOptions holds the flags shared by commands that act on a stored
// distribution.
type SessionOptions struct {
	*RootOptions
	Database string

	// Entropy source. With RPC set, block hashes come from the node;
	// otherwise Head and BlockHash describe the chain by hand. A seed block
	// is only fixed against a hand-described chain when --head was given
	// explicitly.
	RPC           string
	BlockCache    string
	Confirmations uint64
	Head          uint64
	BlockHash     string
	headSet       bool

	// Observer is attached to the restored engine, if set.
	Observer engine.Observer
}

func addDatabaseFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
}

func addEntropyFlags(cmd *cobra.Command, opts *SessionOptions) {
	cmd.Flags().StringVar(&opts.RPC, "rpc", "", "Ethereum JSON-RPC endpoint supplying block hashes")
	cmd.Flags().StringVar(&opts.BlockCache, "block-cache", "", "bbolt file pinning resolved block hashes (with --rpc)")
	cmd.Flags().Uint64Var(&opts.Confirmations, "confirmations", 0, "blocks required on top of the seed block (with --rpc)")
	cmd.Flags().Uint64Var(&opts.Head, "head", 0, "current chain head (without --rpc)")
	cmd.Flags().StringVar(&opts.BlockHash, "block-hash", "", "hash of the fixed seed block (without --rpc)")
}

// readEntropyFlags records which entropy flags were given on the command
// line.
func (o *SessionOptions) readEntropyFlags(cmd *cobra.Command) {
	o.headSet = cmd.Flags().Changed("head")
}

// checkCanFixBlock refuses to fix a seed block against a chain head nobody
// stated. A defaulted head would fix a long-public block and make the
// automatic seed predictable.
func (o *SessionOptions) checkCanFixBlock() error {
	if o.RPC == "" && !o.headSet {
		return NewExitError(ExitCommandError, "fixing the seed block requires --rpc, or --head to give the current chain head")
	}
	return nil
}

// session is a distribution restored from its journal, with the journal
// attached so new transitions are persisted.
type session struct {
	id      string
	opts    *SessionOptions
	logger  *slog.Logger
	store   *store.Store
	source  engine.EntropySource
	static  *chain.StaticSource
	engine  *engine.Engine
	closers []func() error
}

// Close releases the entropy source and the database.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// openStore opens the database named by --db.
func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// entropySource builds the source described by the entropy flags. The
// returned close function is never nil.
func entropySource(ctx context.Context, opts *SessionOptions, logger *slog.Logger) (engine.EntropySource, *chain.StaticSource, func() error, error) {
	if opts.RPC == "" {
		if opts.BlockCache != "" || opts.Confirmations != 0 {
			return nil, nil, nil, NewExitError(ExitCommandError, "--block-cache and --confirmations require --rpc")
		}
		static := chain.NewStaticSource(opts.Head)
		return static, static, func() error { return nil }, nil
	}
	if opts.headSet || opts.Head != 0 || opts.BlockHash != "" {
		return nil, nil, nil, NewExitError(ExitCommandError, "--head and --block-hash cannot be combined with --rpc")
	}

	ethOpts := []chain.EthOption{
		chain.WithConfirmations(opts.Confirmations),
		chain.WithSourceLogger(logger),
	}
	var cache *chain.BoltCache
	if opts.BlockCache != "" {
		var err error
		cache, err = chain.OpenBoltCache(opts.BlockCache)
		if err != nil {
			return nil, nil, nil, WrapExitError(ExitCommandError, "failed to open block cache", err)
		}
		ethOpts = append(ethOpts, chain.WithCache(cache))
	}

	src, closeClient, err := chain.DialEth(ctx, opts.RPC, ethOpts...)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to connect to node", err)
	}
	return src, nil, func() error {
		closeClient()
		if cache != nil {
			return cache.Close()
		}
		return nil
	}, nil
}

// engineOptions returns the options every CLI engine is built with.
func (o *SessionOptions) engineOptions(st *store.Store, logger *slog.Logger) []engine.Option {
	opts := []engine.Option{engine.WithJournal(st), engine.WithLogger(logger)}
	if o.Clock != nil {
		opts = append(opts, engine.WithClock(o.Clock))
	}
	if o.Observer != nil {
		opts = append(opts, engine.WithObserver(o.Observer))
	}
	return opts
}

// openSession opens the database and the entropy source and restores
// distribution id.
func openSession(ctx context.Context, opts *SessionOptions, id string) (*session, error) {
	logger := opts.logger()

	st, err := openStore(opts.Database)
	if err != nil {
		return nil, err
	}
	s := &session{id: id, opts: opts, logger: logger, store: st, closers: []func() error{st.Close}}

	src, static, closeSource, err := entropySource(ctx, opts, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.source, s.static = src, static
	s.closers = append(s.closers, closeSource)

	if err := s.restore(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// restore rebuilds the engine from the stored journal, picking up
// transitions written by other processes.
func (s *session) restore(ctx context.Context) error {
	journal, err := s.store.LoadJournal(ctx, s.id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("distribution not found: %s", s.id))
		}
		return WrapExitError(ExitCommandError, "failed to load journal", err)
	}
	cfg, err := engine.ConfigFromIR(journal.Record.Config)
	if err != nil {
		return WrapExitError(ExitFailure, "stored configuration is invalid", err)
	}

	eng, err := engine.Restore(s.id, cfg, s.source, journal.Events, s.opts.engineOptions(s.store, s.logger)...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to restore distribution", err)
	}

	if s.static != nil && s.opts.BlockHash != "" {
		state := eng.Snapshot()
		if !state.SeedBlockFixed {
			return NewExitError(ExitCommandError, "--block-hash given but no seed block is fixed yet")
		}
		h, err := seed.ParseHash(s.opts.BlockHash)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --block-hash", err)
		}
		s.static.SetHash(state.SeedBlockNumber, h)
	}

	s.engine = eng
	s.logger.Debug("distribution restored",
		"distribution", s.id,
		"events", len(journal.Events),
		"phase", eng.Phase().String())
	return nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
