package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/metrics"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	SessionOptions
	Interval    time.Duration
	MetricsAddr string
	Once        bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{SessionOptions: SessionOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch <distribution-id>",
		Short: "Drive a distribution through its permissionless transitions",
		Long: `Poll a distribution and perform every transition anyone may perform:
close it once the duration has elapsed, fix the seed block, reveal the
automatic seed once the block exists, and apply the fallback seed once the
guardian window has passed. Minting and the guardian reveal stay with their
owners.

The journal is re-read on every tick, so other processes may act on the
same distribution concurrently. Watch stops once the final seed is set.

Fixing the seed block needs --rpc, or --head for a hand-described chain.
Without either, watch stops with an error once the distribution has ended
and the block would be fixed.

With --metrics-addr, engine activity is served in the Prometheus exposition
format at /metrics.

Examples:
  fairseed watch --db ./fairseed.db --rpc https://rpc.example.org --confirmations 12 drop-2024
  fairseed watch --db ./fairseed.db --rpc ws://localhost:8546 --metrics-addr :9090 drop-2024
  fairseed watch --db ./fairseed.db --head 19000000 --once drop-2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	addEntropyFlags(cmd, &opts.SessionOptions)
	cmd.Flags().DurationVar(&opts.Interval, "interval", 15*time.Second, "poll interval")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "perform at most one pass and exit")

	return cmd
}

func runWatch(opts *WatchOptions, id string, cmd *cobra.Command) error {
	if opts.Interval <= 0 {
		return NewExitError(ExitCommandError, "--interval must be positive")
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	recorder := metrics.NewRecorder()
	opts.Observer = recorder
	opts.readEntropyFlags(cmd)

	s, err := openSession(ctx, &opts.SessionOptions, id)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Error("error closing session", "error", closeErr)
		}
	}()
	logger := s.logger

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(opts.MetricsAddr, recorder, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer stop()
	}

	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}
	w := &watcher{session: s, clock: clock, logger: logger}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	logger.Info("watching distribution", "distribution", id, "interval", opts.Interval)
	for {
		done, err := w.tick(ctx)
		if err != nil {
			var exitErr *ExitError
			if errors.As(err, &exitErr) {
				return err
			}
			return opts.formatter(cmd).Rejected(id, err)
		}
		if done || opts.Once {
			return opts.formatter(cmd).SuccessFor(id, statusOf(s.engine))
		}

		select {
		case <-ctx.Done():
			logger.Info("watch stopped", "distribution", id)
			return nil
		case <-ticker.C:
		}
	}
}

// serveMetrics listens on addr and serves /metrics until stop is called.
func serveMetrics(addr string, recorder *metrics.Recorder, logger *slog.Logger) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

type watcher struct {
	session *session
	clock   engine.Clock
	logger  *slog.Logger
}

// tick reloads the journal if another process extended it, then performs
// the transition the current phase allows. It reports whether the
// distribution is finalized.
func (w *watcher) tick(ctx context.Context) (bool, error) {
	s := w.session
	seq, err := s.store.GetLastSeq(ctx, s.id)
	if err != nil {
		return false, WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if seq != s.engine.Snapshot().Seq {
		w.logger.Debug("journal changed, reloading", "distribution", s.id, "seq", seq)
		if err := s.restore(ctx); err != nil {
			return false, err
		}
	}

	done, err := w.advance(ctx, s.engine)
	switch {
	case err == nil:
		return done, nil
	case engine.CodeOf(err) == engine.ErrCodeJournal, engine.IsPhaseError(err):
		// Lost a race with another writer; the next tick reloads.
		w.logger.Warn("transition raced another writer", "distribution", s.id, "error", err)
		return false, nil
	case engine.CodeOf(err) == engine.ErrCodeEntropyUnavailable:
		w.logger.Warn("entropy source unavailable, retrying", "distribution", s.id, "error", err)
		return false, nil
	}
	return false, err
}

// advance performs the one permissionless transition the current phase
// allows, if it is due.
func (w *watcher) advance(ctx context.Context, eng *engine.Engine) (bool, error) {
	state := eng.Snapshot()
	switch state.Phase {
	case engine.PhaseActive:
		closed, err := eng.CloseIfExpired(ctx)
		if closed {
			w.logger.Info("distribution closed", "distribution", eng.ID(), "minted", state.MintedCount)
		}
		return false, err

	case engine.PhaseDistributionEnded:
		if err := w.session.opts.checkCanFixBlock(); err != nil {
			return false, err
		}
		ref, err := eng.FixAutomaticSeedBlock(ctx)
		if err == nil {
			w.logger.Info("seed block fixed", "distribution", eng.ID(), "block", ref.BlockNumber)
		}
		return false, err

	case engine.PhaseAwaitingAutomaticSeed:
		auto, err := eng.RevealAutomaticSeed(ctx)
		if errors.Is(err, engine.ErrEntropyPending) {
			w.logger.Debug("seed block pending", "distribution", eng.ID(), "block", state.SeedBlockNumber)
			return false, nil
		}
		if err == nil {
			w.logger.Info("automatic seed revealed", "distribution", eng.ID(), "seed", auto.Hex())
		}
		return false, err

	case engine.PhaseAwaitingGuardianSeed:
		if w.clock.Now().Before(state.GuardianDeadline) {
			return false, nil
		}
		final, err := eng.ApplyFallbackSeed(ctx)
		if err != nil {
			return false, err
		}
		w.logger.Info("fallback seed applied", "distribution", eng.ID(), "seed", final.Hex())
		return true, nil
	}

	return state.Phase.IsTerminal(), nil
}
