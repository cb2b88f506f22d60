package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fairseed/internal/chain"
	"github.com/roach88/fairseed/internal/config"
	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	SessionOptions
	ID string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{SessionOptions: SessionOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "init <config-file>",
		Short: "Register and open a distribution",
		Long: `Register a distribution with the given configuration and open it.

The configuration is validated, stored with its config hash, and the
distribution starts in the active phase. Under the deployment start policy
the distribution duration starts counting now.

Examples:
  fairseed init --db ./fairseed.db distribution.yaml
  fairseed init --db ./fairseed.db --id drop-2024 distribution.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().StringVar(&opts.ID, "id", "", "distribution ID (default: generated UUIDv7)")

	return cmd
}

func runInit(opts *InitOptions, path string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	logger := opts.logger()

	cfg, err := config.Load(path)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid configuration", err)
	}

	id := opts.ID
	if id == "" {
		ids := opts.IDs
		if ids == nil {
			ids = engine.UUIDv7Generator{}
		}
		id = ids.Generate()
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}
	rec, err := cfg.Record(id, clock.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build registration", err)
	}
	if err := st.WriteDistribution(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDistributionExists) {
			return NewExitError(ExitCommandError, fmt.Sprintf("distribution already exists: %s", id))
		}
		return WrapExitError(ExitCommandError, "failed to register distribution", err)
	}

	// Opening consults no entropy; later commands attach the real source.
	eng, err := engine.New(ctx, id, cfg, chain.NewStaticSource(0), opts.engineOptions(st, logger)...)
	if err != nil {
		if delErr := st.DeleteDistribution(ctx, id); delErr != nil {
			logger.Error("failed to remove registration", "distribution", id, "error", delErr)
		}
		return opts.formatter(cmd).Rejected(id, err)
	}

	logger.Info("distribution opened", "distribution", id, "config_hash", rec.ConfigHash)
	return opts.formatter(cmd).SuccessFor(id, newStatusView(id, eng.Config(), eng.Snapshot()))
}
