package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/seed"
)

// withSession restores distribution id, runs fn against it and renders the
// result. Engine rejections exit with ExitFailure.
func withSession(cmd *cobra.Command, opts *SessionOptions, id string, fn func(ctx context.Context, eng *engine.Engine) (any, error)) error {
	ctx := commandContext(cmd)
	opts.readEntropyFlags(cmd)

	s, err := openSession(ctx, opts, id)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Error("error closing session", "error", closeErr)
		}
	}()

	out, err := fn(ctx, s.engine)
	if err != nil {
		return opts.formatter(cmd).Rejected(id, err)
	}
	return opts.formatter(cmd).SuccessFor(id, out)
}

func statusOf(eng *engine.Engine) StatusView {
	return newStatusView(eng.ID(), eng.Config(), eng.Snapshot())
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status <distribution-id>",
		Short: "Show the state of a distribution",
		Long: `Restore a distribution from its journal and show its phase, minted count,
deadlines and seeds.

Examples:
  fairseed status --db ./fairseed.db drop-2024
  fairseed status --db ./fairseed.db drop-2024 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, args[0], func(ctx context.Context, eng *engine.Engine) (any, error) {
				return statusOf(eng), nil
			})
		},
	}

	addDatabaseFlag(cmd, &opts.Database)

	return cmd
}

// NewMintCommand creates the mint command.
func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mint <distribution-id> <count>",
		Short: "Record minted units",
		Long: `Record count newly minted units. The mint that exhausts the supply, or
the first mint at or after the end of the distribution duration, also ends
the distribution.

Examples:
  fairseed mint --db ./fairseed.db drop-2024 3`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid count %q", args[1]), err)
			}
			return withSession(cmd, opts, args[0], func(ctx context.Context, eng *engine.Engine) (any, error) {
				if err := eng.RecordMint(ctx, count); err != nil {
					return nil, err
				}
				return statusOf(eng), nil
			})
		},
	}

	addDatabaseFlag(cmd, &opts.Database)

	return cmd
}

// CloseView is the close command output.
type CloseView struct {
	Closed bool       `json:"closed"`
	Status StatusView `json:"status"`
}

func (v CloseView) String() string {
	if v.Closed {
		return "Distribution closed.\n" + v.Status.String()
	}
	return "Distribution not closed.\n" + v.Status.String()
}

// NewCloseCommand creates the close command.
func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "close <distribution-id>",
		Short: "End minting once the duration has elapsed",
		Long: `End minting if the maximum distribution duration has elapsed. Anyone may
call this; it does nothing if minting already ended or the duration has not
elapsed.

Examples:
  fairseed close --db ./fairseed.db drop-2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, args[0], func(ctx context.Context, eng *engine.Engine) (any, error) {
				closed, err := eng.CloseIfExpired(ctx)
				if err != nil {
					return nil, err
				}
				return CloseView{Closed: closed, Status: statusOf(eng)}, nil
			})
		},
	}

	addDatabaseFlag(cmd, &opts.Database)

	return cmd
}

// FixBlockView is the fix-block command output.
type FixBlockView struct {
	BlockNumber uint64 `json:"block_number"`
	Phase       string `json:"phase"`
}

func (v FixBlockView) String() string {
	return fmt.Sprintf("Seed block fixed: %d (phase=%s)", v.BlockNumber, v.Phase)
}

// NewFixBlockCommand creates the fix-block command.
func NewFixBlockCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fix-block <distribution-id>",
		Short: "Fix the future block supplying the automatic seed",
		Long: `Fix the block whose hash becomes the automatic seed: the block after the
current chain head. Its hash is unknown to everyone when it is fixed.

The head comes from --rpc, or from --head when the chain is described by
hand. One of them is required; there is no default head.

Examples:
  fairseed fix-block --db ./fairseed.db --rpc https://rpc.example.org drop-2024
  fairseed fix-block --db ./fairseed.db --head 19000000 drop-2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.readEntropyFlags(cmd)
			if err := opts.checkCanFixBlock(); err != nil {
				return err
			}
			return withSession(cmd, opts, args[0], func(ctx context.Context, eng *engine.Engine) (any, error) {
				ref, err := eng.FixAutomaticSeedBlock(ctx)
				if err != nil {
					return nil, err
				}
				return FixBlockView{BlockNumber: ref.BlockNumber, Phase: eng.Phase().String()}, nil
			})
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	addEntropyFlags(cmd, opts)

	return cmd
}

// NewRevealCommand creates the reveal command.
func NewRevealCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reveal <distribution-id>",
		Short: "Reveal the automatic seed",
		Long: `Read the hash of the fixed block and reveal the automatic seed. This
starts the guardian window. Fails with ENTROPY_PENDING while the block does
not exist yet.

Examples:
  fairseed reveal --db ./fairseed.db --rpc https://rpc.example.org --confirmations 12 drop-2024
  fairseed reveal --db ./fairseed.db --block-hash 0x... drop-2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, args[0], func(ctx context.Context, eng *engine.Engine) (any, error) {
				auto, err := eng.RevealAutomaticSeed(ctx)
				if err != nil {
					return nil, err
				}
				return SeedView{Label: "Automatic seed", Seed: auto.Hex(), Phase: eng.Phase().String()}, nil
			})
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	addEntropyFlags(cmd, opts)

	return cmd
}

// SubmitSeedOptions holds flags for the submit-seed command.
type SubmitSeedOptions struct {
	SessionOptions
	Password string
	Seed     string
}

// NewSubmitSeedCommand creates the submit-seed command.
func NewSubmitSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitSeedOptions{SessionOptions: SessionOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "submit-seed <distribution-id>",
		Short: "Submit the guardian seed",
		Long: `Submit the guardian seed, given directly with --seed or derived from the
guardian password with --password. The seed must hash to the commitment and
arrive before the guardian deadline. On success the final seed is set.

Examples:
  fairseed submit-seed --db ./fairseed.db --password "$GUARDIAN_PASSWORD" drop-2024
  fairseed submit-seed --db ./fairseed.db --seed 0x... drop-2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := opts.guardianSeed()
			if err != nil {
				return err
			}
			return withSession(cmd, &opts.SessionOptions, args[0], func(ctx context.Context, eng *engine.Engine) (any, error) {
				final, err := eng.SubmitGuardianSeed(ctx, raw)
				if err != nil {
					return nil, err
				}
				return SeedView{Label: "Final seed", Seed: final.Hex(), Phase: eng.Phase().String()}, nil
			})
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().StringVar(&opts.Password, "password", "", "guardian password")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "guardian seed as 0x-prefixed hex")
	cmd.MarkFlagsMutuallyExclusive("password", "seed")
	cmd.MarkFlagsOneRequired("password", "seed")

	return cmd
}

func (o *SubmitSeedOptions) guardianSeed() (seed.Hash, error) {
	if o.Password != "" {
		return seed.SeedFromPassword(o.Password), nil
	}
	h, err := seed.ParseHash(o.Seed)
	if err != nil {
		return seed.Hash{}, WrapExitError(ExitCommandError, "invalid --seed", err)
	}
	return h, nil
}

// NewFallbackCommand creates the fallback command.
func NewFallbackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fallback <distribution-id>",
		Short: "Apply the fallback seed after the guardian window",
		Long: `Set the final seed from the automatic seed alone. Anyone may call this
once the guardian deadline has passed without a valid guardian seed.

Examples:
  fairseed fallback --db ./fairseed.db drop-2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, args[0], func(ctx context.Context, eng *engine.Engine) (any, error) {
				final, err := eng.ApplyFallbackSeed(ctx)
				if err != nil {
					return nil, err
				}
				return SeedView{Label: "Final seed", Seed: final.Hex(), Phase: eng.Phase().String()}, nil
			})
		},
	}

	addDatabaseFlag(cmd, &opts.Database)

	return cmd
}

// NewFinalSeedCommand creates the final-seed command.
func NewFinalSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "final-seed <distribution-id>",
		Short: "Print the final seed",
		Long: `Print the final seed. Fails with NOT_FINALIZED until the guardian seed or
the fallback has been applied.

Examples:
  fairseed final-seed --db ./fairseed.db drop-2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, args[0], func(ctx context.Context, eng *engine.Engine) (any, error) {
				final, err := eng.FinalSeed()
				if err != nil {
					return nil, err
				}
				return SeedView{Label: "Final seed", Seed: final.Hex(), Phase: eng.Phase().String()}, nil
			})
		},
	}

	addDatabaseFlag(cmd, &opts.Database)

	return cmd
}
