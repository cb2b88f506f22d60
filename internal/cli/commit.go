package cli

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fairseed/internal/config"
	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/seed"
)

// CommitOptions holds flags for the commit command.
type CommitOptions struct {
	*RootOptions
	Password string
	Config   string // write a configuration template here
	Force    bool   // replace an existing configuration file

	GuardianWindow time.Duration
	MaxDuration    time.Duration
	MaxSupply      uint64
	StartPolicy    string

	// Rand is the randomness for generated passwords (for testing).
	// If nil, defaults to crypto/rand.
	Rand io.Reader
}

// CommitView is the guardian's secret chain.
type CommitView struct {
	Password   string `json:"password"`
	Seed       string `json:"seed"`
	Commitment string `json:"commitment"`
	ConfigPath string `json:"config_path,omitempty"`
}

func (v CommitView) String() string {
	s := fmt.Sprintf("Password:   %s\nSeed:       %s\nCommitment: %s\n\nKeep the password secret until minting ends; publish only the commitment.",
		v.Password, v.Seed, v.Commitment)
	if v.ConfigPath != "" {
		s += "\nConfiguration written to " + v.ConfigPath
	}
	return s
}

// NewCommitCommand creates the commit command.
func NewCommitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Generate a guardian secret and its commitment",
		Long: `Generate a guardian password, derive its seed and print the commitment.

The password is 24 random bytes, base64 encoded. The seed is
keccak256(password) and the commitment is keccak256(seed). With --password,
the chain is re-derived for an existing password instead.

With --config, a distribution configuration carrying the commitment is
written as well. An existing file is never replaced unless --force is given,
since it may hold a commitment that has already been published.

Examples:
  fairseed commit
  fairseed commit --config distribution.yaml --supply 10000 --window 24h --duration 72h
  fairseed commit --password "$GUARDIAN_PASSWORD" --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "derive the chain for this password instead of generating one")
	cmd.Flags().StringVar(&opts.Config, "config", "", "write a configuration file (.yaml) with the commitment")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing --config file")
	cmd.Flags().DurationVar(&opts.GuardianWindow, "window", 24*time.Hour, "guardian window (with --config)")
	cmd.Flags().DurationVar(&opts.MaxDuration, "duration", 7*24*time.Hour, "maximum distribution duration (with --config)")
	cmd.Flags().Uint64Var(&opts.MaxSupply, "supply", 0, "maximum supply (required with --config)")
	cmd.Flags().StringVar(&opts.StartPolicy, "start-policy", string(engine.StartOnFirstMint), "first_mint or deployment (with --config)")

	return cmd
}

func runCommit(opts *CommitOptions, cmd *cobra.Command) error {
	var (
		c   *seed.Commitment
		err error
	)
	if opts.Password != "" {
		c, err = seed.CommitmentFromPassword(opts.Password)
	} else {
		r := opts.Rand
		if r == nil {
			r = rand.Reader
		}
		c, err = seed.NewCommitment(r)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to derive commitment", err)
	}

	view := CommitView{
		Password:   c.Password,
		Seed:       c.Seed.Hex(),
		Commitment: c.Hash.Hex(),
	}

	if opts.Config != "" {
		if format, err := config.FormatOf(opts.Config); err != nil || format != config.FormatYAML {
			return NewExitError(ExitCommandError, fmt.Sprintf("--config must name a .yaml file: %s", opts.Config))
		}
		cfg := engine.Config{
			GuardianSeedHash:        c.Hash,
			GuardianWindow:          opts.GuardianWindow,
			MaxDistributionDuration: opts.MaxDuration,
			MaxSupply:               opts.MaxSupply,
			StartPolicy:             engine.StartPolicy(opts.StartPolicy),
		}
		if err := cfg.Validate(); err != nil {
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		data, err := config.Marshal(cfg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render configuration", err)
		}
		if err := writeConfigFile(opts.Config, data, opts.Force); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists (use --force to replace it)", opts.Config))
			}
			return WrapExitError(ExitCommandError, "failed to write configuration", err)
		}
		view.ConfigPath = opts.Config
	}

	return opts.formatter(cmd).Success(view)
}

// writeConfigFile creates path with data. Unless force is set, an existing
// file is left untouched and an fs.ErrExist error is returned.
func writeConfigFile(path string, data []byte, force bool) error {
	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
