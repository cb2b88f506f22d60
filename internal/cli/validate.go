package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fairseed/internal/config"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidateView summarizes a valid configuration.
type ValidateView struct {
	Path       string `json:"path"`
	ConfigHash string `json:"config_hash"`
}

func (v ValidateView) String() string {
	return fmt.Sprintf("✓ %s is valid (config hash %s)", v.Path, v.ConfigHash)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a distribution configuration",
		Long: `Validate a distribution configuration (.yaml, .yml or .cue) against the
schema and print its config hash.

Exit codes:
  0 - Configuration is valid
  1 - Configuration is invalid
  2 - Command error (file not found, unknown extension)

Examples:
  fairseed validate distribution.yaml
  fairseed validate distribution.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if _, err := config.FormatOf(path); err != nil {
		return WrapExitError(ExitCommandError, "unsupported configuration file", err)
	}
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "cannot read configuration file", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		if f.Format == "json" {
			_ = f.Error("E_INVALID_CONFIG", err.Error(), nil)
		}
		return WrapExitError(ExitFailure, "invalid configuration", err)
	}

	hash, err := cfg.Fingerprint()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash configuration", err)
	}
	return f.Success(ValidateView{Path: path, ConfigHash: hash})
}
