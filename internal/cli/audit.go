package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fairseed/internal/chain"
	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/store"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Database string
}

// AuditEntry is the audit outcome of one distribution.
type AuditEntry struct {
	ID         string `json:"id"`
	Events     int    `json:"events"`
	Phase      string `json:"phase,omitempty"`
	FinalSeed  string `json:"final_seed,omitempty"`
	SeedSource string `json:"seed_source,omitempty"` // guardian or fallback
	Valid      bool   `json:"valid"`
	Problem    string `json:"problem,omitempty"`
}

// AuditResult holds the overall audit result.
type AuditResult struct {
	Distributions []AuditEntry `json:"distributions"`
	AllValid      bool         `json:"all_valid"`
}

func (r AuditResult) String() string {
	var b strings.Builder
	for _, d := range r.Distributions {
		if d.Valid {
			fmt.Fprintf(&b, "✓ %s: %d events, phase %s", d.ID, d.Events, d.Phase)
			if d.FinalSeed != "" {
				fmt.Fprintf(&b, ", final seed %s (%s)", d.FinalSeed, d.SeedSource)
			}
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "✗ %s: %s\n", d.ID, d.Problem)
	}
	if r.AllValid {
		b.WriteString("All journals verified.")
	} else {
		b.WriteString("Journal verification failed.")
	}
	return b.String()
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit [distribution-id]",
		Short: "Verify stored journals",
		Long: `Replay stored journals and verify them.

For each distribution this checks the stored config hash, every event ID,
the seq order and every derived value: the automatic seed from the block
hash, the guardian seed against the commitment and the final seed from its
inputs. Without an ID, every distribution is audited.

Exit codes:
  0 - All journals verified
  1 - At least one journal failed verification
  2 - Command error (database not found, etc.)

Examples:
  fairseed audit --db ./fairseed.db
  fairseed audit --db ./fairseed.db drop-2024 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, args, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)

	return cmd
}

func runAudit(opts *AuditOptions, args []string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var ids []string
	if len(args) == 1 {
		ids = args
	} else {
		summaries, err := st.ListDistributions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list distributions", err)
		}
		for _, s := range summaries {
			ids = append(ids, s.ID)
		}
	}

	f := opts.formatter(cmd)
	result := AuditResult{Distributions: make([]AuditEntry, 0, len(ids)), AllValid: true}
	for _, id := range ids {
		f.VerboseLog("auditing %s", id)
		entry, err := auditDistribution(ctx, st, id)
		if err != nil {
			return err
		}
		result.AllValid = result.AllValid && entry.Valid
		result.Distributions = append(result.Distributions, entry)
	}

	if err := f.Success(result); err != nil {
		return err
	}
	if !result.AllValid {
		return NewExitError(ExitFailure, "journal verification failed")
	}
	return nil
}

// auditDistribution replays one journal without attaching it, so nothing is
// written. Only command errors are returned; verification failures are
// reported in the entry.
func auditDistribution(ctx context.Context, st *store.Store, id string) (AuditEntry, error) {
	entry := AuditEntry{ID: id}

	journal, err := st.LoadJournal(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return entry, NewExitError(ExitCommandError, fmt.Sprintf("distribution not found: %s", id))
		}
		return entry, WrapExitError(ExitCommandError, "failed to load journal", err)
	}
	entry.Events = len(journal.Events)

	cfg, err := engine.ConfigFromIR(journal.Record.Config)
	if err != nil {
		entry.Problem = err.Error()
		return entry, nil
	}
	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		return entry, WrapExitError(ExitCommandError, "failed to hash configuration", err)
	}
	if fingerprint != journal.Record.ConfigHash {
		entry.Problem = fmt.Sprintf("config hash %s does not match stored %s", fingerprint, journal.Record.ConfigHash)
		return entry, nil
	}

	// Replay never consults the entropy source; every value comes from the journal.
	eng, err := engine.Restore(id, cfg, chain.NewStaticSource(0), journal.Events)
	if err != nil {
		entry.Problem = err.Error()
		return entry, nil
	}

	state := eng.Snapshot()
	entry.Valid = true
	entry.Phase = state.Phase.String()
	if state.FinalSeed != nil {
		entry.FinalSeed = state.FinalSeed.Hex()
		entry.SeedSource = "guardian"
		if state.Phase == engine.PhaseFinalizedFallback {
			entry.SeedSource = "fallback"
		}
	}
	return entry, nil
}
