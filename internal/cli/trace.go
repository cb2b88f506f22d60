package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fairseed/internal/ir"
	"github.com/roach88/fairseed/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Type     string // optional - filter to one event type
}

// TraceEvent represents a single event in the journal timeline.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	Type    string      `json:"type"`
	ID      string      `json:"id"`
	At      string      `json:"at"`
	Payload ir.IRObject `json:"payload,omitempty"`
	payload string
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	DistributionID string       `json:"distribution_id"`
	ConfigHash     string       `json:"config_hash"`
	Timeline       []TraceEvent `json:"timeline"`
}

func (r TraceResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Distribution %s (config %s)\n", r.DistributionID, r.ConfigHash)
	for _, e := range r.Timeline {
		fmt.Fprintf(&b, "  [%d] %s %-24s %s\n", e.Seq, e.At, e.Type, e.payload)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <distribution-id>",
		Short: "Show the journal of a distribution",
		Long: `Show the journaled events of a distribution in seq order, with their
payloads as canonical JSON.

Examples:
  fairseed trace --db ./fairseed.db drop-2024
  fairseed trace --db ./fairseed.db drop-2024 --type mint_recorded
  fairseed trace --db ./fairseed.db drop-2024 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().StringVar(&opts.Type, "type", "", "show only events of this type")

	return cmd
}

func runTrace(opts *TraceOptions, id string, cmd *cobra.Command) error {
	if opts.Type != "" && !ir.ValidEventTypes[ir.EventType(opts.Type)] {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown event type %q", opts.Type))
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	journal, err := st.LoadJournal(commandContext(cmd), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("distribution not found: %s", id))
		}
		return WrapExitError(ExitCommandError, "failed to load journal", err)
	}

	result := TraceResult{
		DistributionID: id,
		ConfigHash:     journal.Record.ConfigHash,
		Timeline:       []TraceEvent{},
	}
	for _, e := range journal.Events {
		if opts.Type != "" && string(e.Type) != opts.Type {
			continue
		}
		payload, err := ir.MarshalCanonical(e.Payload)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render payload", err)
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:     e.Seq,
			Type:    string(e.Type),
			ID:      e.ID,
			At:      timeString(time.Unix(e.At, 0)),
			Payload: e.Payload,
			payload: string(payload),
		})
	}
	return opts.formatter(cmd).SuccessFor(id, result)
}
