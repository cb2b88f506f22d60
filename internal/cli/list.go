package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
}

// ListEntry summarizes one stored distribution.
type ListEntry struct {
	ID         string `json:"id"`
	ConfigHash string `json:"config_hash"`
	CreatedAt  string `json:"created_at"`
	Events     int64  `json:"events"`
	LastEvent  string `json:"last_event,omitempty"`
	LastAt     string `json:"last_at,omitempty"`
}

// ListView is the list command output.
type ListView struct {
	Distributions []ListEntry `json:"distributions"`
}

func (v ListView) String() string {
	if len(v.Distributions) == 0 {
		return "No distributions."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-7s %-24s %s\n", "ID", "EVENTS", "LAST EVENT", "LAST AT")
	for _, d := range v.Distributions {
		fmt.Fprintf(&b, "%-38s %-7d %-24s %s\n", d.ID, d.Events, d.LastEvent, d.LastAt)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored distributions",
		Long: `List every distribution in the database with its latest event.

Examples:
  fairseed list --db ./fairseed.db
  fairseed list --db ./fairseed.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	summaries, err := st.ListDistributions(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list distributions", err)
	}

	view := ListView{Distributions: make([]ListEntry, 0, len(summaries))}
	for _, s := range summaries {
		entry := ListEntry{
			ID:         s.ID,
			ConfigHash: s.ConfigHash,
			CreatedAt:  timeString(time.Unix(s.CreatedAt, 0)),
			Events:     s.EventCount,
			LastEvent:  string(s.LastType),
		}
		if s.EventCount > 0 {
			entry.LastAt = timeString(time.Unix(s.LastAt, 0))
		}
		view.Distributions = append(view.Distributions, entry)
	}
	return opts.formatter(cmd).Success(view)
}
