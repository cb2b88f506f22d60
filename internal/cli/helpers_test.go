package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fairseed/internal/seed"
	"github.com/roach88/fairseed/internal/testutil"
)

// cliEnv runs commands against one database with a fake clock.
type cliEnv struct {
	t        *testing.T
	dir      string
	db       string
	clock    *testutil.FakeClock
	root     *RootOptions
	guardian *seed.Commitment
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	clock := testutil.NewFakeClock(time.Time{})
	return &cliEnv{
		t:        t,
		dir:      dir,
		db:       filepath.Join(dir, "fairseed.db"),
		clock:    clock,
		root:     &RootOptions{Format: "json", LogWriter: io.Discard, Clock: clock},
		guardian: testutil.Guardian(t, ""),
	}
}

// writeConfig writes a YAML configuration committing to the test guardian.
func (e *cliEnv) writeConfig(windowSeconds, durationSeconds int64, supply uint64) string {
	e.t.Helper()
	path := filepath.Join(e.dir, fmt.Sprintf("distribution-%d.yaml", supply))
	content := fmt.Sprintf(`guardian_seed_hash: %q
guardian_window_seconds: %d
max_distribution_seconds: %d
max_supply: %d
`, e.guardian.Hash.Hex(), windowSeconds, durationSeconds, supply)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes the command built by newCmd with --db and args.
func (e *cliEnv) run(newCmd func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	e.t.Helper()
	return execute(newCmd(e.root), append([]string{"--db", e.db}, args...)...)
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// mustRun runs a command that must succeed and returns its JSON data.
func (e *cliEnv) mustRun(newCmd func(*RootOptions) *cobra.Command, args ...string) map[string]any {
	e.t.Helper()
	out, err := e.run(newCmd, args...)
	require.NoError(e.t, err, out)
	resp := decodeResponse(e.t, out)
	require.Equal(e.t, "ok", resp.Status, out)
	data, ok := resp.Data.(map[string]any)
	require.True(e.t, ok, "data is not an object: %s", out)
	return data
}

// mustReject runs a command that must be rejected by the engine and returns
// the error code.
func (e *cliEnv) mustReject(newCmd func(*RootOptions) *cobra.Command, args ...string) string {
	e.t.Helper()
	out, err := e.run(newCmd, args...)
	require.Error(e.t, err)
	require.Equal(e.t, ExitFailure, GetExitCode(err), err.Error())
	resp := decodeResponse(e.t, out)
	require.Equal(e.t, "error", resp.Status)
	require.NotNil(e.t, resp.Error)
	return resp.Error.Code
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}
