package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fairseed/internal/engine"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.DistributionID)
}

func TestOutputFormatter_JSONSuccessFor(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.SuccessFor("drop-1", map[string]int{"minted": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "drop-1", resp.DistributionID)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E_INVALID_CONFIG", "max_supply must be positive", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_INVALID_CONFIG", resp.Error.Code)
	assert.Equal(t, "max_supply must be positive", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("All journals verified.")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "All journals verified.")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	details := map[string]string{"file": "distribution.yaml"}
	err := formatter.Error("E_INVALID_CONFIG", "invalid configuration", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E_INVALID_CONFIG]")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "distribution.yaml"}
	err := formatter.Error("E_INVALID_CONFIG", "invalid configuration", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E_INVALID_CONFIG]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Rejected(t *testing.T) {
	rejection := fmt.Errorf("mint: %w", engine.ErrDistributionClosed)

	t.Run("json engine error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}

		err := formatter.Rejected("drop-1", rejection)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "drop-1", resp.DistributionID)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "DISTRIBUTION_CLOSED", resp.Error.Code)
	})

	t.Run("text engine error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		err := formatter.Rejected("drop-1", rejection)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.ErrorIs(t, err, engine.ErrDistributionClosed)
		assert.Empty(t, buf.String())
	})

	t.Run("other error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}

		err := formatter.Rejected("drop-1", errors.New("disk full"))
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Empty(t, buf.String())
	})
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("auditing %s", "drop-1")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "auditing drop-1")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestExitError(t *testing.T) {
	plain := NewExitError(ExitCommandError, "database not found")
	assert.Equal(t, "database not found", plain.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(plain))

	cause := errors.New("permission denied")
	wrapped := WrapExitError(ExitFailure, "failed to open database", cause)
	assert.Equal(t, "failed to open database: permission denied", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	assert.Equal(t, ExitFailure, GetExitCode(errors.New("anything")))
}
