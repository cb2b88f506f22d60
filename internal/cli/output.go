package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/fairseed/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected operation, failed scenario or failed audit
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure when err
// is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders command results as text or as a CLIResponse
// JSON document, one per line.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; Writer when nil
	Verbose   bool
}

// CLIResponse is the JSON document every command prints with --format json.
type CLIResponse struct {
	Status         string    `json:"status"` // "ok" or "error"
	Data           any       `json:"data,omitempty"`
	Error          *CLIError `json:"error,omitempty"`
	DistributionID string    `json:"distribution_id,omitempty"`
}

// CLIError describes a failure. Code is an engine error code such as
// SUPPLY_EXCEEDED, or an E_* code for CLI-level failures.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

func (f *OutputFormatter) emit(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success prints data: as the data of an ok response in JSON mode, through
// its String method otherwise.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessFor("", data)
}

// SuccessFor is Success for a result about one distribution.
func (f *OutputFormatter) SuccessFor(distributionID string, data any) error {
	if f.isJSON() {
		return f.emit(CLIResponse{Status: "ok", Data: data, DistributionID: distributionID})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Rejected reports a failed engine operation and returns the exit error for
// it. Engine rejections exit with ExitFailure; anything else is a command
// error. Text output is left to the caller's error printing.
func (f *OutputFormatter) Rejected(distributionID string, err error) error {
	code := engine.CodeOf(err)
	if code == "" {
		return WrapExitError(ExitCommandError, "operation failed", err)
	}
	if f.isJSON() {
		_ = f.emit(CLIResponse{
			Status:         "error",
			Error:          &CLIError{Code: string(code), Message: err.Error()},
			DistributionID: distributionID,
		})
	}
	return WrapExitError(ExitFailure, "operation rejected", err)
}

// Error prints a CLI-level error. Details are printed in text mode only with
// --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.emit(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line with --verbose. It goes to ErrWriter so
// JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
