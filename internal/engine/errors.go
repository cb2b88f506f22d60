package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeInvalidConfig indicates malformed construction parameters.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrCodeInvalidMintCount indicates a mint of zero units.
	ErrCodeInvalidMintCount ErrorCode = "INVALID_MINT_COUNT"

	// ErrCodeSupplyExceeded indicates a mint would pass MaxSupply.
	ErrCodeSupplyExceeded ErrorCode = "SUPPLY_EXCEEDED"

	// ErrCodeDistributionClosed indicates a mint outside the Active phase.
	ErrCodeDistributionClosed ErrorCode = "DISTRIBUTION_CLOSED"

	// ErrCodeWrongPhase indicates an operation that is not legal in the current phase.
	ErrCodeWrongPhase ErrorCode = "WRONG_PHASE"

	// ErrCodeAlreadyFixed indicates the automatic seed block was already fixed.
	ErrCodeAlreadyFixed ErrorCode = "ALREADY_FIXED"

	// ErrCodeEntropyPending indicates the automatic seed block does not exist yet.
	ErrCodeEntropyPending ErrorCode = "ENTROPY_PENDING"

	// ErrCodeEntropyUnavailable indicates the entropy source failed.
	ErrCodeEntropyUnavailable ErrorCode = "ENTROPY_UNAVAILABLE"

	// ErrCodeWindowExpired indicates a guardian reveal at or after the deadline.
	ErrCodeWindowExpired ErrorCode = "WINDOW_EXPIRED"

	// ErrCodeWindowOpen indicates a fallback attempt before the deadline.
	ErrCodeWindowOpen ErrorCode = "WINDOW_OPEN"

	// ErrCodeCommitmentMismatch indicates a guardian seed that does not open the commitment.
	ErrCodeCommitmentMismatch ErrorCode = "COMMITMENT_MISMATCH"

	// ErrCodeAlreadyFinalized indicates the final seed is already set.
	ErrCodeAlreadyFinalized ErrorCode = "ALREADY_FINALIZED"

	// ErrCodeNotFinalized indicates the final seed is not set yet.
	ErrCodeNotFinalized ErrorCode = "NOT_FINALIZED"

	// ErrCodeJournal indicates the journal rejected the transition's events.
	ErrCodeJournal ErrorCode = "JOURNAL_WRITE_FAILED"

	// ErrCodeCorruptJournal indicates stored events that cannot be replayed.
	ErrCodeCorruptJournal ErrorCode = "CORRUPT_JOURNAL"
)

// Error is returned by every engine operation that fails.
//
// Match categories with errors.Is against the sentinels below (comparison is
// by Code) or extract the code with CodeOf.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Phase is the lifecycle phase observed when the operation failed.
	Phase Phase

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Phase != PhaseUnknown {
		msg += fmt.Sprintf(" (phase=%s)", e.Phase)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidConfig      = &Error{Code: ErrCodeInvalidConfig, Message: "invalid configuration"}
	ErrInvalidMintCount   = &Error{Code: ErrCodeInvalidMintCount, Message: "mint count must be positive"}
	ErrSupplyExceeded     = &Error{Code: ErrCodeSupplyExceeded, Message: "mint exceeds max supply"}
	ErrDistributionClosed = &Error{Code: ErrCodeDistributionClosed, Message: "distribution is closed"}
	ErrWrongPhase         = &Error{Code: ErrCodeWrongPhase, Message: "operation not allowed in this phase"}
	ErrAlreadyFixed       = &Error{Code: ErrCodeAlreadyFixed, Message: "automatic seed block already fixed"}
	ErrEntropyPending     = &Error{Code: ErrCodeEntropyPending, Message: "automatic seed block does not exist yet"}
	ErrEntropyUnavailable = &Error{Code: ErrCodeEntropyUnavailable, Message: "entropy source failed"}
	ErrWindowExpired      = &Error{Code: ErrCodeWindowExpired, Message: "guardian window has expired"}
	ErrWindowOpen         = &Error{Code: ErrCodeWindowOpen, Message: "guardian window is still open"}
	ErrCommitmentMismatch = &Error{Code: ErrCodeCommitmentMismatch, Message: "guardian seed does not match commitment"}
	ErrAlreadyFinalized   = &Error{Code: ErrCodeAlreadyFinalized, Message: "final seed already set"}
	ErrNotFinalized       = &Error{Code: ErrCodeNotFinalized, Message: "final seed not set"}
	ErrJournal            = &Error{Code: ErrCodeJournal, Message: "journal write failed"}
	ErrCorruptJournal     = &Error{Code: ErrCodeCorruptJournal, Message: "journal cannot be replayed"}
)

// CodeOf returns the ErrorCode carried by err, or "" if err is not an engine error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsPhaseError reports whether err is a phase-ordering violation: the caller
// should re-read the state before retrying.
func IsPhaseError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeDistributionClosed, ErrCodeWrongPhase, ErrCodeAlreadyFixed,
		ErrCodeAlreadyFinalized, ErrCodeNotFinalized, ErrCodeWindowExpired, ErrCodeWindowOpen:
		return true
	}
	return false
}

// newError builds an Error from a sentinel with a more specific message.
func newError(sentinel *Error, phase Phase, format string, args ...any) *Error {
	msg := sentinel.Message
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: sentinel.Code, Message: msg, Phase: phase}
}

// corrupt builds a CORRUPT_JOURNAL error for an event that cannot be applied.
func corrupt(seq int64, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeCorruptJournal,
		Message: fmt.Sprintf("event seq %d: %s", seq, fmt.Sprintf(format, args...)),
	}
}
