package seed

import "errors"

var (
	// ErrInvalidHash indicates a value is not a 32-byte hex string.
	ErrInvalidHash = errors.New("seed: invalid hash")

	// ErrEmptyPassword indicates an empty guardian password.
	ErrEmptyPassword = errors.New("seed: empty password")
)
