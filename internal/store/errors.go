package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a distribution does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDistributionExists is returned when registering an ID twice.
	ErrDistributionExists = errors.New("store: distribution already exists")

	// ErrSeqConflict is returned when an appended seq is already taken,
	// meaning another writer advanced the distribution first.
	ErrSeqConflict = errors.New("store: seq already written")
)

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY violation.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
