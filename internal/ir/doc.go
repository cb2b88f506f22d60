// Package ir defines the records persisted by the distribution journal and
// the canonical encoding used to give them content-addressed identities.
//
// Payload values are restricted to string, int64, bool, arrays and objects.
// Floats and null are rejected so that the canonical form (RFC 8785) is
// unambiguous and hashes are reproducible across replays.
package ir
