package testutil

import (
	"testing"

	"github.com/roach88/fairseed/internal/seed"
	"github.com/stretchr/testify/require"
)

// GuardianPassword is the password used by Guardian when none is given.
const GuardianPassword = "dGVzdC1ndWFyZGlhbi1wYXNzd29yZC0wMDE="

// Guardian derives the guardian commitment chain for password, failing the
// test on error. An empty password means GuardianPassword.
func Guardian(t testing.TB, password string) *seed.Commitment {
	t.Helper()
	if password == "" {
		password = GuardianPassword
	}
	c, err := seed.CommitmentFromPassword(password)
	require.NoError(t, err)
	return c
}
