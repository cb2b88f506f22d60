package testutil

import (
	"testing"

	"github.com/roach88/fairseed/internal/seed"
	"github.com/stretchr/testify/assert"
)

func TestGuardian_Deterministic(t *testing.T) {
	a := Guardian(t, "")
	b := Guardian(t, GuardianPassword)

	assert.Equal(t, a.Hash, b.Hash)
	assert.True(t, seed.Verify(a.Seed, a.Hash))
}

func TestGuardian_DistinctPasswords(t *testing.T) {
	a := Guardian(t, "one")
	b := Guardian(t, "two")

	assert.NotEqual(t, a.Hash, b.Hash)
}
