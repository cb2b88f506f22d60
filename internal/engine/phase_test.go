package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase_TextRoundTrip(t *testing.T) {
	for p := PhaseActive; p <= PhaseFinalizedFallback; p++ {
		text, err := p.MarshalText()
		require.NoError(t, err)

		var got Phase
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, p, got)
	}

	_, err := ParsePhase("unknown")
	assert.Error(t, err)
	assert.Equal(t, "phase(42)", Phase(42).String())
}

func TestPhase_IsTerminal(t *testing.T) {
	assert.True(t, PhaseFinalized.IsTerminal())
	assert.True(t, PhaseFinalizedFallback.IsTerminal())
	assert.False(t, PhaseAwaitingGuardianSeed.IsTerminal())
	assert.False(t, PhaseActive.IsTerminal())
}

func TestError_IsComparesCodes(t *testing.T) {
	err := newError(ErrWindowOpen, PhaseAwaitingGuardianSeed, "open until %d", 5)
	wrapped := fmt.Errorf("fallback: %w", err)

	assert.True(t, errors.Is(wrapped, ErrWindowOpen))
	assert.False(t, errors.Is(wrapped, ErrWindowExpired))
	assert.Equal(t, ErrCodeWindowOpen, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, "WINDOW_OPEN: open until 5 (phase=awaiting_guardian_seed)", err.Error())
}

func TestIsPhaseError(t *testing.T) {
	assert.True(t, IsPhaseError(ErrAlreadyFixed))
	assert.True(t, IsPhaseError(ErrNotFinalized))
	assert.False(t, IsPhaseError(ErrCommitmentMismatch))
	assert.False(t, IsPhaseError(ErrJournal))
}
