package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	want := []string{
		"commit", "validate", "init", "list", "status", "mint", "close",
		"fix-block", "reveal", "submit-seed", "fallback", "final-seed",
		"trace", "audit", "watch", "test",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	root := NewRootCommand()
	assert.NotNil(t, root.PersistentFlags().Lookup("format"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, root.PersistentFlags().ShorthandLookup("v"))
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	root := NewRootCommand()
	_, err := execute(root, "--format", "xml", "commit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
