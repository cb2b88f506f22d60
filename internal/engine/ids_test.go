package engine

import (
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	id := UUIDv7Generator{}.Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, id)
}

func TestUUIDv7Generator_UniqueAndSortable(t *testing.T) {
	gen := UUIDv7Generator{}
	const iterations = 500

	ids := make([]string, 0, iterations)
	seen := make(map[string]bool, iterations)
	for i := 0; i < iterations; i++ {
		id := gen.Generate()
		require.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
		ids = append(ids, id)
	}
	assert.True(t, sort.StringsAreSorted(ids), "UUIDv7 ids sort by creation order")
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("dist-1", "dist-2")
	assert.Equal(t, "dist-1", gen.Generate())
	assert.Equal(t, "dist-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
