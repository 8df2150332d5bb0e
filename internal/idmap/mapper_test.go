package idmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherrors "github.com/prepstack/identity-core/errors"
	"github.com/prepstack/identity-core/internal/idmap"
)

func TestMap_Deterministic(t *testing.T) {
	first, err := idmap.Map("user_12345")
	require.NoError(t, err)
	assert.Len(t, first.String(), 36)

	for i := 0; i < 1000; i++ {
		got, err := idmap.Map("user_12345")
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestMap_DistinctInputs(t *testing.T) {
	a, err := idmap.Map("user_a")
	require.NoError(t, err)
	b, err := idmap.Map("user_b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestMap_TrimsWhitespace(t *testing.T) {
	plain, err := idmap.Map("user_12345")
	require.NoError(t, err)
	padded, err := idmap.Map("  user_12345  ")
	require.NoError(t, err)
	assert.Equal(t, plain, padded)
}

func TestMap_EmptyInputIsHardFailure(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		id, err := idmap.Map(input)
		require.ErrorIs(t, err, autherrors.ErrDeterministicMapping)
		assert.Equal(t, "00000000-0000-0000-0000-000000000000", id.String())
	}
}

func TestMap_VersionAndVariant(t *testing.T) {
	id, err := idmap.Map("user_12345")
	require.NoError(t, err)
	// Name-based SHA-1 UUIDs are version 5.
	assert.Equal(t, 5, int(id.Version()))
}
