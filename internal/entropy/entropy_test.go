package entropy

import (
	"github.com/stretchr/testify/require"
	"testing"
)

// TestSystem_Uint64 draws distinct seeds from the OS.
func TestSystem_Uint64(t *testing.T) {
	var src Source = System{}
	seen := make(map[uint64]struct{})
	for i := 0; i < 32; i++ {
		v, err := src.Uint64()
		require.NoError(t, err)
		seen[v] = struct{}{}
	}
	require.Greater(t, len(seen), 30)
}

// TestFixed_Uint64 always returns the pinned seed.
func TestFixed_Uint64(t *testing.T) {
	var src Source = Fixed(42)
	for i := 0; i < 3; i++ {
		v, err := src.Uint64()
		require.NoError(t, err)
		require.Equal(t, uint64(42), v)
	}
}

// TestSequence_Exhausts returns seeds in order, then an error.
func TestSequence_Exhausts(t *testing.T) {
	src := NewSequence(1, 2)
	v, err := src.Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
	v, err = src.Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(2), v)
	_, err = src.Uint64()
	require.Error(t, err)
}
