package seqmap

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBuilder_InvalidBits(t *testing.T) {
	for _, bits := range []int{-1, 0, 17, 32, 64} {
		b, err := NewBuilder(bits)
		require.Nil(t, b, "bits=%d", bits)

		var ce *ConfigError
		require.ErrorAs(t, err, &ce, "bits=%d", bits)
		require.Equal(t, bits, ce.Bits)
	}
}

func TestNewBuilder_ValidBits(t *testing.T) {
	for _, bits := range []int{1, 2, 3, 5, 8, 16} {
		b, err := NewBuilder(bits)
		require.NoError(t, err, "bits=%d", bits)
		require.Equal(t, bits, b.Bits())
		require.Equal(t, 0, b.Len())
	}
}

func TestBuilder_LenAndContains(t *testing.T) {
	b, err := NewBuilder(4)
	require.NoError(t, err)

	b.Insert(1, "one")
	b.Insert(2, "two")
	b.Insert(1, "uno") // duplicate, ignored

	require.Equal(t, 2, b.Len())
	require.True(t, b.Contains(1))
	require.True(t, b.Contains(2))
	require.False(t, b.Contains(3))
}

func TestBuilder_UseAfterBuildPanics(t *testing.T) {
	b, err := NewBuilder(2)
	require.NoError(t, err)
	b.Insert(42, "Hello!")
	_ = b.Build()

	require.Panics(t, func() { b.Insert(1, "x") })
	require.Panics(t, func() { _ = b.Build() })
}

func TestBuilder_Deterministic(t *testing.T) {
	build := func() []byte {
		b, err := NewBuilder(3)
		require.NoError(t, err)
		for i := range uint64(100) {
			b.Insert(i*2654435761, "value")
		}
		return b.Build()
	}
	require.Equal(t, build(), build())
}

func TestBuilder_BuildLogging(t *testing.T) {
	var sb bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&sb, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	b, err := NewBuilder(2, WithLogger(logger))
	require.NoError(t, err)
	b.Insert(42, "Hello!")
	_ = b.Build()

	require.Contains(t, sb.String(), "image built")
	require.Contains(t, sb.String(), "keys=1")
}

func TestBuilder_OffsetLimitGuard(t *testing.T) {
	// Slot targets are uint32 offsets; a table or pool past 4 GiB would wrap
	// them silently, so Build refuses. Exercised directly because tripping it
	// through Insert takes a multi-gigabyte build.
	require.NotPanics(t, func() { checkOffsetLimits(1<<32-1, 1<<32-1) })
	require.Panics(t, func() { checkOffsetLimits(1<<32, 0) })
	require.Panics(t, func() { checkOffsetLimits(0, 1<<32) })
}

func TestBuilder_EmptyBuild(t *testing.T) {
	b, err := NewBuilder(2)
	require.NoError(t, err)

	image := b.Build()
	m, err := NewMap(image)
	require.NoError(t, err)

	_, ok := m.Get(0)
	require.False(t, ok)
	_, ok = m.Get(42)
	require.False(t, ok)
}

func TestBuilder_ValueInterning(t *testing.T) {
	shared, err := NewBuilder(8)
	require.NoError(t, err)
	distinct, err := NewBuilder(8)
	require.NoError(t, err)

	for i := range uint64(64) {
		shared.Insert(i, "shared-value")
		distinct.Insert(i, fmt.Sprintf("value-%02d", i))
	}

	imgShared := shared.Build()
	imgDistinct := distinct.Build()

	// Equal values collapse to a single pool entry, so the node tables are
	// the same size but the shared-value pool is one entry long.
	require.Greater(t, len(imgDistinct), len(imgShared))

	m, err := NewMap(imgShared)
	require.NoError(t, err)
	for i := range uint64(64) {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, "shared-value", v)
	}
}
