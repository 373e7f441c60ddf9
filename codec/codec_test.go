package codec

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"none", "zstd", "lz4"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("gzip")
	assert.False(t, ok)
}

func TestCompressors_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	// Repetitive prefix plus random tail: both compressible and
	// incompressible regions in one payload.
	src := bytes.Repeat([]byte("seqmap"), 1000)
	tail := make([]byte, 4096)
	for i := range tail {
		tail[i] = byte(rng.Uint64())
	}
	src = append(src, tail...)

	for _, c := range []Compressor{None{}, Zstd{}, LZ4{}} {
		t.Run(c.Name(), func(t *testing.T) {
			enc, err := c.Compress(src)
			require.NoError(t, err)

			dec, err := c.Decompress(enc, len(src))
			require.NoError(t, err)
			require.Equal(t, src, dec)
		})
	}
}

func TestCompressors_Empty(t *testing.T) {
	for _, c := range []Compressor{None{}, Zstd{}, LZ4{}} {
		t.Run(c.Name(), func(t *testing.T) {
			enc, err := c.Compress(nil)
			require.NoError(t, err)

			dec, err := c.Decompress(enc, 0)
			require.NoError(t, err)
			assert.Empty(t, dec)
		})
	}
}

func TestZstd_ActuallyCompresses(t *testing.T) {
	src := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	enc, err := Zstd{}.Compress(src)
	require.NoError(t, err)
	assert.Less(t, len(enc), len(src)/10)
}
