package seqmap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func buildImage(t *testing.T, bits int, entries map[uint64]string) []byte {
	t.Helper()
	b, err := NewBuilder(bits)
	require.NoError(t, err)
	for k, v := range entries {
		b.Insert(k, v)
	}
	return b.Build()
}

func TestMap_DocumentedScenario(t *testing.T) {
	b, err := NewBuilder(2)
	require.NoError(t, err)

	b.Insert(42, "Hello!")
	b.Insert(42, "Wonderful!") // ignored: first insert wins
	b.Insert(84, "World!")

	m, err := NewMap(b.Build())
	require.NoError(t, err)

	v, ok := m.Get(42)
	require.True(t, ok)
	assert.Equal(t, "Hello!", v)

	v, ok = m.Get(84)
	require.True(t, ok)
	assert.Equal(t, "World!", v)

	_, ok = m.Get(100)
	assert.False(t, ok)
}

func TestMap_FirstInsertWins(t *testing.T) {
	b, err := NewBuilder(7)
	require.NoError(t, err)
	b.Insert(1, "first")
	b.Insert(1, "second")

	m, err := NewMap(b.Build())
	require.NoError(t, err)

	v, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestMap_EmptyStringIsFound(t *testing.T) {
	m, err := NewMap(buildImage(t, 4, map[uint64]string{7: ""}))
	require.NoError(t, err)

	v, ok := m.Get(7)
	require.True(t, ok, "empty value must be distinguishable from absence")
	assert.Equal(t, "", v)

	_, ok = m.Get(8)
	assert.False(t, ok)
}

func TestMap_RoundTrip_BitsSensitivity(t *testing.T) {
	// Exercise bits values that do and do not evenly divide 64. Wide
	// configurations get fewer keys to keep node records reasonable.
	cases := []struct {
		bits int
		keys int
	}{
		{bits: 1, keys: 500},
		{bits: 3, keys: 1000},
		{bits: 5, keys: 1000},
		{bits: 8, keys: 1000},
		{bits: 12, keys: 50},
		{bits: 16, keys: 5},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("bits=%d", tc.bits), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(42, uint64(tc.bits)))
			entries := make(map[uint64]string, tc.keys)
			for len(entries) < tc.keys {
				k := rng.Uint64()
				entries[k] = fmt.Sprintf("entry_%d", k)
			}

			m, err := NewMap(buildImage(t, tc.bits, entries))
			require.NoError(t, err)
			require.Equal(t, tc.bits, m.Bits())

			for k, want := range entries {
				v, ok := m.Get(k)
				require.True(t, ok, "key %d", k)
				require.Equal(t, want, v)
			}
			for range 100 {
				k := rng.Uint64()
				if _, inserted := entries[k]; inserted {
					continue
				}
				_, ok := m.Get(k)
				require.False(t, ok, "key %d was never inserted", k)
			}
		})
	}
}

func TestMap_LargeKeySetStress(t *testing.T) {
	for _, n := range []int{0, 1, 10, 1000, 20000} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(7, uint64(n)))
			entries := make(map[uint64]string, n)
			for len(entries) < n {
				k := rng.Uint64()
				entries[k] = fmt.Sprintf("v%d", k%1000)
			}

			m, err := NewMap(buildImage(t, 4, entries))
			require.NoError(t, err)

			for k, want := range entries {
				v, ok := m.Get(k)
				require.True(t, ok)
				require.Equal(t, want, v)
			}
		})
	}
}

func TestMap_AdjacentAndBoundaryKeys(t *testing.T) {
	entries := map[uint64]string{
		0:              "zero",
		1:              "one",
		2:              "two",
		0xFFFFFFFF:     "max32",
		^uint64(0):     "max64",
		^uint64(0) - 1: "almost",
		0x11:           "Yadda!",
		0x1111:         "Diddy!",
		0x111111:       "World!",
		0x22:           "Again!!",
	}
	for _, bits := range []int{1, 7, 8} {
		m, err := NewMap(buildImage(t, bits, entries))
		require.NoError(t, err)
		for k, want := range entries {
			v, ok := m.Get(k)
			require.True(t, ok, "bits=%d key=%#x", bits, k)
			require.Equal(t, want, v)
		}
	}
}

func TestNewMap_BadMagic(t *testing.T) {
	image := buildImage(t, 2, map[uint64]string{42: "Hello!"})
	image[0] ^= 0xFF

	_, err := NewMap(image)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestNewMap_BadVersion(t *testing.T) {
	image := buildImage(t, 2, map[uint64]string{42: "Hello!"})
	binary.LittleEndian.PutUint16(image[4:6], 99)

	_, err := NewMap(image)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, uint16(99), fe.Version)
}

func TestNewMap_BitsFieldTamper(t *testing.T) {
	image := buildImage(t, 2, map[uint64]string{42: "Hello!"})

	// A different but in-range bits value no longer matches the node table
	// extent, so the structural header check rejects it.
	image[6] = 3
	_, err := NewMap(image)
	require.Error(t, err)

	image[6] = 0
	_, err = NewMap(image)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestNewMap_Truncation(t *testing.T) {
	image := buildImage(t, 2, map[uint64]string{42: "Hello!", 84: "World!"})

	_, err := NewMap(image)
	require.NoError(t, err)

	for cut := 1; cut <= len(image); cut++ {
		_, err := NewMap(image[:len(image)-cut])
		var te *TruncatedError
		require.ErrorAs(t, err, &te, "cut=%d", cut)
	}
}

func TestNewMap_HeaderOverflow(t *testing.T) {
	// Extent fields are raw uint64s: crafted values near 2^64 must be
	// rejected at attach, not discovered as an index panic inside Get.
	t.Run("pool extent wraps past buffer", func(t *testing.T) {
		h := header{bits: 16, nodeCount: 0xFFFF, rootOff: headerSize}
		h.poolOff = headerSize + uint64(h.nodeCount)*h.nodeSize()
		h.poolLen = -h.poolOff // naive poolOff+poolLen sums to 0
		buf := h.append(nil)

		_, err := NewMap(buf)
		var te *TruncatedError
		require.ErrorAs(t, err, &te)
	})

	t.Run("pool length wraps", func(t *testing.T) {
		image := buildImage(t, 2, map[uint64]string{42: "Hello!"})
		binary.LittleEndian.PutUint64(image[32:40], ^uint64(0))

		_, err := NewMap(image)
		var te *TruncatedError
		require.ErrorAs(t, err, &te)
	})

	t.Run("root offset wraps", func(t *testing.T) {
		image := buildImage(t, 2, map[uint64]string{42: "Hello!"})
		// rootOff+nodeSize wraps to 16 and the node-table alignment still
		// holds, so only an overflow-aware bound rejects it.
		binary.LittleEndian.PutUint64(image[16:24], ^uint64(0)-15)

		_, err := NewMap(image)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
	})
}

func TestNewMap_TrailingSlackAllowed(t *testing.T) {
	// Page-aligned mappings may hand over more bytes than the image
	// declares; that is not truncation.
	image := buildImage(t, 2, map[uint64]string{42: "Hello!"})
	padded := append(append([]byte{}, image...), make([]byte, 128)...)

	m, err := NewMap(padded)
	require.NoError(t, err)
	v, ok := m.Get(42)
	require.True(t, ok)
	assert.Equal(t, "Hello!", v)
}

func TestMap_Verify(t *testing.T) {
	image := buildImage(t, 2, map[uint64]string{42: "Hello!"})

	m, err := NewMap(image)
	require.NoError(t, err)
	require.NoError(t, m.Verify())

	// Flip a payload byte: the O(1) attach still succeeds, Verify and the
	// opt-in verifying attach do not.
	image[len(image)-1] ^= 0xFF
	m, err = NewMap(image)
	require.NoError(t, err)

	var cme *ChecksumMismatchError
	require.ErrorAs(t, m.Verify(), &cme)

	_, err = NewMap(image, WithVerify())
	require.ErrorAs(t, err, &cme)
}

func TestMap_GetBytesAliasesImage(t *testing.T) {
	image := buildImage(t, 2, map[uint64]string{42: "Hello!"})
	m, err := NewMap(image)
	require.NoError(t, err)

	v, ok := m.GetBytes(42)
	require.True(t, ok)
	require.Equal(t, "Hello!", string(v))

	// Mutating the image through the original buffer must show through the
	// borrowed slice: GetBytes performs no copy.
	idx := bytes.Index(image, []byte("Hello!"))
	require.GreaterOrEqual(t, idx, 0)
	image[idx] = 'J'
	assert.Equal(t, "Jello!", string(v))
}

func TestMap_ConcurrentGet(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	entries := make(map[uint64]string, 2000)
	for len(entries) < 2000 {
		k := rng.Uint64()
		entries[k] = fmt.Sprintf("entry_%d", k)
	}
	keys := make([]uint64, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}

	m, err := NewMap(buildImage(t, 4, entries))
	require.NoError(t, err)

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for _, k := range keys {
				v, ok := m.Get(k)
				if !ok || v != entries[k] {
					return fmt.Errorf("key %d: got %q, %v", k, v, ok)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
