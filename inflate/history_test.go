package inflate

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkCopy(t *testing.T, h *ByteHistory, dist int, expected ...byte) {
	t.Helper()

	var out bytes.Buffer

	require.NoError(t, h.Copy(dist, len(expected), &out))
	assert.Equal(t, expected, out.Bytes())
}

func TestByteHistoryTiny(t *testing.T) {
	h := NewByteHistory(1)
	h.Append(8)

	checkCopy(t, h, 1, 8)
	checkCopy(t, h, 1, 8, 8)
}

func TestByteHistorySmall(t *testing.T) {
	h := NewByteHistory(5)

	for _, b := range []byte{2, 7, 1, 8, 3, 4} {
		h.Append(b)
	}

	checkCopy(t, h, 3, 8)
	checkCopy(t, h, 5, 1, 8, 3, 4, 8)
	checkCopy(t, h, 2, 4, 8, 4, 8, 4, 8, 4)
}

func TestByteHistoryOverlappingRun(t *testing.T) {
	// A single primed byte copied with count > dist replicates itself.
	h := NewByteHistory(historySize)
	h.Append(0x41)

	var out bytes.Buffer

	require.NoError(t, h.Copy(1, 10, &out))
	assert.Equal(t, bytes.Repeat([]byte{0x41}, 10), out.Bytes())
}

func TestByteHistoryInvalidArgs(t *testing.T) {
	h := NewByteHistory(5)
	h.Append(1)

	var out bytes.Buffer

	// Zero distance.
	err := h.Copy(0, 1, &out)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))

	// Negative count.
	err = h.Copy(1, -1, &out)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))

	// Distance beyond the bytes written so far.
	err = h.Copy(2, 1, &out)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))

	// Distance beyond capacity, even after the window fills.
	for i := 0; i < 10; i++ {
		h.Append(byte(i))
	}

	err = h.Copy(6, 1, &out)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
}

func TestByteHistoryZeroCountCopy(t *testing.T) {
	h := NewByteHistory(5)
	h.Append(1)

	var out bytes.Buffer

	require.NoError(t, h.Copy(1, 0, &out))
	assert.Equal(t, 0, out.Len())
}

func TestByteHistoryRandomly(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 300; i++ {
		// Compare against a naive flat buffer holding the whole stream.
		size := rng.Intn(300) + 1
		h := NewByteHistory(size)
		maxCopy := size * 2
		buf := make([]byte, 0, 10000)

		for j := 0; j < size; j++ {
			b := byte(rng.Intn(256))
			buf = append(buf, b)
			h.Append(b)
		}

		for len(buf) < cap(buf) {
			if rng.Intn(size) == 0 {
				if cap(buf)-len(buf) < maxCopy {
					break
				}

				dist := rng.Intn(size) + 1
				count := rng.Intn(maxCopy)

				expected := make([]byte, 0, count)
				for j := 0; j < count; j++ {
					b := buf[len(buf)-dist]
					buf = append(buf, b)
					expected = append(expected, b)
				}

				var out bytes.Buffer

				require.NoError(t, h.Copy(dist, count, &out))
				require.Equal(t, expected, out.Bytes())
			} else {
				b := byte(rng.Intn(256))
				buf = append(buf, b)
				h.Append(b)
			}
		}
	}
}
