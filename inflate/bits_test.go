package inflate

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReaderReadBit(t *testing.T) {
	// 0x87 should read as 1,1,1,0,0,0,0,1 (LSB first).
	br := NewBitReader(bytes.NewReader([]byte{0x87}))

	expected := []int{1, 1, 1, 0, 0, 0, 0, 1}

	for i, want := range expected {
		bit, err := br.ReadBit()
		require.NoError(t, err, "bit %d", i)
		assert.Equal(t, want, bit, "bit %d", i)
	}

	_, err := br.ReadBit()
	assert.Equal(t, io.EOF, err)

	// End of stream is sticky.
	_, err = br.ReadBit()
	assert.Equal(t, io.EOF, err)
}

func TestBitReaderReadUint(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0x2C, 0x1A}))

	v, err := br.ReadUint(4)
	require.NoError(t, err)
	assert.Equal(t, 0xC, v)

	v, err = br.ReadUint(4)
	require.NoError(t, err)
	assert.Equal(t, 0x2, v)

	v, err = br.ReadUint(8)
	require.NoError(t, err)
	assert.Equal(t, 0x1A, v)
}

func TestBitReaderReadUintZeroWidth(t *testing.T) {
	br := NewBitReader(bytes.NewReader(nil))

	// Zero bits can always be read, even from an exhausted stream.
	v, err := br.ReadUint(0)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestBitReaderReadUintWidthOutOfRange(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0xFF, 0xFF}))

	_, err := br.ReadUint(16)
	require.Error(t, err)
	assert.True(t, IsInternal(err))

	_, err = br.ReadUint(-1)
	require.Error(t, err)
	assert.True(t, IsInternal(err))
}

func TestBitReaderReadUintTruncated(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0xFF}))

	_, err := br.ReadUint(12)
	require.Error(t, err)
	assert.True(t, IsTruncated(err))
	assert.False(t, IsCorrupt(err))
}

func TestBitReaderBitPosition(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0x00, 0x00}))

	for i := 0; i < 12; i++ {
		assert.Equal(t, i%8, br.BitPosition())

		_, err := br.ReadBit()
		require.NoError(t, err)
	}
}

func TestBitReaderReadByteDiscardsPartialBits(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0xFF, 0xAB}))

	for i := 0; i < 3; i++ {
		_, err := br.ReadBit()
		require.NoError(t, err)
	}

	b, err := br.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), b)
	assert.Equal(t, 0, br.BitPosition())

	_, err = br.ReadByte()
	assert.Equal(t, io.EOF, err)
}

func TestBitReaderEmptySource(t *testing.T) {
	br := NewBitReader(bytes.NewReader(nil))

	_, err := br.ReadBit()
	assert.Equal(t, io.EOF, err)

	_, err = br.ReadByte()
	assert.Equal(t, io.EOF, err)
}
