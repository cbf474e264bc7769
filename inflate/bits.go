package inflate

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// BitReader reads individual bits and small little-endian integers from a
// byte stream. Bits are packed least significant first within each byte, per
// RFC 1951; the byte 0x87 reads as the bit sequence 1,1,1,0,0,0,0,1.
type BitReader struct {
	r io.ByteReader

	// Byte currently being consumed, or -1 once the source is exhausted.
	cur int

	// Unconsumed bits left in cur, always in [0,7] between calls.
	remaining int
}

// NewBitReader returns a BitReader consuming r. If r is not already an
// io.ByteReader it is wrapped in a bufio.Reader, which may read further
// ahead than the bits actually consumed.
func NewBitReader(r io.Reader) *BitReader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &BitReader{r: br}
}

// ReadBit returns the next bit (0 or 1), or io.EOF once the source is
// exhausted. Exhaustion is only ever observed at a byte boundary.
func (br *BitReader) ReadBit() (int, error) {
	if br.cur == -1 {
		return 0, io.EOF
	}

	if br.remaining == 0 {
		b, err := br.r.ReadByte()
		if err == io.EOF {
			br.cur = -1
			return 0, io.EOF
		}

		if err != nil {
			return 0, errors.Wrap(err, "unable to read from source")
		}

		br.cur = int(b)
		br.remaining = 8
	}

	if br.remaining < 1 || br.remaining > 8 {
		return 0, &InternalError{Reason: "remaining bit count out of range"}
	}

	br.remaining--

	return (br.cur >> (7 - br.remaining)) & 1, nil
}

// ReadUint reads n bits (n in [0,15]) and assembles them, least significant
// bit first, into an unsigned integer. A source that runs dry mid-read
// yields ErrTruncated.
func (br *BitReader) ReadUint(n int) (int, error) {
	if n < 0 || n > 15 {
		return 0, &InternalError{Reason: fmt.Sprintf("bit width %d out of range", n)}
	}

	result := 0

	for i := 0; i < n; i++ {
		bit, err := br.ReadBit()
		if err == io.EOF {
			return 0, ErrTruncated
		}

		if err != nil {
			return 0, err
		}

		result |= bit << i
	}

	return result, nil
}

// BitPosition returns the number of bits consumed since the last byte
// boundary, ascending from 0 to 7 as bits are read.
func (br *BitReader) BitPosition() int {
	return (8 - br.remaining) % 8
}

// ReadByte discards the remainder of the current byte, if any, and reads the
// next whole byte from the source. Returns io.EOF at end of stream.
func (br *BitReader) ReadByte() (byte, error) {
	br.remaining = 0

	if br.cur == -1 {
		return 0, io.EOF
	}

	b, err := br.r.ReadByte()
	if err == io.EOF {
		br.cur = -1
		return 0, io.EOF
	}

	if err != nil {
		return 0, errors.Wrap(err, "unable to read from source")
	}

	br.cur = 0

	return b, nil
}
