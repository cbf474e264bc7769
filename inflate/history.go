package inflate

import (
	"io"

	"github.com/pkg/errors"
)

// ByteHistory keeps the most recently written bytes of the output stream in
// a fixed-capacity circular buffer so that back-references can copy from
// them. Owned by a single decode run; not safe for concurrent use.
type ByteHistory struct {
	// Circular buffer of byte data, grown lazily up to size.
	data []byte

	// Index of the next byte to write, always in [0, size).
	index int

	size int
}

// NewByteHistory creates an empty history window holding up to size bytes.
// Panics if size is not positive.
func NewByteHistory(size int) *ByteHistory {
	if size < 1 {
		panic("byte history size must be positive")
	}

	return &ByteHistory{size: size}
}

// Append records b as the latest output byte, overwriting the byte written
// size positions ago.
func (h *ByteHistory) Append(b byte) {
	if len(h.data) < h.size {
		h.data = append(h.data, 0)
	}

	h.data[h.index] = b
	h.index = (h.index + 1) % h.size
}

// Copy copies count bytes starting dist bytes before the newest byte,
// writing each one to w and appending it back into the history before the
// next byte is read. The interleaving matters: when count exceeds dist, the
// later reads must observe bytes written earlier in the same call (the LZ77
// overlapping-run case, e.g. a long run of one repeated byte).
func (h *ByteHistory) Copy(dist, count int, w io.Writer) error {
	if count < 0 || dist < 1 || dist > len(h.data) {
		return corruptf("invalid copy length %d or distance %d", count, dist)
	}

	readIndex := (h.index - dist + h.size) % h.size

	var buf [1]byte

	for i := 0; i < count; i++ {
		b := h.data[readIndex]
		readIndex = (readIndex + 1) % h.size

		buf[0] = b

		if _, err := w.Write(buf[:]); err != nil {
			return errors.Wrap(err, "unable to write to output")
		}

		h.Append(b)
	}

	return nil
}
