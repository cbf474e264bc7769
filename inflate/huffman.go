package inflate

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// maxCodeLength is the longest Huffman code DEFLATE permits (RFC 1951
// section 3.2.7).
const maxCodeLength = 15

// CanonicalCode is a canonical Huffman code derived from an array of
// per-symbol code lengths, where length 0 means the symbol has no code.
// Codes are assigned in ascending order of length, breaking ties by
// ascending symbol index. Immutable once constructed.
//
// For example, the code lengths [1, 0, 3, 2, 3] produce:
//
//	Symbol 0: 0
//	Symbol 1: (absent)
//	Symbol 2: 110
//	Symbol 3: 10
//	Symbol 4: 111
type CanonicalCode struct {
	// Maps a sentinel-prefixed code value to its symbol. A code of bit
	// length L and numeric value V is stored under (1<<L)|V, so codes of
	// different lengths never collide (otherwise 0b01 and 0b0001 would be
	// indistinguishable).
	codeToSymbol map[int]int
}

// NewCanonicalCode builds a code from the given lengths. The lengths must
// describe an exactly full binary tree: a set that would assign two symbols
// the same prefix is rejected as over-full, and one that leaves a leaf
// unassigned is rejected as under-full.
func NewCanonicalCode(codeLengths []int) (*CanonicalCode, error) {
	for symbol, cl := range codeLengths {
		if cl < 0 || cl > maxCodeLength {
			return nil, corruptf("symbol %d has invalid code length %d", symbol, cl)
		}
	}

	c := &CanonicalCode{
		codeToSymbol: make(map[int]int),
	}

	nextCode := 0

	for length := 1; length <= maxCodeLength; length++ {
		nextCode <<= 1
		startBit := 1 << length

		for symbol, cl := range codeLengths {
			if cl != length {
				continue
			}

			if nextCode >= startBit {
				return nil, corruptf("over-full Huffman code tree")
			}

			c.codeToSymbol[startBit|nextCode] = symbol
			nextCode++
		}
	}

	// Every leaf of the virtual depth-15 tree must be accounted for,
	// otherwise some bit sequence has no symbol.
	if nextCode != 1<<maxCodeLength {
		return nil, corruptf("under-full Huffman code tree")
	}

	return c, nil
}

// DecodeSymbol reads bits from br until they form a code in this table and
// returns the matching symbol. Construction proved the tree full, so a match
// must occur within maxCodeLength bits; exceeding that bound indicates a
// defect in the decoder, not malformed input.
func (c *CanonicalCode) DecodeSymbol(br *BitReader) (int, error) {
	codeBits := 1 // the sentinel bit

	for i := 0; i < maxCodeLength; i++ {
		bit, err := br.ReadBit()
		if err == io.EOF {
			return 0, ErrTruncated
		}

		if err != nil {
			return 0, errors.Wrap(err, "unable to read code bit")
		}

		codeBits = codeBits<<1 | bit

		if symbol, ok := c.codeToSymbol[codeBits]; ok {
			return symbol, nil
		}
	}

	return 0, &InternalError{Reason: fmt.Sprintf("no symbol within %d code bits", maxCodeLength)}
}
