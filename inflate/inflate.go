// Package inflate decodes raw DEFLATE streams (RFC 1951, no zlib or gzip
// container) into their original uncompressed form. It is a pure decoder;
// there is no compression path.
package inflate

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// historySize is the DEFLATE sliding window: back-references may reach at
// most this many bytes behind the output cursor.
const historySize = 32 * 1024

// endOfBlockSymbol terminates the symbol loop of a Huffman-coded block.
const endOfBlockSymbol = 256

// Block types from the 2-bit btype header field (RFC 1951 section 3.2.3).
// The fourth value, 3, is reserved and always an error.
const (
	blockTypeStored  = 0
	blockTypeFixed   = 1
	blockTypeDynamic = 2
)

// codeLengthCodeOrder is the fixed scan order in which the code-length-code
// lengths appear in a dynamic block header, alternating outward from the
// middle of the array (RFC 1951 section 3.2.7).
var codeLengthCodeOrder = [19]int{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// Decompressor decodes one DEFLATE block stream. It owns its BitReader and
// ByteHistory exclusively for the duration of a single run.
type Decompressor struct {
	in      *BitReader
	out     io.Writer
	history *ByteHistory
	log     *logrus.Entry
}

// Decompress reads a raw DEFLATE stream from r and writes the decoded bytes
// to w. If an error is returned, bytes already written to w must be
// discarded; there is no partial-result contract.
func Decompress(r io.Reader, w io.Writer) error {
	return DecompressBits(NewBitReader(r), w)
}

// DecompressBits is like Decompress but consumes an existing BitReader,
// allowing the caller to control how bytes are pulled from the source. The
// reader is left positioned at the first byte after the final block.
func DecompressBits(in *BitReader, out io.Writer) error {
	d := &Decompressor{
		in:      in,
		out:     out,
		history: NewByteHistory(historySize),
		log:     logrus.WithField("pkg", "inflate"),
	}

	return d.run()
}

func (d *Decompressor) run() error {
	for {
		isFinal, err := d.in.ReadUint(1) // bfinal
		if err != nil {
			return errors.Wrap(err, "unable to read final-block flag")
		}

		blockType, err := d.in.ReadUint(2) // btype
		if err != nil {
			return errors.Wrap(err, "unable to read block type")
		}

		d.log.Debugf("decoding block type '%d' (final: %v)", blockType, isFinal == 1)

		switch blockType {
		case blockTypeStored:
			err = d.decompressStoredBlock()
		case blockTypeFixed:
			litLenCode, distCode := fixedCodes()
			err = d.decompressHuffmanBlock(litLenCode, distCode)
		case blockTypeDynamic:
			litLenCode, distCode, cerr := d.decodeHuffmanCodes()
			if cerr != nil {
				return cerr
			}

			err = d.decompressHuffmanBlock(litLenCode, distCode)
		default:
			return corruptf("reserved block type")
		}

		if err != nil {
			return err
		}

		if isFinal == 1 {
			return nil
		}
	}
}

// decompressStoredBlock copies a stored (uncompressed) block verbatim to the
// output and the history window.
func (d *Decompressor) decompressStoredBlock() error {
	// Discard bits up to the next byte boundary.
	for d.in.BitPosition() != 0 {
		if _, err := d.in.ReadBit(); err != nil {
			if err == io.EOF {
				return ErrTruncated
			}

			return err
		}
	}

	length, err := d.readUint16()
	if err != nil {
		return errors.Wrap(err, "unable to read stored block length")
	}

	invLength, err := d.readUint16()
	if err != nil {
		return errors.Wrap(err, "unable to read stored block length complement")
	}

	if length^0xFFFF != invLength {
		return corruptf("stored block length %#04x does not match complement %#04x", length, invLength)
	}

	d.log.Debugf("copying '%d' stored bytes", length)

	for i := 0; i < length; i++ {
		b, err := d.in.ReadByte()
		if err == io.EOF {
			return ErrTruncated
		}

		if err != nil {
			return err
		}

		if err := d.writeLiteral(b); err != nil {
			return err
		}
	}

	return nil
}

// decodeHuffmanCodes reads a dynamic block header (btype = 2) and builds the
// literal-length and distance tables it describes. The returned distance
// table is nil when the block is declared to contain no back-references.
func (d *Decompressor) decodeHuffmanCodes() (litLen, dist *CanonicalCode, err error) {
	numLitLenCodes, err := d.in.ReadUint(5) // hlit
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to read literal-length code count")
	}
	numLitLenCodes += 257

	numDistCodes, err := d.in.ReadUint(5) // hdist
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to read distance code count")
	}
	numDistCodes++

	numCodeLenCodes, err := d.in.ReadUint(4) // hclen
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to read code-length code count")
	}
	numCodeLenCodes += 4

	d.log.Debugf("dynamic block: %d literal-length codes, %d distance codes, %d code-length codes",
		numLitLenCodes, numDistCodes, numCodeLenCodes)

	codeLenCodeLen := make([]int, 19)

	for i := 0; i < numCodeLenCodes; i++ {
		v, err := d.in.ReadUint(3)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to read code-length code length")
		}

		codeLenCodeLen[codeLengthCodeOrder[i]] = v
	}

	codeLenCode, err := NewCanonicalCode(codeLenCodeLen)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to build code-length code")
	}

	// Decode the literal-length and distance code lengths in one sequence,
	// expanding the run operators 16/17/18 as they appear.
	codeLens := make([]int, 0, numLitLenCodes+numDistCodes)

	for len(codeLens) < numLitLenCodes+numDistCodes {
		sym, err := codeLenCode.DecodeSymbol(d.in)
		if err != nil {
			return nil, nil, err
		}

		switch {
		case sym >= 0 && sym <= 15:
			codeLens = append(codeLens, sym)
		case sym == 16:
			if len(codeLens) == 0 {
				return nil, nil, corruptf("no code length value to repeat")
			}

			runLen, err := d.in.ReadUint(2)
			if err != nil {
				return nil, nil, err
			}

			prev := codeLens[len(codeLens)-1]
			for i := 0; i < runLen+3; i++ {
				codeLens = append(codeLens, prev)
			}
		case sym == 17:
			runLen, err := d.in.ReadUint(3)
			if err != nil {
				return nil, nil, err
			}

			for i := 0; i < runLen+3; i++ {
				codeLens = append(codeLens, 0)
			}
		case sym == 18:
			runLen, err := d.in.ReadUint(7)
			if err != nil {
				return nil, nil, err
			}

			for i := 0; i < runLen+11; i++ {
				codeLens = append(codeLens, 0)
			}
		default:
			return nil, nil, &InternalError{Reason: fmt.Sprintf("code length symbol %d out of range", sym)}
		}
	}

	if len(codeLens) > numLitLenCodes+numDistCodes {
		return nil, nil, corruptf("code length run exceeds declared count")
	}

	litLen, err = NewCanonicalCode(codeLens[:numLitLenCodes])
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to build literal-length code")
	}

	distCodeLen := codeLens[numLitLenCodes:]

	if len(distCodeLen) == 1 && distCodeLen[0] == 0 {
		// No distance codes defined at all: the block must consist purely
		// of literal symbols.
		return litLen, nil, nil
	}

	oneCount := 0
	otherPositiveCount := 0

	for _, cl := range distCodeLen {
		if cl == 1 {
			oneCount++
		} else if cl > 1 {
			otherPositiveCount++
		}
	}

	// A lone length-1 distance code cannot form a full tree on its own. Pad
	// a second, never-used length-1 code into the last slot so construction
	// sees a complete two-leaf tree. Decoders that "fix" this differently
	// silently disagree on valid streams.
	if oneCount == 1 && otherPositiveCount == 0 {
		padded := make([]int, 32)
		copy(padded, distCodeLen)
		padded[31] = 1
		distCodeLen = padded
	}

	dist, err = NewCanonicalCode(distCodeLen)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to build distance code")
	}

	return litLen, dist, nil
}

// decompressHuffmanBlock decodes the shared symbol loop of block types 1 and
// 2. distCode may be nil, in which case any length symbol is an error.
func (d *Decompressor) decompressHuffmanBlock(litLenCode, distCode *CanonicalCode) error {
	for {
		sym, err := litLenCode.DecodeSymbol(d.in)
		if err != nil {
			return err
		}

		if sym == endOfBlockSymbol {
			return nil
		}

		if sym < endOfBlockSymbol {
			// Literal byte.
			if err := d.writeLiteral(byte(sym)); err != nil {
				return err
			}

			continue
		}

		// Length and distance for a back-reference copy.
		run, err := d.decodeRunLength(sym)
		if err != nil {
			return err
		}

		if run < 3 || run > 258 {
			return &InternalError{Reason: fmt.Sprintf("run length %d out of range", run)}
		}

		if distCode == nil {
			return corruptf("length symbol encountered with empty distance code")
		}

		distSym, err := distCode.DecodeSymbol(d.in)
		if err != nil {
			return err
		}

		dist, err := d.decodeDistance(distSym)
		if err != nil {
			return err
		}

		if dist < 1 || dist > historySize {
			return &InternalError{Reason: fmt.Sprintf("distance %d out of range", dist)}
		}

		if err := d.history.Copy(dist, run, d.out); err != nil {
			return err
		}
	}
}

// decodeRunLength maps a literal-length symbol in [257,287] to its run
// length, consuming extra bits when the symbol calls for them.
func (d *Decompressor) decodeRunLength(sym int) (int, error) {
	if sym < 257 || sym > 287 {
		// Symbols outside the range cannot come off the litlen table; they
		// would mean the decoder itself is broken.
		return 0, &InternalError{Reason: fmt.Sprintf("run length symbol %d out of range", sym)}
	}

	switch {
	case sym <= 264:
		return sym - 254, nil
	case sym <= 284:
		numExtraBits := (sym - 261) / 4

		extra, err := d.in.ReadUint(numExtraBits)
		if err != nil {
			return 0, errors.Wrap(err, "unable to read run length extra bits")
		}

		return ((sym-265)%4+4)<<numExtraBits + 3 + extra, nil
	case sym == 285:
		return 258, nil
	default:
		return 0, corruptf("reserved length symbol %d", sym)
	}
}

// decodeDistance maps a distance symbol in [0,31] to its distance,
// consuming extra bits when the symbol calls for them.
func (d *Decompressor) decodeDistance(sym int) (int, error) {
	if sym < 0 || sym > 31 {
		return 0, &InternalError{Reason: fmt.Sprintf("distance symbol %d out of range", sym)}
	}

	switch {
	case sym <= 3:
		return sym + 1, nil
	case sym <= 29:
		numExtraBits := sym/2 - 1

		extra, err := d.in.ReadUint(numExtraBits)
		if err != nil {
			return 0, errors.Wrap(err, "unable to read distance extra bits")
		}

		return (sym%2+2)<<numExtraBits + 1 + extra, nil
	default:
		return 0, corruptf("reserved distance symbol %d", sym)
	}
}

// readUint16 reads a little-endian 16-bit field from a byte-aligned
// position in the stream.
func (d *Decompressor) readUint16() (int, error) {
	lo, err := d.in.ReadUint(8)
	if err != nil {
		return 0, err
	}

	hi, err := d.in.ReadUint(8)
	if err != nil {
		return 0, err
	}

	return hi<<8 | lo, nil
}

func (d *Decompressor) writeLiteral(b byte) error {
	if _, err := d.out.Write([]byte{b}); err != nil {
		return errors.Wrap(err, "unable to write to output")
	}

	d.history.Append(b)

	return nil
}
