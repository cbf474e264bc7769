// Package gunzip unwraps the gzip container (RFC 1952) around a DEFLATE
// stream. It hands the compressed body to the inflate engine and then
// independently verifies the CRC-32 and uncompressed size recorded in the
// container footer.
package gunzip

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/puff/inflate"
)

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8

	flagText    = 1 << 0
	flagHdrCrc  = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4

	// maxStringLen bounds the FNAME/FCOMMENT fields so a corrupt header
	// cannot make us read forever.
	maxStringLen = 512
)

var (
	// ErrHeader is returned when reading gzip data that has an invalid header.
	ErrHeader = errors.New("gzip: invalid header")
	// ErrChecksum is returned when the decoded data does not match the
	// CRC-32 recorded in the gzip footer.
	ErrChecksum = errors.New("gzip: invalid checksum")
	// ErrSize is returned when the decoded length does not match the size
	// recorded in the gzip footer.
	ErrSize = errors.New("gzip: invalid decompressed size")
)

var le = binary.LittleEndian

// osNames maps the gzip OS byte to a readable name (RFC 1952 section 2.3.1).
var osNames = map[byte]string{
	0:   "FAT",
	1:   "Amiga",
	2:   "VMS",
	3:   "Unix",
	4:   "VM/CMS",
	5:   "Atari TOS",
	6:   "HPFS",
	7:   "Macintosh",
	8:   "Z-System",
	9:   "CP/M",
	10:  "TOPS-20",
	11:  "NTFS",
	12:  "QDOS",
	13:  "Acorn RISCOS",
	255: "unknown",
}

// Header holds the metadata stored in a gzip member header.
type Header struct {
	Name    string    // original file name, if recorded
	Comment string    // comment, if recorded
	Extra   []byte    // raw "extra field" data, if recorded
	ModTime time.Time // modification time; zero value means not set
	OS      byte      // operating system type
	Text    bool      // FTEXT flag: data is probably text
}

// OSName returns a readable name for the header's OS byte.
func (h *Header) OSName() string {
	if name, ok := osNames[h.OS]; ok {
		return name
	}

	return "unknown"
}

// Summary describes a completed decompression.
type Summary struct {
	Header           Header
	CompressedSize   int64 // bytes consumed, header and footer included
	UncompressedSize int64
	CRC32            uint32 // CRC-32 of the decoded data, as verified
}

// Decompress reads one complete gzip member from r, writes the decoded data
// to w, and verifies the footer checksum and size. On error, bytes already
// written to w must be discarded.
func Decompress(r io.Reader, w io.Writer) (*Summary, error) {
	log := logrus.WithField("pkg", "gunzip")

	cr := newCountingReader(r)

	hdr, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	log.Debugf("header: name '%s', os '%s', text: %v", hdr.Name, hdr.OSName(), hdr.Text)

	digest := crc32.NewIEEE()
	cw := newCountingWriter(io.MultiWriter(w, digest))

	// The counting reader is an io.ByteReader, so the engine pulls bytes
	// one at a time and never reads past the end of the DEFLATE stream.
	if err := inflate.DecompressBits(inflate.NewBitReader(cr), cw); err != nil {
		return nil, errors.Wrap(err, "unable to decompress deflate stream")
	}

	var buf [8]byte
	if _, err := io.ReadFull(cr, buf[:]); err != nil {
		return nil, errors.Wrap(noEOF(err), "unable to read gzip footer")
	}

	wantCRC := le.Uint32(buf[:4])
	wantSize := le.Uint32(buf[4:8])

	log.Debugf("footer: crc %#08x, size %d", wantCRC, wantSize)

	if wantCRC != digest.Sum32() {
		return nil, ErrChecksum
	}

	if wantSize != uint32(cw.Count()) {
		return nil, ErrSize
	}

	return &Summary{
		Header:           *hdr,
		CompressedSize:   cr.Count(),
		UncompressedSize: cw.Count(),
		CRC32:            digest.Sum32(),
	}, nil
}

// readHeader reads and validates the gzip member header (RFC 1952 section
// 2.3.1), including the optional CRC-16 of the header bytes themselves.
func readHeader(cr *countingReader) (*Header, error) {
	var buf [10]byte
	if _, err := io.ReadFull(cr, buf[:]); err != nil {
		return nil, errors.Wrap(noEOF(err), "unable to read gzip header")
	}

	if buf[0] != gzipID1 || buf[1] != gzipID2 {
		return nil, errors.Wrap(ErrHeader, "invalid magic number")
	}

	if buf[2] != gzipDeflate {
		return nil, errors.Wrapf(ErrHeader, "unsupported compression method %d", buf[2])
	}

	flags := buf[3]

	if flags&0xE0 != 0 {
		return nil, errors.Wrap(ErrHeader, "reserved flags are set")
	}

	hdr := &Header{
		OS:   buf[9],
		Text: flags&flagText != 0,
	}

	// buf[8] is XFL and is ignored.
	if t := int64(le.Uint32(buf[4:8])); t > 0 {
		hdr.ModTime = time.Unix(t, 0)
	}

	digest := crc32.ChecksumIEEE(buf[:])

	if flags&flagExtra != 0 {
		var lenBuf [2]byte
		if _, err := io.ReadFull(cr, lenBuf[:]); err != nil {
			return nil, errors.Wrap(noEOF(err), "unable to read extra field length")
		}

		digest = crc32.Update(digest, crc32.IEEETable, lenBuf[:])

		extra := make([]byte, le.Uint16(lenBuf[:]))
		if _, err := io.ReadFull(cr, extra); err != nil {
			return nil, errors.Wrap(noEOF(err), "unable to read extra field")
		}

		digest = crc32.Update(digest, crc32.IEEETable, extra)
		hdr.Extra = extra
	}

	if flags&flagName != 0 {
		s, err := readString(cr, &digest)
		if err != nil {
			return nil, errors.Wrap(err, "unable to read file name")
		}

		hdr.Name = s
	}

	if flags&flagComment != 0 {
		s, err := readString(cr, &digest)
		if err != nil {
			return nil, errors.Wrap(err, "unable to read comment")
		}

		hdr.Comment = s
	}

	if flags&flagHdrCrc != 0 {
		var crcBuf [2]byte
		if _, err := io.ReadFull(cr, crcBuf[:]); err != nil {
			return nil, errors.Wrap(noEOF(err), "unable to read header checksum")
		}

		if le.Uint16(crcBuf[:]) != uint16(digest) {
			return nil, errors.Wrap(ErrHeader, "header checksum mismatch")
		}
	}

	return hdr, nil
}

// readString reads a NUL-terminated string, treating the bytes as ISO 8859-1
// (Latin-1) and converting to UTF-8. The running header digest is updated
// with every byte read, NUL terminator included.
func readString(cr *countingReader, digest *uint32) (string, error) {
	var buf []byte

	for {
		if len(buf) >= maxStringLen {
			return "", errors.Wrap(ErrHeader, "unterminated string field")
		}

		b, err := cr.ReadByte()
		if err != nil {
			return "", noEOF(err)
		}

		buf = append(buf, b)
		*digest = crc32.Update(*digest, crc32.IEEETable, buf[len(buf)-1:])

		if b == 0 {
			break
		}
	}

	buf = buf[:len(buf)-1]

	for _, b := range buf {
		if b > 0x7f {
			// Latin-1 to UTF-8 needs a rune-wise conversion.
			runes := make([]rune, 0, len(buf))
			for _, v := range buf {
				runes = append(runes, rune(v))
			}

			return string(runes), nil
		}
	}

	return string(buf), nil
}

// noEOF converts io.EOF to io.ErrUnexpectedEOF: inside a member, running out
// of bytes is always premature.
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}

	return err
}
