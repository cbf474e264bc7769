package gunzip

import (
	"bufio"
	"io"
)

// countingReader tracks how many compressed bytes have been consumed. It
// also serves as the io.ByteReader the inflate engine needs so that no
// buffering happens beyond the bytes actually decoded.
type countingReader struct {
	r *bufio.Reader
	n int64
}

func newCountingReader(r io.Reader) *countingReader {
	return &countingReader{r: bufio.NewReader(r)}
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)

	return n, err
}

func (cr *countingReader) ReadByte() (byte, error) {
	b, err := cr.r.ReadByte()
	if err == nil {
		cr.n++
	}

	return b, err
}

func (cr *countingReader) Count() int64 {
	return cr.n
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func newCountingWriter(w io.Writer) *countingWriter {
	return &countingWriter{w: w}
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)

	return n, err
}

func (cw *countingWriter) Count() int64 {
	return cw.n
}
