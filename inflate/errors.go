package inflate

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTruncated is returned when the compressed stream ends in the middle of
// a read. It is reported distinctly from corruption because feeding the
// decoder more data could fix it.
var ErrTruncated = errors.New("unexpected end of stream")

// CorruptError indicates malformed compressed data. The decode cannot be
// resumed and any output produced so far must be discarded.
type CorruptError struct {
	Reason string
}

func (e *CorruptError) Error() string {
	return "corrupt deflate stream: " + e.Reason
}

// InternalError indicates a defect in the decoder itself rather than in the
// input. It should never occur on any stream, valid or not.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return "internal decoder error: " + e.Reason
}

func corruptf(format string, args ...interface{}) error {
	return &CorruptError{Reason: fmt.Sprintf(format, args...)}
}

// IsCorrupt reports whether err (or its cause) is a CorruptError.
func IsCorrupt(err error) bool {
	_, ok := errors.Cause(err).(*CorruptError)
	return ok
}

// IsTruncated reports whether err (or its cause) is ErrTruncated.
func IsTruncated(err error) bool {
	return errors.Cause(err) == ErrTruncated
}

// IsInternal reports whether err (or its cause) is an InternalError.
func IsInternal(err error) bool {
	_, ok := errors.Cause(err).(*InternalError)
	return ok
}
