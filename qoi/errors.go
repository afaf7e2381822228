package qoi

import (
	"fmt"

	"github.com/juju/errors"
)

// ErrNeedsReset is returned by StreamDecoder.Feed after a previous call
// failed. The decoder stays unusable until Reset is called.
var ErrNeedsReset = errors.New("qoi: stream decoder must be reset after a failure")

// A HeaderError reports a malformed 14-byte header.
type HeaderError struct {
	// Offset is the header byte that failed validation, or -1 when the
	// header was truncated.
	Offset int
	Reason string
}

func (e *HeaderError) Error() string {
	if e.Offset < 0 {
		return "qoi: invalid header: " + e.Reason
	}
	return fmt.Sprintf("qoi: invalid header at byte %d: %s", e.Offset, e.Reason)
}

// A DecodeError reports a corrupt opcode stream.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "qoi: decoding failed: " + e.Reason
}
