package event

import (
	"errors"
	"fmt"
)

// MaxLineBytes is the longest NDJSON line ReadNDJSON accepts.
const MaxLineBytes = 16 * 1024 * 1024

var (
	ErrDecode = errors.New("event: decode failed")
	ErrRead   = errors.New("event: read failed")
)

// DecodeError reports where an event stream failed to decode.
type DecodeError struct {
	// Line is the 1-based NDJSON line, or 0 for whole-payload decoding.
	Line  int
	Err   error
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %v", e.Err.Error(), e.Line, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Err }
