package buffer

import (
	"errors"
	"fmt"

	"github.com/julianstephens/recbuf/internal/recbuf/protocol"
)

var (
	ErrCompression       = errors.New("buffer: error in compression worker")
	ErrCorruptPayload    = errors.New("buffer: compressed payload checksum mismatch")
	ErrWorkerUnavailable = errors.New("buffer: worker unavailable")
	ErrTooManyPending    = errors.New("buffer: too many pending worker requests")
	ErrRequestTimeout    = errors.New("buffer: worker request timed out")
	ErrDestroyed         = errors.New("buffer: destroyed")
	ErrSerialize         = errors.New("buffer: event serialization failed")
)

// RequestError ties a failed worker request to its correlation key, with
// the worker's detail (or transport failure) preserved in Cause.
type RequestError struct {
	Err    error
	Method protocol.Method
	ID     uint64
	Cause  error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s method=%s id=%d: %v", e.Err.Error(), e.Method, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s method=%s id=%d", e.Err.Error(), e.Method, e.ID)
}

func (e *RequestError) Unwrap() error { return e.Err }

// CauseErr returns the underlying failure detail.
func (e *RequestError) CauseErr() error { return e.Cause }

func wrapRequestErr(sentinel error, key protocol.Key, cause error) error {
	return &RequestError{
		Err:    sentinel,
		Method: key.Method,
		ID:     key.ID,
		Cause:  cause,
	}
}

// AsRequestError extracts a *RequestError from err.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// SerializeError reports a flush whose events could not be encoded.
type SerializeError struct {
	Err   error
	Count int
	Cause error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("%s count=%d: %v", e.Err.Error(), e.Count, e.Cause)
}

func (e *SerializeError) Unwrap() error { return e.Err }
