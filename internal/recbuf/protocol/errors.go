package protocol

import (
	"errors"
)

var (
	ErrEncodeArgs    = errors.New("protocol: encode args failed")
	ErrDecodeArgs    = errors.New("protocol: decode args failed")
	ErrUnknownMethod = errors.New("protocol: unknown method")
	ErrDecodeAck     = errors.New("protocol: decode acknowledgement failed")
)

// ArgsError wraps argument (de)serialization failures.
type ArgsError struct {
	Err   error
	Cause error
}

func (e *ArgsError) Error() string {
	if e.Cause == nil {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Cause.Error()
}

func (e *ArgsError) Unwrap() error { return e.Err }
