package worker

import (
	"errors"
	"fmt"
)

var (
	ErrTerminated      = errors.New("worker: terminated")
	ErrUnknownCodec    = errors.New("worker: unknown codec")
	ErrCodecInit       = errors.New("worker: codec init failed")
	ErrCompress        = errors.New("worker: compress failed")
	ErrDecompress      = errors.New("worker: decompress failed")
	ErrPayloadTooLarge = errors.New("worker: decompressed payload too large")
)

// CodecError wraps compression failures with the codec that produced them.
type CodecError struct {
	Codec string
	Err   error
	Cause error

	// Size and Limit are set for ErrPayloadTooLarge.
	Size  int
	Limit int
}

func (e *CodecError) Error() string {
	switch {
	case e.Limit > 0:
		return fmt.Sprintf("%s: codec=%s size>%d", e.Err.Error(), e.Codec, e.Limit)
	case e.Cause != nil:
		return fmt.Sprintf("%s: codec=%s: %v", e.Err.Error(), e.Codec, e.Cause)
	default:
		return fmt.Sprintf("%s: codec=%s", e.Err.Error(), e.Codec)
	}
}

func (e *CodecError) Unwrap() error { return e.Err }
