package worker

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/julianstephens/recbuf/internal/recbuf"
)

// Codec names a streaming compression format.
type Codec string

const (
	CodecGzip Codec = "gzip"
	CodecZstd Codec = "zstd"
)

// ParseCodec resolves a codec name. The empty name selects the default codec.
func ParseCodec(name string) (Codec, error) {
	switch Codec(name) {
	case "":
		return Codec(recbuf.DefaultCodec), nil
	case CodecGzip, CodecZstd:
		return Codec(name), nil
	default:
		return "", &CodecError{Codec: name, Err: ErrUnknownCodec}
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectCodec identifies a compressed payload by its frame magic. ok is
// false for anything else, including plain JSON.
func DetectCodec(payload []byte) (codec Codec, ok bool) {
	switch {
	case bytes.HasPrefix(payload, gzipMagic):
		return CodecGzip, true
	case bytes.HasPrefix(payload, zstdMagic):
		return CodecZstd, true
	}
	return "", false
}

// Ext returns the file extension used for payloads in this codec.
func (c Codec) Ext() string {
	switch c {
	case CodecGzip:
		return ".gz"
	case CodecZstd:
		return ".zst"
	}
	return ""
}

func newWriter(codec Codec, w io.Writer) (io.WriteCloser, error) {
	switch codec {
	case CodecGzip:
		return gzip.NewWriter(w), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, &CodecError{Codec: string(codec), Err: ErrCodecInit, Cause: err}
		}
		return enc, nil
	default:
		return nil, &CodecError{Codec: string(codec), Err: ErrUnknownCodec}
	}
}

// Decompress inverts a finished payload. The decompressed size is capped at
// maxBytes; a non-positive maxBytes selects recbuf.DefaultMaxDecompressedBytes.
func Decompress(codec Codec, payload []byte, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = recbuf.DefaultMaxDecompressedBytes
	}

	var r io.Reader
	switch codec {
	case CodecGzip:
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, &CodecError{Codec: string(codec), Err: ErrDecompress, Cause: err}
		}
		defer func() { _ = zr.Close() }()
		r = zr
	case CodecZstd:
		zr, err := zstd.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, &CodecError{Codec: string(codec), Err: ErrDecompress, Cause: err}
		}
		defer zr.Close()
		r = zr
	default:
		return nil, &CodecError{Codec: string(codec), Err: ErrUnknownCodec}
	}

	out, err := io.ReadAll(io.LimitReader(r, int64(maxBytes)+1))
	if err != nil {
		return nil, &CodecError{Codec: string(codec), Err: ErrDecompress, Cause: err}
	}
	if len(out) > maxBytes {
		return nil, &CodecError{Codec: string(codec), Err: ErrPayloadTooLarge, Size: len(out), Limit: maxBytes}
	}
	return out, nil
}
