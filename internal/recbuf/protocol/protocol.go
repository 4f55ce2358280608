package protocol

import (
	"encoding/json"

	"github.com/julianstephens/go-utils/checksum"
	"github.com/julianstephens/go-utils/jsonutil"
)

// Method names a worker operation.
type Method string

const (
	MethodInit     Method = "init"
	MethodAddEvent Method = "addEvent"
	MethodFinish   Method = "finish"
)

// EmptyArgs is the serialized form of an empty argument list.
const EmptyArgs = "[]"

// Valid reports whether m is one of the methods the worker understands.
func (m Method) Valid() bool {
	switch m {
	case MethodInit, MethodAddEvent, MethodFinish:
		return true
	}
	return false
}

// Request is the envelope sent to the worker. Args holds the JSON text of
// the ordered argument list.
type Request struct {
	ID     uint64 `json:"id"`
	Method Method `json:"method"`
	Args   string `json:"args"`
}

// Response is the envelope the worker emits for exactly one Request.
type Response struct {
	ID       uint64 `json:"id"`
	Method   Method `json:"method"`
	Success  bool   `json:"success"`
	Response []byte `json:"response,omitempty"`
	// Error carries the worker's failure detail when Success is false.
	Error string `json:"error,omitempty"`
	// Checksum is the CRC32-C of Response. Zero when not computed.
	Checksum uint32 `json:"checksum,omitempty"`
}

// Key identifies the listener a Response belongs to.
type Key struct {
	Method Method
	ID     uint64
}

// Key returns the correlation key of the request.
func (r Request) Key() Key { return Key{Method: r.Method, ID: r.ID} }

// Key returns the correlation key of the response.
func (r Response) Key() Key { return Key{Method: r.Method, ID: r.ID} }

// EncodeArgs serializes args as a JSON array.
func EncodeArgs(args ...any) (string, error) {
	if len(args) == 0 {
		return EmptyArgs, nil
	}
	data, err := jsonutil.Marshal(args)
	if err != nil {
		return "", &ArgsError{Err: ErrEncodeArgs, Cause: err}
	}
	return string(data), nil
}

// DecodeArgs splits serialized args into their raw JSON elements.
func DecodeArgs(args string) ([]json.RawMessage, error) {
	if args == "" {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(args), &raw); err != nil {
		return nil, &ArgsError{Err: ErrDecodeArgs, Cause: err}
	}
	return raw, nil
}

// DecodeAck reads the boolean acknowledgement of an addEvent response.
func DecodeAck(payload []byte) (bool, error) {
	var ack bool
	if err := json.Unmarshal(payload, &ack); err != nil {
		return false, &ArgsError{Err: ErrDecodeAck, Cause: err}
	}
	return ack, nil
}

// Succeed builds a successful response to req. The payload checksum is
// filled in so the receiver can verify it.
func Succeed(req Request, payload []byte) Response {
	return Response{
		ID:       req.ID,
		Method:   req.Method,
		Success:  true,
		Response: payload,
		Checksum: checksum.CRC32C(payload),
	}
}

// Fail builds a failed response to req carrying err's text.
func Fail(req Request, err error) Response {
	detail := "<nil>"
	if err != nil {
		detail = err.Error()
	}
	return Response{
		ID:      req.ID,
		Method:  req.Method,
		Success: false,
		Error:   detail,
	}
}

// VerifyChecksum reports whether the response payload matches its checksum.
func VerifyChecksum(resp Response) bool {
	return checksum.VerifyCRC32C(resp.Response, resp.Checksum)
}
