package cli

import "errors"

// ErrInvalidPayload is returned when a payload does not hold a JSON event array.
var ErrInvalidPayload = errors.New("cli: payload is not a recorded event array")
