package event

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Type is the numeric kind of a recording event.
type Type int

const (
	TypeDomContentLoaded Type = iota
	TypeLoad
	TypeFullSnapshot
	TypeIncrementalSnapshot
	TypeMeta
	TypeCustom
	TypePlugin
)

func (t Type) String() string {
	switch t {
	case TypeDomContentLoaded:
		return "dom_content_loaded"
	case TypeLoad:
		return "load"
	case TypeFullSnapshot:
		return "full_snapshot"
	case TypeIncrementalSnapshot:
		return "incremental_snapshot"
	case TypeMeta:
		return "meta"
	case TypeCustom:
		return "custom"
	case TypePlugin:
		return "plugin"
	default:
		return "unknown"
	}
}

// Event is a single session-recording event. Only Type and Timestamp are
// interpreted. A decoded event keeps its encoded object, every field
// included, and re-encodes to exactly that object (compacted), so numbers and
// unknown fields survive a round trip. Data of a decoded event is for
// reading only.
type Event struct {
	Type      Type
	Timestamp int64
	Data      json.RawMessage

	raw json.RawMessage
}

type wireEvent struct {
	Type      Type            `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New builds an event from its parts. It encodes as
// {"type":..,"timestamp":..,"data":..}.
func New(t Type, timestamp int64, data json.RawMessage) Event {
	return Event{Type: t, Timestamp: timestamp, Data: data}
}

// Parse decodes a single JSON event object.
func Parse(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, &DecodeError{Err: ErrDecode, Cause: err}
	}
	return ev, nil
}

// Raw returns the encoded object the event was decoded from, or nil for an
// event built with New.
func (e Event) Raw() json.RawMessage {
	return e.raw
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	return json.Marshal(wireEvent{Type: e.Type, Timestamp: e.Timestamp, Data: e.Data})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	raw, err := compact(data)
	if err != nil {
		return err
	}
	if w.Data != nil {
		if w.Data, err = compact(w.Data); err != nil {
			return err
		}
	}
	*e = Event{Type: w.Type, Timestamp: w.Timestamp, Data: w.Data, raw: raw}
	return nil
}

func compact(data []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsCheckoutType reports whether events of type t start a new checkout.
func IsCheckoutType(t Type) bool {
	return t == TypeFullSnapshot
}

// DecodeList decodes a JSON array of events, as produced by a flush.
func DecodeList(data []byte) ([]Event, error) {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, &DecodeError{Line: 0, Err: ErrDecode, Cause: err}
	}
	return events, nil
}

// ReadNDJSON reads newline-delimited JSON events from r. Blank lines are skipped.
func ReadNDJSON(r io.Reader) ([]Event, error) {
	var events []Event
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, &DecodeError{Line: line, Err: ErrDecode, Cause: err}
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, &DecodeError{Line: line, Err: ErrRead, Cause: err}
	}
	return events, nil
}

// Span returns the first and last timestamps of events. ok is false when
// events is empty.
func Span(events []Event) (first, last int64, ok bool) {
	if len(events) == 0 {
		return 0, 0, false
	}
	first, last = events[0].Timestamp, events[0].Timestamp
	for _, ev := range events[1:] {
		if ev.Timestamp < first {
			first = ev.Timestamp
		}
		if ev.Timestamp > last {
			last = ev.Timestamp
		}
	}
	return first, last, true
}

func (e Event) String() string {
	return fmt.Sprintf("%s@%d", e.Type, e.Timestamp)
}
