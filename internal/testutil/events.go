package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/recbuf/internal/recbuf/event"
)

// mustParse decodes a compact event literal. Decoded fixtures compare equal
// to the same events after a trip through a buffer.
func mustParse(text string) event.Event {
	ev, err := event.Parse([]byte(text))
	if err != nil {
		panic(fmt.Sprintf("bad event fixture %s: %v", text, err))
	}
	return ev
}

// IncrementalEvents returns n incremental-snapshot events with increasing
// timestamps starting at start.
func IncrementalEvents(start int64, n int) []event.Event {
	out := make([]event.Event, n)
	for i := range out {
		out[i] = mustParse(fmt.Sprintf(`{"type":%d,"timestamp":%d,"data":{"source":"mutation","seq":%d}}`,
			int(event.TypeIncrementalSnapshot), start+int64(i), i))
	}
	return out
}

// Checkout returns a full-snapshot event at ts.
func Checkout(ts int64) event.Event {
	return mustParse(fmt.Sprintf(`{"type":%d,"timestamp":%d,"data":{"node":"document"}}`,
		int(event.TypeFullSnapshot), ts))
}

// Unserializable returns an event whose data cannot be encoded as JSON.
func Unserializable(ts int64) event.Event {
	return event.New(event.TypeCustom, ts, json.RawMessage(`{"broken":`))
}
