package buffer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/julianstephens/go-utils/jsonutil"

	"github.com/julianstephens/recbuf/internal/logger"
	"github.com/julianstephens/recbuf/internal/recbuf/event"
)

// Simple holds raw events in memory and flushes them as a JSON array.
type Simple struct {
	mu        sync.Mutex
	events    []event.Event
	sessionID string
	logger    logger.Logger
}

// NewSimple creates an empty simple buffer.
func NewSimple(sessionID string, lg logger.Logger) *Simple {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	return &Simple{
		events:    []event.Event{},
		sessionID: sessionID,
		logger:    lg,
	}
}

func (b *Simple) Kind() Kind { return KindSimple }

func (b *Simple) SessionID() string { return b.sessionID }

func (b *Simple) PendingLength() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// PendingEvents returns a copy of the buffered events in arrival order.
func (b *Simple) PendingEvents() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]event.Event, len(b.events))
	copy(out, b.events)
	return out
}

// AddEvent appends ev, or replaces the whole buffer with ev on checkout.
// It never fails.
func (b *Simple) AddEvent(_ context.Context, ev event.Event, isCheckout bool) *Future[bool] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if isCheckout {
		b.events = []event.Event{ev}
		return resolved(true)
	}
	b.events = append(b.events, ev)
	return resolved(true)
}

// Finish takes the buffered events and serializes them. Events added after
// the take belong to the next Finish.
func (b *Simple) Finish() *Future[[]byte] {
	b.mu.Lock()
	taken := b.events
	b.events = []event.Event{}
	b.mu.Unlock()

	payload, err := b.serialize(taken)
	if err != nil {
		b.logger.Error("failed to serialize events", err, "session", b.sessionID, "count", len(taken))
		return rejected[[]byte](err)
	}
	b.logger.Debug("flushed simple buffer", "session", b.sessionID, "count", len(taken), "size", len(payload))
	return resolved(payload)
}

func (b *Simple) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = []event.Event{}
}

// serialize encodes events as a JSON array. An event that cannot be encoded
// is dropped so the rest of the flush survives.
func (b *Simple) serialize(events []event.Event) ([]byte, error) {
	payload, err := jsonutil.Marshal(events)
	if err == nil {
		return payload, nil
	}

	kept := make([]json.RawMessage, 0, len(events))
	for i, ev := range events {
		raw, err := jsonutil.Marshal(ev)
		if err != nil {
			b.logger.Warn("dropping unserializable event", "session", b.sessionID, "index", i, "type", ev.Type)
			continue
		}
		kept = append(kept, raw)
	}
	payload, err = jsonutil.Marshal(kept)
	if err != nil {
		return nil, &SerializeError{Err: ErrSerialize, Count: len(events), Cause: err}
	}
	return payload, nil
}
