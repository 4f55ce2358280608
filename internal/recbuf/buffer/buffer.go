package buffer

import (
	"context"

	"github.com/julianstephens/recbuf/internal/recbuf/event"
)

// Kind identifies the backend behind a Buffer.
type Kind uint8

const (
	// KindSimple buffers raw events and flushes them as JSON text.
	KindSimple Kind = iota
	// KindWorker streams events to a compression worker and flushes
	// compressed bytes.
	KindWorker
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// Buffer accumulates recording events for one session until they are flushed.
type Buffer interface {
	// Kind reports the backend, which determines the Finish payload format.
	Kind() Kind

	// SessionID identifies the recording session the buffer belongs to.
	SessionID() string

	// PendingLength is the number of events accepted since the last flush.
	PendingLength() int

	// PendingEvents returns a copy of the raw events accepted since the last
	// flush or checkout.
	PendingEvents() []event.Event

	// AddEvent accepts ev. A checkout replaces everything buffered so far.
	AddEvent(ctx context.Context, ev event.Event, isCheckout bool) *Future[bool]

	// Finish flushes everything buffered into a single payload and starts
	// the next cycle.
	Finish() *Future[[]byte]

	// Destroy releases the buffer. The buffer must not be used afterwards.
	Destroy()
}
