package buffer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/julianstephens/recbuf/internal/logger"
	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/event"
	"github.com/julianstephens/recbuf/internal/recbuf/protocol"
	"github.com/julianstephens/recbuf/internal/recbuf/worker"
)

// call is a registered listener for one outstanding request.
type call struct {
	fut   *Future[protocol.Response]
	timer *time.Timer
}

// Worker streams events to a compression worker and flushes the worker's
// compressed output.
//
// PendingLength is a local count of events sent since the last flush. It is
// updated when a request is sent, not when the worker answers, and Finish
// resets it to 0 before the compressed payload arrives.
type Worker struct {
	// sendMu orders id allocation and Post so the worker sees requests in
	// id order. It is never held by the dispatcher.
	sendMu sync.Mutex

	mu           sync.Mutex
	calls        map[protocol.Key]*call
	shadow       []event.Event
	pendingCount int
	destroyed    bool

	endpoint   worker.Endpoint
	seq        *protocol.Sequence
	maxPending int
	timeout    time.Duration
	sessionID  string
	logger     logger.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewWorker wraps ep, which becomes exclusively owned by the returned buffer.
func NewWorker(ep worker.Endpoint, opts recbuf.BufferOptions, lg logger.Logger) *Worker {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	w := &Worker{
		calls:      make(map[protocol.Key]*call),
		shadow:     []event.Event{},
		endpoint:   ep,
		seq:        protocol.NewSequence(),
		maxPending: opts.MaxPendingRequests,
		timeout:    opts.RequestTimeout,
		sessionID:  opts.SessionID,
		logger:     lg,
		done:       make(chan struct{}),
	}
	go w.dispatch()
	return w
}

func (w *Worker) Kind() Kind { return KindWorker }

func (w *Worker) SessionID() string { return w.sessionID }

// PendingLength returns the number of events sent to the worker since the
// last flush. It may run ahead of what the worker has compressed.
func (w *Worker) PendingLength() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pendingCount
}

// PendingEvents returns the non-checkout events sent since the last flush or
// checkout. Checkout events are not retained.
func (w *Worker) PendingEvents() []event.Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]event.Event, len(w.shadow))
	copy(out, w.shadow)
	return out
}

// InFlight returns the number of requests still waiting for a response.
func (w *Worker) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.calls)
}

// AddEvent sends ev to the worker. A checkout first resets the worker with
// an init request and waits for it, bounded by ctx, before ev is sent.
func (w *Worker) AddEvent(ctx context.Context, ev event.Event, isCheckout bool) *Future[bool] {
	if isCheckout {
		initFut, _ := w.post(protocol.MethodInit)
		if _, err := initFut.Wait(ctx); err != nil {
			w.logger.Error("checkout init failed", err, "session", w.sessionID)
			return rejected[bool](err)
		}

		w.mu.Lock()
		w.shadow = []event.Event{}
		w.pendingCount = 0
		w.mu.Unlock()
	}

	fut, sent := w.post(protocol.MethodAddEvent, ev)
	if sent {
		w.mu.Lock()
		w.pendingCount++
		if !isCheckout {
			w.shadow = append(w.shadow, ev)
		}
		w.mu.Unlock()
	}

	return then(fut, func(resp protocol.Response) (bool, error) {
		ack, err := protocol.DecodeAck(resp.Response)
		if err != nil {
			err = wrapRequestErr(ErrCompression, resp.Key(), err)
			w.logger.Error("unreadable worker acknowledgement", err, "session", w.sessionID, "id", resp.ID)
			return false, err
		}
		return ack, nil
	})
}

// Finish asks the worker for the compressed payload. The pending count and
// shadow events are cleared as soon as the request is sent. A finish that
// could not be sent leaves them untouched, since the events are still held
// by the worker.
func (w *Worker) Finish() *Future[[]byte] {
	fut, sent := w.post(protocol.MethodFinish)
	if sent {
		w.mu.Lock()
		w.pendingCount = 0
		w.shadow = []event.Event{}
		w.mu.Unlock()
	}

	return then(fut, func(resp protocol.Response) ([]byte, error) {
		if !protocol.VerifyChecksum(resp) {
			err := wrapRequestErr(ErrCorruptPayload, resp.Key(), nil)
			w.logger.Error("compressed payload failed verification", err, "session", w.sessionID, "id", resp.ID)
			return nil, err
		}
		w.logger.Debug("flushed worker buffer", "session", w.sessionID, "id", resp.ID, "size", len(resp.Response))
		return resp.Response, nil
	})
}

// Destroy terminates the worker and fails every request still in flight.
func (w *Worker) Destroy() {
	w.stopOnce.Do(func() {
		w.logger.Debug("destroying compression worker", "session", w.sessionID)

		w.mu.Lock()
		w.destroyed = true
		pending := w.calls
		w.calls = make(map[protocol.Key]*call)
		w.shadow = []event.Event{}
		w.pendingCount = 0
		w.mu.Unlock()

		w.endpoint.Terminate()
		close(w.done)

		for key, c := range pending {
			c.stop()
			c.fut.settle(protocol.Response{}, wrapRequestErr(ErrDestroyed, key, nil))
		}
	})
}

// post registers a listener for a new request and hands it to the worker.
// sent reports whether the worker accepted the request.
func (w *Worker) post(method protocol.Method, args ...any) (fut *Future[protocol.Response], sent bool) {
	argText, err := protocol.EncodeArgs(args...)
	if err != nil {
		w.logger.Error("failed to serialize worker args", errors.Join(ErrSerialize, err),
			"session", w.sessionID, "method", method)
		argText = protocol.EmptyArgs
	}

	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	req := protocol.Request{ID: w.seq.Next(), Method: method, Args: argText}
	key := req.Key()

	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return rejected[protocol.Response](wrapRequestErr(ErrDestroyed, key, nil)), false
	}
	if w.maxPending > 0 && len(w.calls) >= w.maxPending {
		inFlight := len(w.calls)
		w.mu.Unlock()
		w.logger.Warn("worker request rejected", "session", w.sessionID, "method", method, "id", req.ID,
			"in_flight", inFlight, "reason", "too_many_pending")
		return rejected[protocol.Response](wrapRequestErr(ErrTooManyPending, key, nil)), false
	}
	c := &call{fut: newFuture[protocol.Response]()}
	if w.timeout > 0 {
		c.timer = time.AfterFunc(w.timeout, func() {
			w.evict(key, ErrRequestTimeout, nil)
		})
	}
	w.calls[key] = c
	w.mu.Unlock()

	if err := w.endpoint.Post(req); err != nil {
		w.logger.Error("failed to post worker request", err, "session", w.sessionID, "method", method, "id", req.ID)
		w.evict(key, ErrWorkerUnavailable, err)
		return c.fut, false
	}
	return c.fut, true
}

// evict removes a pending listener and fails it with sentinel.
func (w *Worker) evict(key protocol.Key, sentinel error, cause error) {
	w.mu.Lock()
	c, ok := w.calls[key]
	if ok {
		delete(w.calls, key)
	}
	w.mu.Unlock()
	if !ok {
		return
	}

	c.stop()
	if errors.Is(sentinel, ErrRequestTimeout) {
		w.logger.Warn("worker request evicted", "session", w.sessionID, "method", key.Method, "id", key.ID,
			"reason", "timeout")
	}
	c.fut.settle(protocol.Response{}, wrapRequestErr(sentinel, key, cause))
}

func (w *Worker) dispatch() {
	responses := w.endpoint.Responses()
	for {
		select {
		case <-w.done:
			return
		case resp, ok := <-responses:
			if !ok {
				w.failAll(ErrWorkerUnavailable, worker.ErrTerminated)
				return
			}
			w.deliver(resp)
		}
	}
}

// deliver settles the listener matching resp by method and id. Responses
// with no listener are ignored.
func (w *Worker) deliver(resp protocol.Response) {
	key := resp.Key()

	w.mu.Lock()
	c, ok := w.calls[key]
	if ok {
		delete(w.calls, key)
	}
	w.mu.Unlock()

	if !ok {
		w.logger.Debug("ignoring unmatched worker response", "session", w.sessionID, "method", key.Method, "id", key.ID)
		return
	}
	c.stop()

	if !resp.Success {
		cause := errors.New(resp.Error)
		w.logger.Error("compression worker reported failure", cause, "session", w.sessionID,
			"method", key.Method, "id", key.ID)
		c.fut.settle(protocol.Response{}, wrapRequestErr(ErrCompression, key, cause))
		return
	}
	c.fut.settle(resp, nil)
}

// failAll settles every pending listener after the worker has gone away.
func (w *Worker) failAll(sentinel error, cause error) {
	w.mu.Lock()
	pending := w.calls
	w.calls = make(map[protocol.Key]*call)
	w.mu.Unlock()

	if len(pending) > 0 {
		w.logger.Warn("compression worker stopped with requests in flight", "session", w.sessionID,
			"in_flight", len(pending))
	}
	for key, c := range pending {
		c.stop()
		c.fut.settle(protocol.Response{}, wrapRequestErr(sentinel, key, cause))
	}
}

func (c *call) stop() {
	if c.timer != nil {
		c.timer.Stop()
	}
}
