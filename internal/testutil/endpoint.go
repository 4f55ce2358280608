package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/recbuf/internal/recbuf/protocol"
)

// Endpoint is a scriptable worker endpoint. It records every posted request
// and only answers when the test calls Respond.
type Endpoint struct {
	mu         sync.Mutex
	requests   []protocol.Request
	postErr    error
	terminated bool
	posted     chan struct{}
	out        chan protocol.Response
}

// NewEndpoint creates an endpoint whose response channel holds up to 1024
// undelivered responses.
func NewEndpoint() *Endpoint {
	return &Endpoint{
		posted: make(chan struct{}, 1024),
		out:    make(chan protocol.Response, 1024),
	}
}

// SetPostError makes every subsequent Post fail with err.
func (e *Endpoint) SetPostError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.postErr = err
}

func (e *Endpoint) Post(req protocol.Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.postErr != nil {
		return e.postErr
	}
	e.requests = append(e.requests, req)
	select {
	case e.posted <- struct{}{}:
	default:
	}
	return nil
}

func (e *Endpoint) Responses() <-chan protocol.Response {
	return e.out
}

func (e *Endpoint) Terminate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.terminated = true
}

// Terminated reports whether Terminate was called.
func (e *Endpoint) Terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminated
}

// Requests returns a copy of the posted requests in post order.
func (e *Endpoint) Requests() []protocol.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]protocol.Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// WaitForRequests blocks until n requests in total have been posted.
func (e *Endpoint) WaitForRequests(t *testing.T, n int) []protocol.Request {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		reqs := e.Requests()
		if len(reqs) >= n {
			return reqs
		}
		select {
		case <-e.posted:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %d requests, have %d", n, len(reqs))
		}
	}
}

// Respond delivers resp to the buffer.
func (e *Endpoint) Respond(resp protocol.Response) {
	e.out <- resp
}

// Succeed answers req successfully with payload.
func (e *Endpoint) Succeed(req protocol.Request, payload []byte) {
	e.Respond(protocol.Succeed(req, payload))
}

// Fail answers req with a worker-side failure.
func (e *Endpoint) Fail(req protocol.Request, err error) {
	e.Respond(protocol.Fail(req, err))
}

// Close closes the response channel, as a worker does when it exits.
func (e *Endpoint) Close() {
	close(e.out)
}
