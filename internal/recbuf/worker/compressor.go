package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/julianstephens/recbuf/internal/logger"
	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/protocol"
)

// ackPayload is the acknowledgement returned for a successful addEvent.
var ackPayload = []byte("true")

// Endpoint is the buffer's view of a worker: requests go in, exactly one
// response per request comes out, possibly out of order.
type Endpoint interface {
	// Post hands a request to the worker. It does not wait for the response.
	Post(req protocol.Request) error

	// Responses delivers worker responses. The channel is closed once the
	// worker has stopped.
	Responses() <-chan protocol.Response

	// Terminate stops the worker. Pending requests are abandoned.
	Terminate()
}

// Spawner starts a worker. A nil Spawner means the host has no worker runtime.
type Spawner func() (Endpoint, error)

// CompressorOpts configures a Compressor.
type CompressorOpts struct {
	Codec     Codec
	QueueSize int
}

// Compressor is an Endpoint that compresses events on its own goroutine.
// All compression state is owned by that goroutine and reached only through
// the request channel.
type Compressor struct {
	codec  Codec
	inbox  chan protocol.Request
	out    chan protocol.Response
	done   chan struct{}
	once   sync.Once
	logger logger.Logger

	// owned by run
	buf   bytes.Buffer
	w     io.WriteCloser
	count int
}

// Spawn starts a Compressor goroutine.
func Spawn(opts CompressorOpts, lg logger.Logger) (*Compressor, error) {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}

	codec, err := ParseCodec(string(opts.Codec))
	if err != nil {
		return nil, err
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = recbuf.DefaultWorkerQueueSize
	}

	c := &Compressor{
		codec:  codec,
		inbox:  make(chan protocol.Request, opts.QueueSize),
		out:    make(chan protocol.Response, opts.QueueSize),
		done:   make(chan struct{}),
		logger: lg,
	}
	go c.run()

	lg.Debug("compression worker started", "codec", codec, "queue_size", opts.QueueSize)
	return c, nil
}

// DefaultSpawner returns the in-process worker runtime for opts.
func DefaultSpawner(opts recbuf.BufferOptions, lg logger.Logger) Spawner {
	return func() (Endpoint, error) {
		return Spawn(CompressorOpts{Codec: Codec(opts.Codec), QueueSize: opts.WorkerQueueSize}, lg)
	}
}

// Codec returns the compressor's codec.
func (c *Compressor) Codec() Codec {
	return c.codec
}

// Post queues req. It blocks while the inbox is full and fails once the
// compressor has been terminated.
func (c *Compressor) Post(req protocol.Request) error {
	select {
	case <-c.done:
		return ErrTerminated
	default:
	}

	select {
	case c.inbox <- req:
		return nil
	case <-c.done:
		return ErrTerminated
	}
}

func (c *Compressor) Responses() <-chan protocol.Response {
	return c.out
}

func (c *Compressor) Terminate() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Compressor) run() {
	defer close(c.out)
	defer c.reset()

	for {
		select {
		case <-c.done:
			return
		case req := <-c.inbox:
			resp := c.handle(req)
			select {
			case c.out <- resp:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Compressor) handle(req protocol.Request) protocol.Response {
	switch req.Method {
	case protocol.MethodInit:
		c.reset()
		return protocol.Succeed(req, nil)

	case protocol.MethodAddEvent:
		args, err := protocol.DecodeArgs(req.Args)
		if err != nil {
			c.logger.Warn("undecodable addEvent args", "id", req.ID, "reason", "decode_args")
			return protocol.Fail(req, err)
		}
		if len(args) == 0 {
			// Nothing survived serialization on the sending side.
			return protocol.Succeed(req, ackPayload)
		}
		if err := c.append(args[0]); err != nil {
			c.logger.Error("failed to compress event", err, "id", req.ID, "count", c.count)
			return protocol.Fail(req, err)
		}
		return protocol.Succeed(req, ackPayload)

	case protocol.MethodFinish:
		payload, err := c.finish()
		c.reset()
		if err != nil {
			c.logger.Error("failed to finish compression", err, "id", req.ID)
			return protocol.Fail(req, err)
		}
		c.logger.Debug("compression finished", "id", req.ID, "size", len(payload))
		return protocol.Succeed(req, payload)

	default:
		return protocol.Fail(req, fmt.Errorf("%w: %q", protocol.ErrUnknownMethod, req.Method))
	}
}

// open starts a new JSON array in a fresh compressed stream.
func (c *Compressor) open() error {
	if c.w != nil {
		return nil
	}
	w, err := newWriter(c.codec, &c.buf)
	if err != nil {
		return err
	}
	c.w = w
	return c.write([]byte("["))
}

func (c *Compressor) append(raw json.RawMessage) error {
	if err := c.open(); err != nil {
		return err
	}
	if c.count > 0 {
		if err := c.write([]byte(",")); err != nil {
			return err
		}
	}
	if err := c.write(raw); err != nil {
		return err
	}
	c.count++
	return nil
}

func (c *Compressor) finish() ([]byte, error) {
	if err := c.open(); err != nil {
		return nil, err
	}
	if err := c.write([]byte("]")); err != nil {
		return nil, err
	}
	err := c.w.Close()
	c.w = nil
	if err != nil {
		return nil, &CodecError{Codec: string(c.codec), Err: ErrCompress, Cause: err}
	}

	payload := make([]byte, c.buf.Len())
	copy(payload, c.buf.Bytes())
	return payload, nil
}

func (c *Compressor) write(p []byte) error {
	if _, err := c.w.Write(p); err != nil {
		return &CodecError{Codec: string(c.codec), Err: ErrCompress, Cause: err}
	}
	return nil
}

// reset discards the current stream so the next event starts a new cycle.
func (c *Compressor) reset() {
	if c.w != nil {
		_ = c.w.Close()
		c.w = nil
	}
	c.buf.Reset()
	c.count = 0
}
