package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/recbuf/internal/logger"
	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/buffer"
	"github.com/julianstephens/recbuf/internal/recbuf/event"
	"github.com/julianstephens/recbuf/internal/recbuf/worker"
)

// defaultPackWindow bounds unacknowledged adds when the pending table is
// unbounded.
const defaultPackWindow = 256

// PackResult is a flushed recording.
type PackResult struct {
	Payload   []byte
	Kind      buffer.Kind
	Codec     worker.Codec // empty for KindSimple
	Events    int
	SessionID string
}

// Pack feeds events through a buffer from the factory and flushes it once.
// Full snapshots are added as checkouts, so the payload starts at the last
// one.
func Pack(ctx context.Context, events []event.Event, opts recbuf.BufferOptions, spawn worker.Spawner,
	lg logger.Logger) (*PackResult, error) {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}

	b := buffer.New(opts, spawn, lg)
	defer b.Destroy()

	window := packWindow(opts)
	inflight := make([]*buffer.Future[bool], 0, window)
	for _, ev := range events {
		if len(inflight) == window {
			if _, err := inflight[0].Wait(ctx); err != nil {
				return nil, err
			}
			inflight = inflight[1:]
		}
		inflight = append(inflight, b.AddEvent(ctx, ev, event.IsCheckoutType(ev.Type)))
	}
	for _, fut := range inflight {
		if _, err := fut.Wait(ctx); err != nil {
			return nil, err
		}
	}

	count := b.PendingLength()
	payload, err := b.Finish().Wait(ctx)
	if err != nil {
		return nil, err
	}

	res := &PackResult{Payload: payload, Kind: b.Kind(), Events: count, SessionID: b.SessionID()}
	if b.Kind() == buffer.KindWorker {
		res.Codec, _ = worker.ParseCodec(opts.Codec)
	}
	return res, nil
}

// packWindow leaves room in the pending table for init and finish requests.
func packWindow(opts recbuf.BufferOptions) int {
	if opts.MaxPendingRequests <= 0 {
		return defaultPackWindow
	}
	return max(1, opts.MaxPendingRequests/2)
}

// Unpack returns the JSON event array held in payload. codecName selects the
// codec; when empty it is detected, and an uncompressed payload is returned
// as is. The returned codec is empty for uncompressed payloads.
func Unpack(payload []byte, codecName string, maxBytes int) ([]byte, worker.Codec, error) {
	var codec worker.Codec
	if codecName != "" {
		c, err := worker.ParseCodec(codecName)
		if err != nil {
			return nil, "", err
		}
		codec = c
	} else if c, ok := worker.DetectCodec(payload); ok {
		codec = c
	}

	raw := payload
	if codec != "" {
		out, err := worker.Decompress(codec, payload, maxBytes)
		if err != nil {
			return nil, codec, err
		}
		raw = out
	}
	if _, err := event.DecodeList(raw); err != nil {
		return nil, codec, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return raw, codec, nil
}

// Summary describes the contents of a packed payload.
type Summary struct {
	Codec       worker.Codec
	StoredBytes int
	JSONBytes   int
	Events      int
	Checkouts   int
	First       int64
	Last        int64
	Types       map[event.Type]int
}

// Inspect decodes payload and summarizes its events.
func Inspect(payload []byte, codecName string, maxBytes int) (*Summary, error) {
	raw, codec, err := Unpack(payload, codecName, maxBytes)
	if err != nil {
		return nil, err
	}
	events, err := event.DecodeList(raw)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Codec:       codec,
		StoredBytes: len(payload),
		JSONBytes:   len(raw),
		Events:      len(events),
		Types:       make(map[event.Type]int),
	}
	for _, ev := range events {
		s.Types[ev.Type]++
		if event.IsCheckoutType(ev.Type) {
			s.Checkouts++
		}
	}
	s.First, s.Last, _ = event.Span(events)
	return s, nil
}

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "codec:     %s\n", codecLabel(s.Codec))
	fmt.Fprintf(&b, "size:      %d bytes (%d bytes JSON)\n", s.StoredBytes, s.JSONBytes)
	fmt.Fprintf(&b, "events:    %d\n", s.Events)
	fmt.Fprintf(&b, "checkouts: %d\n", s.Checkouts)
	if s.Events > 0 {
		fmt.Fprintf(&b, "span:      %d..%d (%dms)\n", s.First, s.Last, s.Last-s.First)
	}
	for t := event.TypeDomContentLoaded; t <= event.TypePlugin; t++ {
		if n := s.Types[t]; n > 0 {
			fmt.Fprintf(&b, "  %-22s %d\n", t, n)
		}
	}
	return b.String()
}
