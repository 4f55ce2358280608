package buffer_test

import (
	"context"
	"errors"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/buffer"
	"github.com/julianstephens/recbuf/internal/recbuf/event"
	"github.com/julianstephens/recbuf/internal/recbuf/worker"
	"github.com/julianstephens/recbuf/internal/testutil"
)

func TestNew_WithoutCompression(t *testing.T) {
	called := false
	spawn := func() (worker.Endpoint, error) {
		called = true
		return testutil.NewEndpoint(), nil
	}

	b := buffer.New(recbuf.BufferOptions{UseCompression: false}, spawn, nil)
	defer b.Destroy()

	tst.RequireDeepEqual(t, b.Kind(), buffer.KindSimple)
	tst.AssertFalse(t, called, "spawner must not run without compression")
}

func TestNew_NoWorkerRuntime(t *testing.T) {
	b := buffer.New(recbuf.DefaultBufferOptions(), nil, nil)
	defer b.Destroy()
	tst.RequireDeepEqual(t, b.Kind(), buffer.KindSimple)
}

func TestNew_FallsBackOnSpawnFailure(t *testing.T) {
	cases := []struct {
		name  string
		spawn worker.Spawner
	}{
		{"error", func() (worker.Endpoint, error) { return nil, errors.New("no workers here") }},
		{"nil endpoint", func() (worker.Endpoint, error) { return nil, nil }},
		{"panic", func() (worker.Endpoint, error) { panic("worker constructor exploded") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := buffer.New(recbuf.DefaultBufferOptions(), tc.spawn, nil)
			defer b.Destroy()

			tst.RequireDeepEqual(t, b.Kind(), buffer.KindSimple)

			events := testutil.IncrementalEvents(1, 3)
			for _, ev := range events {
				ok, err := b.AddEvent(context.Background(), ev, false).Wait(context.Background())
				tst.RequireNoError(t, err)
				tst.AssertTrue(t, ok, "expected acknowledgement")
			}
			decoded, err := event.DecodeList(mustFinish(t, b))
			tst.RequireNoError(t, err)
			tst.RequireDeepEqual(t, decoded, events)
		})
	}
}

func TestNew_UnknownCodecFallsBack(t *testing.T) {
	opts := recbuf.DefaultBufferOptions()
	opts.Codec = "lz4"

	b := buffer.New(opts, worker.DefaultSpawner(opts, nil), nil)
	defer b.Destroy()
	tst.RequireDeepEqual(t, b.Kind(), buffer.KindSimple)
}

func TestNew_DefaultSpawner(t *testing.T) {
	opts := recbuf.DefaultBufferOptions()
	opts.Codec = string(worker.CodecZstd)

	b := buffer.New(opts, worker.DefaultSpawner(opts, nil), nil)
	defer b.Destroy()
	tst.RequireDeepEqual(t, b.Kind(), buffer.KindWorker)

	events := testutil.IncrementalEvents(1, 2)
	for _, ev := range events {
		b.AddEvent(context.Background(), ev, false)
	}
	payload := mustFinish(t, b)
	raw, err := worker.Decompress(worker.CodecZstd, payload, 0)
	tst.RequireNoError(t, err)
	decoded, err := event.DecodeList(raw)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, decoded, events)
}

func TestNew_SessionID(t *testing.T) {
	opts := recbuf.BufferOptions{SessionID: "session-1"}
	b := buffer.New(opts, nil, nil)
	tst.RequireDeepEqual(t, b.SessionID(), "session-1")

	a := buffer.New(recbuf.BufferOptions{}, nil, nil)
	c := buffer.New(recbuf.BufferOptions{}, nil, nil)
	tst.AssertTrue(t, a.SessionID() != "", "expected a generated session id")
	tst.AssertTrue(t, a.SessionID() != c.SessionID(), "expected distinct session ids")
}
