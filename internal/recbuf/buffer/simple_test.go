package buffer_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/recbuf/internal/logger"
	"github.com/julianstephens/recbuf/internal/recbuf/buffer"
	"github.com/julianstephens/recbuf/internal/recbuf/event"
	"github.com/julianstephens/recbuf/internal/testutil"
)

func mustFinish(t *testing.T, b buffer.Buffer) []byte {
	t.Helper()
	payload, err := b.Finish().Wait(context.Background())
	tst.RequireNoError(t, err)
	return payload
}

func TestSimple_AddEventPreservesOrder(t *testing.T) {
	b := buffer.NewSimple("s1", logger.NoOpLogger{})
	events := testutil.IncrementalEvents(100, 5)

	for _, ev := range events {
		ok, err := b.AddEvent(context.Background(), ev, false).Wait(context.Background())
		tst.RequireNoError(t, err)
		tst.AssertTrue(t, ok, "expected AddEvent to succeed")
	}

	tst.RequireDeepEqual(t, b.PendingLength(), 5)
	tst.RequireDeepEqual(t, b.PendingEvents(), events)
	tst.RequireDeepEqual(t, b.Kind(), buffer.KindSimple)
	tst.RequireDeepEqual(t, b.SessionID(), "s1")
}

func TestSimple_AddEventSettlesImmediately(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	fut := b.AddEvent(context.Background(), testutil.IncrementalEvents(1, 1)[0], false)

	ok, err, done := fut.Result()
	tst.AssertTrue(t, done, "expected simple AddEvent to be settled")
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, ok, "expected true acknowledgement")
}

func TestSimple_CheckoutReplacesEverything(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	for _, ev := range testutil.IncrementalEvents(1, 3) {
		b.AddEvent(context.Background(), ev, false)
	}

	checkout := testutil.Checkout(10)
	b.AddEvent(context.Background(), checkout, true)

	tst.RequireDeepEqual(t, b.PendingLength(), 1)
	tst.RequireDeepEqual(t, b.PendingEvents(), []event.Event{checkout})
}

func TestSimple_FinishRoundTrip(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	events := testutil.IncrementalEvents(1, 2)
	b.AddEvent(context.Background(), events[0], false)
	b.AddEvent(context.Background(), events[1], false)

	decoded, err := event.DecodeList(mustFinish(t, b))
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, decoded, events)
	tst.RequireDeepEqual(t, b.PendingLength(), 0)
}

func TestSimple_FinishAfterCheckout(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	e1 := testutil.IncrementalEvents(1, 1)[0]
	e2 := testutil.Checkout(2)
	b.AddEvent(context.Background(), e1, false)
	b.AddEvent(context.Background(), e2, true)

	decoded, err := event.DecodeList(mustFinish(t, b))
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, decoded, []event.Event{e2})
}

func TestSimple_FinishEmpty(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	decoded, err := event.DecodeList(mustFinish(t, b))
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, len(decoded), 0)
}

func TestSimple_EventAfterFinishGoesToNextFlush(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	events := testutil.IncrementalEvents(1, 3)

	b.AddEvent(context.Background(), events[0], false)
	fut := b.Finish()
	b.AddEvent(context.Background(), events[1], false)
	b.AddEvent(context.Background(), events[2], false)

	first, err := fut.Wait(context.Background())
	tst.RequireNoError(t, err)
	firstEvents, err := event.DecodeList(first)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, firstEvents, events[:1])

	secondEvents, err := event.DecodeList(mustFinish(t, b))
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, secondEvents, events[1:])
}

func TestSimple_ConcurrentFinishNeverOverlaps(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	const producers, perProducer = 4, 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for _, ev := range testutil.IncrementalEvents(int64(p*perProducer), perProducer) {
				b.AddEvent(context.Background(), ev, false)
			}
		}(p)
	}

	var mu sync.Mutex
	var seen []int64
	var fwg sync.WaitGroup
	for f := 0; f < 8; f++ {
		fwg.Add(1)
		go func() {
			defer fwg.Done()
			payload, err := b.Finish().Wait(context.Background())
			if err != nil {
				t.Errorf("finish failed: %v", err)
				return
			}
			events, err := event.DecodeList(payload)
			if err != nil {
				t.Errorf("decode failed: %v", err)
				return
			}
			mu.Lock()
			for _, ev := range events {
				seen = append(seen, ev.Timestamp)
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	fwg.Wait()

	rest, err := event.DecodeList(mustFinish(t, b))
	tst.RequireNoError(t, err)
	for _, ev := range rest {
		seen = append(seen, ev.Timestamp)
	}

	tst.RequireDeepEqual(t, len(seen), producers*perProducer)
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	for i, ts := range seen {
		tst.RequireDeepEqual(t, ts, int64(i))
	}
}

func TestSimple_FinishDropsUnserializableEvent(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	good := testutil.IncrementalEvents(1, 2)
	b.AddEvent(context.Background(), good[0], false)
	b.AddEvent(context.Background(), testutil.Unserializable(5), false)
	b.AddEvent(context.Background(), good[1], false)

	decoded, err := event.DecodeList(mustFinish(t, b))
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, decoded, good)
}

func TestSimple_PendingEventsIsSnapshot(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	b.AddEvent(context.Background(), testutil.IncrementalEvents(1, 1)[0], false)

	snap := b.PendingEvents()
	snap[0].Timestamp = 999

	tst.RequireDeepEqual(t, b.PendingEvents()[0].Timestamp, int64(1))
}

func TestSimple_Destroy(t *testing.T) {
	b := buffer.NewSimple("s1", nil)
	for _, ev := range testutil.IncrementalEvents(1, 3) {
		b.AddEvent(context.Background(), ev, false)
	}
	b.Destroy()
	tst.RequireDeepEqual(t, b.PendingLength(), 0)
}
