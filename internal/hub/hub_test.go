package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrawl-dev/scrawl/pkg/canvas"
)

// testSub registers a subscriber with a buffered channel and cleans it up
// with the test.
func testSub(t *testing.T, h *Hub, id string, buffer int) chan Event {
	t.Helper()

	ch := make(chan Event, buffer)
	done := make(chan struct{})
	h.Register(id, ch, done)
	t.Cleanup(func() {
		h.Unregister(id)
		close(done)
	})

	return ch
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()

	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func TestEventText(t *testing.T) {
	ev := Event{X: 1, Y: 2, Cell: canvas.Cell{R: 10, G: 20, B: 30, A: 40}}
	assert.Equal(t, "set 1 2 10 20 30 40", ev.Text())
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := New(zap.NewNop())

	a := testSub(t, h, "a", 4)
	b := testSub(t, h, "b", 4)
	c := testSub(t, h, "c", 4)
	require.Equal(t, 3, h.Count())

	ev := Event{X: 3, Y: 4, Cell: canvas.Cell{R: 9}}
	h.Publish(ev)

	assert.Equal(t, ev, recvEvent(t, a))
	assert.Equal(t, ev, recvEvent(t, b))
	assert.Equal(t, ev, recvEvent(t, c))
}

func TestBlockedSubscriberDoesNotDelayOthers(t *testing.T) {
	h := New(zap.NewNop())

	// Unbuffered channel with no reader: permanently blocked.
	blocked := make(chan Event)
	blockedDone := make(chan struct{})
	h.Register("blocked", blocked, blockedDone)
	defer close(blockedDone)

	healthy := testSub(t, h, "healthy", 1)

	h.Publish(Event{X: 1, Y: 1})
	assert.Equal(t, Event{X: 1, Y: 1}, recvEvent(t, healthy))
}

func TestPerSubscriberOrder(t *testing.T) {
	h := New(zap.NewNop())

	// Receive each event before publishing the next so deliveries cannot
	// interleave; the channel must then yield events in publish order.
	ch := make(chan Event, 16)
	done := make(chan struct{})
	h.Register("sub", ch, done)
	defer close(done)

	for i := 0; i < 10; i++ {
		h.Publish(Event{X: uint32(i)})
		require.Equal(t, uint32(i), recvEvent(t, ch).X)
	}
}

func TestUnregister(t *testing.T) {
	h := New(zap.NewNop())

	ch := make(chan Event, 1)
	done := make(chan struct{})
	h.Register("a", ch, done)
	h.Unregister("a")
	close(done)

	require.Zero(t, h.Count())
	h.Publish(Event{X: 1})

	select {
	case ev := <-ch:
		t.Fatalf("unexpected delivery after unregister: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegisterOverwrites(t *testing.T) {
	h := New(zap.NewNop())

	old := make(chan Event, 1)
	oldDone := make(chan struct{})
	h.Register("a", old, oldDone)
	close(oldDone)

	replacement := testSub(t, h, "a", 1)
	require.Equal(t, 1, h.Count())

	h.Publish(Event{X: 7})
	assert.Equal(t, Event{X: 7}, recvEvent(t, replacement))

	select {
	case ev := <-old:
		t.Fatalf("unexpected delivery to replaced channel: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterUnknownIDIsNoOp(t *testing.T) {
	h := New(zap.NewNop())
	h.Unregister("ghost")
	assert.Zero(t, h.Count())
}
