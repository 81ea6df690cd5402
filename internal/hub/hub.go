// Package hub fans mutation events out to every live subscriber connection.
//
// Delivery is fire-and-forget: Publish hands the event to one goroutine per
// subscriber, so a blocked or dead subscriber never delays the others. Each
// subscriber sees its own events in publish order (they all flow through its
// single channel); there is no ordering guarantee across subscribers.
package hub

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/scrawl-dev/scrawl/pkg/canvas"
)

// Event is one accepted cell mutation.
type Event struct {
	X, Y uint32
	Cell canvas.Cell
}

// Text returns the broadcast wire form of the event.
func (e Event) Text() string {
	return fmt.Sprintf("set %d %d %d %d %d %d", e.X, e.Y, e.Cell.R, e.Cell.G, e.Cell.B, e.Cell.A)
}

// subscription pairs a subscriber's event channel with its lifetime signal.
// A delivery goroutine blocked on the channel is released when done closes,
// bounding its existence by the subscriber's own lifetime.
type subscription struct {
	events chan<- Event
	done   <-chan struct{}
}

// Hub tracks the live set of subscriber channels. The registry is guarded by
// a read-write lock: Publish snapshots it under the read lock and releases
// the lock before any send happens.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]subscription
	log  *zap.Logger
}

// New creates an empty hub.
func New(log *zap.Logger) *Hub {
	return &Hub{
		subs: make(map[string]subscription),
		log:  log,
	}
}

// Register adds a subscriber's outbound channel under id, overwriting any
// previous registration for the same id. done must be closed by the owning
// session when it ends so pending deliveries can be abandoned.
func (h *Hub) Register(id string, events chan<- Event, done <-chan struct{}) {
	h.mu.Lock()
	h.subs[id] = subscription{events: events, done: done}
	n := len(h.subs)
	h.mu.Unlock()

	h.log.Info("subscriber registered", zap.String("conn", id), zap.Int("subscribers", n))
}

// Unregister removes the subscriber registered under id. It is a no-op for
// an unknown id. Cleanup is the owning session's responsibility; the hub
// never removes subscribers on failed sends.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	_, ok := h.subs[id]
	delete(h.subs, id)
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.log.Info("subscriber unregistered", zap.String("conn", id), zap.Int("subscribers", n))
	}
}

// Publish delivers ev to every currently registered subscriber, each on its
// own goroutine. It returns without waiting for any delivery.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	targets := make([]subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		sub := sub
		go func() {
			select {
			case sub.events <- ev:
			case <-sub.done:
			}
		}()
	}
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
