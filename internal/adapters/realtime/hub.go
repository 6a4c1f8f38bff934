// Package realtime provides the in-process push channel and publisher fan-out.
package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/example/sitetrack/internal/ports/secondary"
)

const defaultBuffer = 16

// Hub broadcasts events to in-process subscribers without blocking. A full
// subscriber buffer drops the event and counts it.
type Hub struct {
	nextID      uint64
	dropped     atomic.Int64
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	buffer      int
}

type subscriber struct {
	ch        chan secondary.Event
	projectID string // empty receives every project
}

// NewHub constructs a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subscribers: make(map[uint64]subscriber),
		buffer:      buffer,
	}
}

// Subscribe registers a listener for projectID ("" for all projects). The
// channel closes when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, projectID string) <-chan secondary.Event {
	ch := make(chan secondary.Event, h.buffer)
	id := atomic.AddUint64(&h.nextID, 1)

	h.mu.Lock()
	h.subscribers[id] = subscriber{ch: ch, projectID: projectID}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subscribers, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish delivers the event to every matching subscriber. Never blocks.
func (h *Hub) Publish(ctx context.Context, event secondary.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if sub.projectID != "" && sub.projectID != event.ProjectID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Dropped returns how many deliveries were dropped for slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the number of registered listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

var _ secondary.EventPublisher = (*Hub)(nil)
