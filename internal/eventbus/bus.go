// Package eventbus fans out harvest status transitions to any number of
// in-process subscribers, e.g. the websocket push handler. It is additive
// to the polling status endpoint, not a replacement for it.
package eventbus

import (
	"sync"
	"time"
)

// Event is one status transition: a scan moving into a new phase, with the
// running extraction total at the time of the transition.
type Event struct {
	ScanID         int64
	Status         string
	SnapshotName   string
	TotalExtracted int64
	Timestamp      time.Time
}

// Bus is an in-process event bus that routes status events to every
// subscriber. It uses Go channels for delivery and is safe for concurrent
// use.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	closed      bool
}

// New creates a new Bus ready for use.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a channel to receive every published Event. The
// caller is responsible for creating the channel with sufficient buffer
// capacity; slow subscribers have events dropped rather than block
// Publish.
func (b *Bus) Subscribe(ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, ch)
}

// Publish sends an event to every subscriber. If a subscriber's channel is
// full, the event is dropped for that subscriber. Publish is a no-op after
// Close.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			// drop if subscriber is slow
		}
	}
}

// Close marks the bus as closed. After Close, Publish is a no-op. Close
// does not close subscriber channels; that is the caller's responsibility.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
