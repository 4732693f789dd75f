// Package events implements the in-process EventBus (§4.9).
package events

import (
	"sync"

	"github.com/GSejas/health-watch-sub002/internal/domain/events"
)

// DefaultBufferSize is the per-subscriber channel buffer.
const DefaultBufferSize = 64

// Bus implements events.Bus with a simple pub/sub fan-out. Delivery is
// non-blocking per subscriber: a slow subscriber drops events rather
// than stalling the publisher (§4.9 "synchronous, best-effort").
type Bus struct {
	mu          sync.RWMutex
	subscribers map[<-chan events.Event]chan events.Event
	bufferSize  int
	closed      bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize overrides the per-subscriber channel buffer size.
//
// Params:
//   - size: buffer capacity; ignored if not positive.
//
// Returns:
//   - Option: applies the override.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// New constructs a Bus.
//
// Params:
//   - opts: optional configuration.
//
// Returns:
//   - *Bus: ready to use.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[<-chan events.Event]chan events.Event),
		bufferSize:  DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish implements events.Publisher.
func (b *Bus) Publish(event events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// subscriber buffer full; drop rather than block the publisher
		}
	}
}

// Subscribe implements events.Subscriber.
func (b *Bus) Subscribe() <-chan events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan events.Event)
		close(ch)
		return ch
	}

	ch := make(chan events.Event, b.bufferSize)
	b.subscribers[ch] = ch
	return ch
}

// Unsubscribe implements events.Subscriber.
func (b *Bus) Unsubscribe(ch <-chan events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if writeCh, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(writeCh)
	}
}

// Close implements events.Bus.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for readCh, writeCh := range b.subscribers {
		delete(b.subscribers, readCh)
		close(writeCh)
	}
}

// SubscriberCount reports the current number of live subscribers,
// mainly for diagnostics and tests.
//
// Returns:
//   - int: subscriber count.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

var _ events.Bus = (*Bus)(nil)
