// Package eventbus is a bounded in-process publish/subscribe buffer. The
// service publishes its log entries here so operators can inspect recent
// activity without shell access.
package eventbus

import (
	"sync"
	"time"
)

const defaultCapacity = 100

// subscriberBuffer is the per-subscriber channel depth. Events are dropped
// for subscribers whose buffer is full.
const subscriberBuffer = 64

// Event is one published entry.
type Event struct {
	ID        uint64         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// Bus keeps the most recent events in a ring and fans new ones out to
// subscribers.
type Bus struct {
	mu      sync.RWMutex
	ring    []Event
	start   int
	size    int
	nextID  uint64
	subs    map[uint64]chan Event
	nextSub uint64
	closed  bool
	now     func() time.Time
}

// New creates a bus retaining up to capacity events.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Bus{
		ring: make([]Event, capacity),
		subs: make(map[uint64]chan Event),
		now:  time.Now,
	}
}

// Publish records an event and delivers it to subscribers. Publishing on a
// closed bus is a no-op.
func (b *Bus) Publish(level, message string, data map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.nextID++
	ev := Event{
		ID:        b.nextID,
		Timestamp: b.now().UTC(),
		Level:     level,
		Message:   message,
		Data:      data,
	}

	capacity := len(b.ring)
	if b.size < capacity {
		b.ring[(b.start+b.size)%capacity] = ev
		b.size++
	} else {
		b.ring[b.start] = ev
		b.start = (b.start + 1) % capacity
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Snapshot returns retained events, oldest first.
func (b *Bus) Snapshot() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, b.size)
	for i := 0; i < b.size; i++ {
		out = append(out, b.ring[(b.start+i)%len(b.ring)])
	}
	return out
}

// Clear drops retained events. Subscribers stay attached.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.start = 0
	b.size = 0
}

// Subscribe returns a channel of future events and a cancel func. The
// channel is closed by cancel or by Close.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.nextSub++
	id := b.nextSub
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Close detaches all subscribers and stops accepting events.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
