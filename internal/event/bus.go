package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

const subscriberBuffer = 100

type subscriber struct {
	id uint64
	ch chan Event
}

// InMemoryBus fans events out to every subscriber without ever blocking the
// publisher. A subscriber whose buffer is full misses the event.
type InMemoryBus struct {
	mu      sync.RWMutex
	subs    []subscriber
	nextID  uint64
	dropped atomic.Int64
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{}
}

func (b *InMemoryBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
			slog.Warn("event dropped for slow subscriber", "subscriber", sub.id, "type", e.Type, "event_id", e.ID)
		}
	}
}

// Subscribe registers a buffered channel. The returned function removes the
// subscription and closes the channel; calling it more than once is safe.
func (b *InMemoryBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	b.nextID++
	sub := subscriber{id: b.nextID, ch: make(chan Event, subscriberBuffer)}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { b.remove(sub.id) })
	}
}

// Dropped reports how many deliveries were skipped because a subscriber
// was full.
func (b *InMemoryBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *InMemoryBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			close(sub.ch)
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
