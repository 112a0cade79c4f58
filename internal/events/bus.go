// Package events is the in-process publish/subscribe surface used by the
// ingress process to announce state changes (§7): every core state
// transition both persists an Event row (via store) and publishes on this
// bus so a connected chat ingress can announce it without polling.
package events

import (
	"sync"

	"github.com/forgelane/conductor/internal/domain"
)

// Bus fans out published events to every active subscriber. A subscriber
// that falls behind misses the events published while its buffer is full
// (it stays subscribed) rather than blocking publishers — announcements are
// best-effort; the durable record is the store's events
// table.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan domain.Event
	next int
}

// NewBus returns an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan domain.Event)}
}

// Subscribe registers a new listener with a bounded buffer and returns an
// unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan domain.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan domain.Event, buffer)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			close(c)
			delete(b.subs, id)
		}
	}
}

// Publish fans an event out to every subscriber, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) Publish(e domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
