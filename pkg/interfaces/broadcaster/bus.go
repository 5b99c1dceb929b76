package broadcaster

import (
	"context"
	"sync"
)

// Bus is an in-process signal bus. Subscribers register per topic (or "*" for
// every topic) and can detach at any time. Subscribers run synchronously on the
// publishing goroutine, so they must return quickly.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Broadcaster
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[uint64]Broadcaster)}
}

var _ Broadcaster = (*Bus)(nil)

// Subscribe registers target for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic string, target Broadcaster) (unsubscribe func()) {
	if target == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Broadcaster)
	}
	b.subs[topic][id] = target
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			b.mu.Unlock()
		})
	}
}

// Broadcast delivers the event to subscribers of its topic and of "*".
func (b *Bus) Broadcast(ctx context.Context, event Event) error {
	b.mu.RLock()
	targets := make([]Broadcaster, 0, len(b.subs[event.Topic])+len(b.subs["*"]))
	for _, t := range b.subs[event.Topic] {
		targets = append(targets, t)
	}
	if event.Topic != "*" {
		for _, t := range b.subs["*"] {
			targets = append(targets, t)
		}
	}
	b.mu.RUnlock()

	return NewFanout(targets...).Broadcast(ctx, event)
}

// Len reports the number of registered subscribers for topic.
func (b *Bus) Len(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
