package hotkey

import (
	"context"
	"sync"
)

// Broker fans events out to any number of subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with a buffer of buf events. The returned
// func unsubscribes and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(buf int) (<-chan Event, func()) {
	ch := make(chan Event, max(buf, 0))

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers ev to every subscriber with room and returns how many
// received it.
func (b *Broker) Publish(ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, ch := range b.subs {
		select {
		case ch <- ev:
			n++
		default:
		}
	}
	return n
}

// Close closes every subscription. Later subscriptions are closed at once.
func (b *Broker) Close() {
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

// Emitter receives forwarded events, e.g. a UI event bus.
type Emitter func(category, label string)

// Forward calls emit for each event on sub until sub is closed or ctx is done.
func Forward(ctx context.Context, sub <-chan Event, emit Emitter) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			emit(ev.Category, ev.Label)
		}
	}
}
