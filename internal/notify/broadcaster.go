package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

// Broadcaster fans notifications out to in-process subscribers such as the
// SSE stream.
type Broadcaster struct {
	subscribers map[uint64]chan Notification
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan Notification),
	}
}

func (b *Broadcaster) Subscribe() (uint64, <-chan Notification) {
	id := b.nextID.Add(1)
	ch := make(chan Notification, 32)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- n:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) Name() string { return "broadcast" }

func (b *Broadcaster) Send(ctx context.Context, n Notification) error {
	b.Broadcast(n)
	return nil
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
