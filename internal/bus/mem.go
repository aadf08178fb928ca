package bus

import (
	"context"
	"sync"
)

// MemBus is an in-process bus for tests and single-node development.
type MemBus struct {
	lock        sync.Mutex
	subscribers []chan<- Message
}

func NewMemBus() *MemBus {
	return &MemBus{}
}

func (b *MemBus) Publish(ctx context.Context, channel string, body []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- Message{Channel: channel, Body: body}:
		default:
			// Subscriber is not keeping up, skip.
		}
	}
	return nil
}

func (b *MemBus) SubscribeAll(ctx context.Context, messageCh chan<- Message) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.subscribers = append(b.subscribers, messageCh)
	return nil
}

// HasSubscribers reports whether any subscription is active. Used by tests
// to wait for a consumer before publishing.
func (b *MemBus) HasSubscribers() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.subscribers) > 0
}

func (b *MemBus) HealthCheck() error {
	return nil
}

func (b *MemBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.subscribers = nil
	return nil
}
