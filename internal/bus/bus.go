package bus

import (
	"context"
	"fmt"
)

// Message is one raw bus delivery: the origination channel plus the
// undecoded body.
type Message struct {
	Channel string
	Body    []byte
}

// Bus is the shared publish/subscribe transport between the domain layer and
// the bridge. Delivery is at-most-once; nothing is persisted or replayed.
type Bus interface {
	// Publish sends body on the given channel.
	Publish(ctx context.Context, channel string, body []byte) error
	// SubscribeAll subscribes to the full channel namespace and forwards
	// every delivery to messageCh until ctx is cancelled. Messages published
	// while the underlying connection is down are lost.
	SubscribeAll(ctx context.Context, messageCh chan<- Message) error
	HealthCheck() error
	Close() error
}

func NewBus(busType, uri, exchange string) (Bus, error) {
	switch busType {
	case "redis", "valkey":
		return NewRedisBus(uri)
	case "nats":
		return NewNatsBus(uri)
	case "amqp", "rabbitmq":
		return NewAmqpBus(uri, exchange)
	case "memory":
		return NewMemBus(), nil
	default:
		return nil, fmt.Errorf("unsupported bus type: %s", busType)
	}
}
