package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// AmqpBus carries domain events over a RabbitMQ topic exchange. The routing
// key is the channel name; the bridge consumes from an exclusive queue bound
// with the "#" wildcard.
type AmqpBus struct {
	uri      string
	exchange string

	mux     sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

func NewAmqpBus(amqpURI, exchange string) (*AmqpBus, error) {
	log := log.WithField("prefix", "NewAmqpBus")

	b := &AmqpBus{uri: amqpURI, exchange: exchange}
	if err := b.connect(); err != nil {
		log.Errorf("failed to connect to RabbitMQ: %v", err)
		return nil, err
	}

	log.Infof("connected to RabbitMQ, exchange %s", exchange)
	return b, nil
}

func (b *AmqpBus) connect() error {
	b.mux.Lock()
	defer b.mux.Unlock()

	conn, err := amqp.Dial(b.uri)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	b.conn = conn
	b.channel = ch
	return nil
}

func (b *AmqpBus) Publish(ctx context.Context, channel string, body []byte) error {
	log := log.WithField("prefix", "AmqpBus.Publish")

	b.mux.Lock()
	ch := b.channel
	b.mux.Unlock()
	if ch == nil {
		return fmt.Errorf("AMQP channel is not open")
	}

	err := ch.PublishWithContext(ctx, b.exchange, channel, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.Errorf("failed to publish to %s: %v", channel, err)
		return err
	}
	return nil
}

// SubscribeAll consumes everything the exchange routes. On connection loss it
// reconnects with backoff and re-establishes the binding; deliveries during
// the gap are lost.
func (b *AmqpBus) SubscribeAll(ctx context.Context, messageCh chan<- Message) error {
	log := log.WithField("prefix", "AmqpBus.SubscribeAll")

	deliveries, closeCh, err := b.consume()
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					deliveries = nil
					continue
				}
				messageCh <- Message{Channel: d.RoutingKey, Body: d.Body}
			case closeErr := <-closeCh:
				if b.isClosed() {
					return
				}
				log.Errorf("RabbitMQ connection closed: %v", closeErr)
				deliveries, closeCh = b.reconnect(ctx)
				if deliveries == nil {
					return
				}
			}
		}
	}()

	log.Info("consuming all routing keys")
	return nil
}

func (b *AmqpBus) consume() (<-chan amqp.Delivery, chan *amqp.Error, error) {
	b.mux.Lock()
	defer b.mux.Unlock()

	q, err := b.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := b.channel.QueueBind(q.Name, "#", b.exchange, false, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to bind queue: %w", err)
	}
	deliveries, err := b.channel.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to consume: %w", err)
	}

	closeCh := b.conn.NotifyClose(make(chan *amqp.Error, 1))
	return deliveries, closeCh, nil
}

func (b *AmqpBus) reconnect(ctx context.Context) (<-chan amqp.Delivery, chan *amqp.Error) {
	log := log.WithField("prefix", "AmqpBus.reconnect")

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(backoff):
		}

		if err := b.connect(); err == nil {
			if deliveries, closeCh, err := b.consume(); err == nil {
				log.Info("successfully reconnected to RabbitMQ")
				return deliveries, closeCh
			}
		}

		log.Errorf("reconnect attempt failed, retrying in %v", backoff)
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (b *AmqpBus) isClosed() bool {
	b.mux.Lock()
	defer b.mux.Unlock()
	return b.closed
}

func (b *AmqpBus) HealthCheck() error {
	b.mux.Lock()
	defer b.mux.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is not active")
	}
	return nil
}

func (b *AmqpBus) Close() error {
	b.mux.Lock()
	defer b.mux.Unlock()

	b.closed = true
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
