package bus

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisBus carries domain events over Redis pub/sub. The bridge side uses a
// match-all pattern subscription, so the Redis channel name doubles as the
// room name.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(redisURI string) (*RedisBus, error) {
	log := log.WithField("prefix", "NewRedisBus")

	opts, err := redis.ParseURL(redisURI)
	if err != nil {
		log.Errorf("failed to parse Redis URI: %v", err)
		return nil, err
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Errorf("failed to connect to Redis: %v", err)
		return nil, err
	}

	log.Info("successfully connected to Redis")
	return &RedisBus{client: rdb}, nil
}

func (b *RedisBus) Publish(ctx context.Context, channel string, body []byte) error {
	log := log.WithField("prefix", "RedisBus.Publish")

	if err := b.client.Publish(ctx, channel, body).Err(); err != nil {
		log.Errorf("failed to publish to channel %s: %v", channel, err)
		return err
	}
	return nil
}

// SubscribeAll pattern-subscribes to every channel. go-redis re-establishes
// the pattern subscription itself after a connection loss; deliveries during
// the gap are lost, which matches the at-most-once contract.
func (b *RedisBus) SubscribeAll(ctx context.Context, messageCh chan<- Message) error {
	log := log.WithField("prefix", "RedisBus.SubscribeAll")

	pubsub := b.client.PSubscribe(ctx, "*")

	// Force the subscription to be created before we report success.
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Errorf("failed to subscribe: %v", err)
		pubsub.Close()
		return err
	}
	log.Info("subscribed to all channels")

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Info("pubsub channel closed")
					return
				}
				messageCh <- Message{Channel: msg.Channel, Body: []byte(msg.Payload)}
			}
		}
	}()
	return nil
}

func (b *RedisBus) HealthCheck() error {
	log := log.WithField("prefix", "RedisBus.HealthCheck")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := b.client.Ping(ctx).Result(); err != nil {
		log.Errorf("Redis health check failed: %v", err)
		return err
	}
	return nil
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
