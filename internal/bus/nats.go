package bus

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// NatsBus carries domain events over core NATS subjects. No JetStream: the
// pipeline is at-most-once end to end, so plain subjects are enough.
type NatsBus struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

func NewNatsBus(natsURI string) (*NatsBus, error) {
	log := log.WithField("prefix", "NewNatsBus")

	nc, err := nats.Connect(natsURI,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Errorf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		log.Errorf("failed to connect to NATS: %v", err)
		return nil, err
	}

	log.Info("connected to NATS")
	return &NatsBus{nc: nc}, nil
}

func (b *NatsBus) Publish(ctx context.Context, channel string, body []byte) error {
	log := log.WithField("prefix", "NatsBus.Publish")

	if err := b.nc.Publish(channel, body); err != nil {
		log.Errorf("failed to publish to subject %s: %v", channel, err)
		return err
	}
	return nil
}

// SubscribeAll subscribes to the ">" wildcard. The server restores the
// subscription on reconnect; messages published during the gap are lost.
func (b *NatsBus) SubscribeAll(ctx context.Context, messageCh chan<- Message) error {
	log := log.WithField("prefix", "NatsBus.SubscribeAll")

	sub, err := b.nc.Subscribe(">", func(msg *nats.Msg) {
		select {
		case <-ctx.Done():
		case messageCh <- Message{Channel: msg.Subject, Body: msg.Data}:
		}
	})
	if err != nil {
		log.Errorf("failed to subscribe: %v", err)
		return err
	}
	b.sub = sub

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			log.Errorf("failed to unsubscribe: %v", err)
		}
	}()

	log.Info("subscribed to all subjects")
	return nil
}

func (b *NatsBus) HealthCheck() error {
	if !b.nc.IsConnected() {
		return fmt.Errorf("NATS connection is not active")
	}
	return nil
}

func (b *NatsBus) Close() error {
	if b.nc != nil {
		b.nc.Close()
	}
	return nil
}
