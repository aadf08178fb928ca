package bridge

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/olechat/chatbridge/internal/bus"
	"github.com/olechat/chatbridge/internal/models"
)

var (
	consumedMessagesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_consumed_bus_messages",
		Help: "The total number of bus messages received",
	})
	droppedMessagesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_dropped_bus_messages",
		Help: "The total number of bus messages dropped before broadcast",
	}, []string{"reason"})
)

// Broadcaster is the slice of the room registry the bridge needs.
type Broadcaster interface {
	Broadcast(room, event string, payload json.RawMessage) int
}

// Bridge consumes every bus message, derives the public event name and
// re-emits the payload to the room named after the origination channel.
// It holds no domain state.
type Bridge struct {
	bus bus.Bus
	hub Broadcaster
}

func NewBridge(b bus.Bus, h Broadcaster) *Bridge {
	return &Bridge{bus: b, hub: h}
}

// Run subscribes once to the full bus namespace and dispatches until ctx is
// cancelled. A malformed message is dropped and logged; the loop never
// terminates because of one.
func (b *Bridge) Run(ctx context.Context) error {
	log := log.WithField("prefix", "Bridge.Run")

	messageCh := make(chan bus.Message, 256)
	if err := b.bus.SubscribeAll(ctx, messageCh); err != nil {
		log.Errorf("failed to subscribe to bus: %v", err)
		return err
	}
	log.Info("bridge subscribed to bus")

	for {
		select {
		case <-ctx.Done():
			log.Info("bridge stopped")
			return ctx.Err()
		case msg := <-messageCh:
			consumedMessagesMetric.Inc()
			b.dispatch(msg)
		}
	}
}

func (b *Bridge) dispatch(msg bus.Message) {
	log := log.WithField("prefix", "Bridge.dispatch")

	var envelope models.BusEnvelope
	if err := json.Unmarshal(msg.Body, &envelope); err != nil {
		droppedMessagesMetric.WithLabelValues("malformed_json").Inc()
		log.Errorf("dropping message on %s: %v", msg.Channel, err)
		return
	}
	if envelope.Event == "" {
		droppedMessagesMetric.WithLabelValues("missing_event").Inc()
		log.Errorf("dropping message on %s: no event name", msg.Channel)
		return
	}

	event := msg.Channel + ":" + PublicEventName(envelope.Event)
	delivered := b.hub.Broadcast(msg.Channel, event, envelope.Data)
	log.Debugf("event %s delivered to %d clients", event, delivered)
}

// PublicEventName rewrites the producer's nested-namespace separator to the
// public dotted form: `Message\Read` becomes `Message.Read`. It is a literal
// substitution; case and everything else are preserved.
func PublicEventName(event string) string {
	return strings.ReplaceAll(event, `\`, ".")
}
