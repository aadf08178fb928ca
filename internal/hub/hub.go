package hub

import (
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/olechat/chatbridge/internal/models"
)

var (
	activeConnectionsMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_active_connections",
		Help: "The number of connected websocket clients",
	})
	activeSubscriptionsMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_active_subscriptions",
		Help: "The number of live room memberships",
	})
	deliveredEventsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_delivered_events",
		Help: "The total number of events enqueued to clients",
	})
	droppedFramesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_dropped_frames",
		Help: "The total number of frames dropped on slow clients",
	})
	deniedJoinsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_denied_joins",
		Help: "The total number of rejected room join attempts",
	})
)

// Hub owns the room registry: room name to the set of clients joined to it.
// It is mutated by the websocket side (joins, leaves, disconnects) and read
// by the bridge during broadcasts, so every access goes through the lock.
type Hub struct {
	mux   sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Join adds the client to a room. Joining twice has no additional effect.
func (h *Hub) Join(c *Client, room string) {
	h.mux.Lock()
	defer h.mux.Unlock()

	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	if _, ok := members[c]; ok {
		return
	}
	members[c] = struct{}{}
	activeSubscriptionsMetric.Inc()
}

// Leave removes the client from a room; empty member sets are discarded.
func (h *Hub) Leave(c *Client, room string) {
	h.mux.Lock()
	defer h.mux.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, ok := members[c]; !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	activeSubscriptionsMetric.Dec()
}

// RemoveClient releases every membership the client holds. Called on
// disconnect, immediately and unconditionally.
func (h *Hub) RemoveClient(c *Client) {
	h.mux.Lock()
	defer h.mux.Unlock()

	for room, members := range h.rooms {
		if _, ok := members[c]; ok {
			h.leaveLocked(c, room)
		}
	}
}

// RoomSize reports the current member count of a room.
func (h *Hub) RoomSize(room string) int {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return len(h.rooms[room])
}

// Broadcast delivers payload tagged with event to every member of room and
// returns the number of clients it was enqueued to. The member set is
// snapshotted under the read lock; writes happen outside it so a slow client
// cannot stall a concurrent join. A room with no members is a no-op.
func (h *Hub) Broadcast(room, event string, payload json.RawMessage) int {
	log := log.WithField("prefix", "Hub.Broadcast")

	h.mux.RLock()
	members := h.rooms[room]
	clients := make([]*Client, 0, len(members))
	for c := range members {
		clients = append(clients, c)
	}
	h.mux.RUnlock()

	if len(clients) == 0 {
		return 0
	}

	frame, err := json.Marshal(models.OutboundFrame{
		Type:  models.FrameEvent,
		Room:  room,
		Event: event,
		Data:  payload,
	})
	if err != nil {
		log.Errorf("failed to marshal frame for %s: %v", event, err)
		return 0
	}

	delivered := 0
	for _, c := range clients {
		if c.enqueue(frame) {
			delivered++
		} else {
			droppedFramesMetric.Inc()
			log.Debugf("dropped %s for slow client %s", event, c.ID())
		}
	}
	deliveredEventsMetric.Add(float64(delivered))
	return delivered
}
