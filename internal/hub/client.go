package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/olechat/chatbridge/internal/models"
	"github.com/olechat/chatbridge/internal/rooms"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	maxMessageSize = 4 * 1024
	sendBufSize    = 64
)

// Client is one websocket connection with an authenticated user behind it.
type Client struct {
	id     string
	userID int64
	hub    *Hub
	auth   *rooms.Authorizer
	conn   *websocket.Conn
	send   chan []byte
	closed chan struct{}

	mux       sync.Mutex
	joined    map[string]struct{}
	closeOnce sync.Once
}

func NewClient(h *Hub, auth *rooms.Authorizer, conn *websocket.Conn, userID int64) *Client {
	activeConnectionsMetric.Inc()
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		hub:    h,
		auth:   auth,
		conn:   conn,
		send:   make(chan []byte, sendBufSize),
		closed: make(chan struct{}),
		joined: make(map[string]struct{}),
	}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) UserID() int64 { return c.userID }

// enqueue hands a frame to the write pump. A full queue means the client is
// not draining; the frame is dropped for this client only. The send channel
// is never closed, so a concurrent broadcast can never panic on a closed
// client; it just fails the enqueue.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) sendFrame(frame models.OutboundFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.enqueue(payload)
}

// HandleSubscribe authorizes and executes one join request. The room name is
// canonicalized through its parsed kind, so "chat.007" joins "chat.7" — the
// name the bus will broadcast on.
func (c *Client) HandleSubscribe(ctx context.Context, name string) {
	log := log.WithField("prefix", "Client.HandleSubscribe")

	room, err := rooms.ParseRoom(name)
	if err != nil {
		deniedJoinsMetric.Inc()
		c.sendFrame(models.OutboundFrame{
			Type: models.FrameError, Room: name,
			Code: "invalid_room", Error: "unrecognized room name",
		})
		return
	}

	ok, err := c.auth.Allow(ctx, c.userID, room)
	if err != nil {
		c.sendFrame(models.OutboundFrame{
			Type: models.FrameError, Room: name,
			Code: "internal", Error: "failed to authorize join",
		})
		return
	}
	if !ok {
		deniedJoinsMetric.Inc()
		log.Infof("user %d denied join to %s", c.userID, room.Name())
		c.sendFrame(models.OutboundFrame{
			Type: models.FrameError, Room: name,
			Code: "forbidden", Error: "no access to room",
		})
		return
	}

	c.hub.Join(c, room.Name())
	c.mux.Lock()
	c.joined[room.Name()] = struct{}{}
	c.mux.Unlock()

	c.sendFrame(models.OutboundFrame{Type: models.FrameSubscribed, Room: room.Name()})
}

func (c *Client) HandleUnsubscribe(name string) {
	room, err := rooms.ParseRoom(name)
	if err != nil {
		return
	}

	c.mux.Lock()
	_, wasJoined := c.joined[room.Name()]
	delete(c.joined, room.Name())
	c.mux.Unlock()
	if !wasJoined {
		return
	}
	c.hub.Leave(c, room.Name())

	c.sendFrame(models.OutboundFrame{Type: models.FrameUnsubscribed, Room: room.Name()})
}

func (c *Client) handleFrame(ctx context.Context, frame models.InboundFrame) {
	switch frame.Type {
	case models.FrameSubscribe:
		c.HandleSubscribe(ctx, frame.Room)
	case models.FrameUnsubscribe:
		c.HandleUnsubscribe(frame.Room)
	default:
		c.sendFrame(models.OutboundFrame{
			Type: models.FrameError,
			Code: "unsupported_frame", Error: "unsupported frame type",
		})
	}
}

// Close releases room memberships and tears the connection down. Safe to
// call from both pumps.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.RemoveClient(c)
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		activeConnectionsMetric.Dec()
	})
}

// ReadPump parses inbound frames until the connection dies.
func (c *Client) ReadPump(ctx context.Context) {
	log := log.WithField("prefix", "Client.ReadPump")
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame models.InboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugf("read error on %s: %v", c.id, err)
			}
			return
		}
		c.handleFrame(ctx, frame)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
