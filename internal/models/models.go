package models

import "encoding/json"

// BusEnvelope is the body the domain layer publishes on the bus. The event
// name uses the producer's nested-namespace separator (backslash); Data is
// forwarded verbatim.
type BusEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Frame types on the websocket surface.
const (
	FrameSubscribe    = "subscribe"
	FrameUnsubscribe  = "unsubscribe"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameEvent        = "event"
	FrameError        = "error"
)

// InboundFrame is a client request over the websocket.
type InboundFrame struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

// OutboundFrame is everything the bridge writes to a client.
type OutboundFrame struct {
	Type  string          `json:"type"`
	Room  string          `json:"room,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Code  string          `json:"code,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Event kinds the domain layer is known to produce. The bridge never
// interprets them; they exist for fixtures and operator docs.
const (
	EventChatCreated    = "chat.created"
	EventMessageNew     = "message.new"
	EventMessageRead    = "message.read"
	EventMessageDeleted = "message.deleted"
)

// MessageRef is the payload shape of message.read and message.deleted.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
	UserID    int64 `json:"user_id"`
}
