package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/olechat/chatbridge/internal/bridge"
	"github.com/olechat/chatbridge/internal/bus"
	"github.com/olechat/chatbridge/internal/membership"
	"github.com/olechat/chatbridge/internal/models"
)

func receiveFrameWait(t *testing.T, c *Client) models.OutboundFrame {
	t.Helper()
	select {
	case payload := <-c.send:
		var frame models.OutboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
		return models.OutboundFrame{}
	}
}

// waitForBridge blocks until the bridge goroutine has subscribed to the bus.
func waitForBridge(t *testing.T, b *bus.MemBus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !b.HasSubscribers() {
		if time.Now().After(deadline) {
			t.Fatal("bridge never subscribed to the bus")
		}
		time.Sleep(time.Millisecond)
	}
}

// Full pipeline: bus publish -> bridge decode/transform -> room broadcast.
func TestBusToClientDelivery(t *testing.T) {
	h := NewHub()
	members := membership.NewMemStore()
	members.AddMember(7, 1)
	members.AddMember(8, 2)

	eventBus := bus.NewMemBus()
	b := bridge.NewBridge(eventBus, h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)
	waitForBridge(t, eventBus)

	inRoom := newTestClient(h, members, 1)
	otherRoom := newTestClient(h, members, 2)
	defer inRoom.Close()
	defer otherRoom.Close()

	inRoom.HandleSubscribe(ctx, "chat.7")
	receiveFrameWait(t, inRoom)
	otherRoom.HandleSubscribe(ctx, "chat.8")
	receiveFrameWait(t, otherRoom)

	body := []byte(`{"event":"Message\\New","data":{"id":99}}`)
	if err := eventBus.Publish(ctx, "chat.7", body); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	frame := receiveFrameWait(t, inRoom)
	if frame.Event != "chat.7:Message.New" {
		t.Errorf("Event = %q, want chat.7:Message.New", frame.Event)
	}
	if string(frame.Data) != `{"id":99}` {
		t.Errorf("Data = %s, want {\"id\":99}", frame.Data)
	}

	// Give the bridge a beat, then check the chat.8 client saw nothing.
	time.Sleep(50 * time.Millisecond)
	if len(otherRoom.send) != 0 {
		t.Error("client joined only to chat.8 received the event")
	}
}

// A malformed body is dropped; the subscription keeps working.
func TestMalformedBodyDoesNotStopTheBridge(t *testing.T) {
	h := NewHub()
	members := membership.NewMemStore()
	members.AddMember(7, 1)

	eventBus := bus.NewMemBus()
	b := bridge.NewBridge(eventBus, h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)
	waitForBridge(t, eventBus)

	c := newTestClient(h, members, 1)
	defer c.Close()
	c.HandleSubscribe(ctx, "chat.7")
	receiveFrameWait(t, c)

	if err := eventBus.Publish(ctx, "chat.7", []byte("not-json")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := eventBus.Publish(ctx, "chat.7", []byte(`{"data":{"id":1}}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	payload, err := json.Marshal(models.MessageRef{ChatID: 7, MessageID: 5, UserID: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	valid, err := json.Marshal(models.BusEnvelope{Event: models.EventMessageRead, Data: payload})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := eventBus.Publish(ctx, "chat.7", valid); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	frame := receiveFrameWait(t, c)
	if frame.Event != "chat.7:message.read" {
		t.Errorf("Event = %q, want chat.7:message.read", frame.Event)
	}
	if len(c.send) != 0 {
		t.Error("dropped messages still produced frames")
	}
}
