package bus

import (
	"context"
	"testing"
	"time"
)

func TestMemBusFanOut(t *testing.T) {
	b := NewMemBus()
	ctx := context.Background()

	first := make(chan Message, 8)
	second := make(chan Message, 8)
	if err := b.SubscribeAll(ctx, first); err != nil {
		t.Fatalf("SubscribeAll: %v", err)
	}
	if err := b.SubscribeAll(ctx, second); err != nil {
		t.Fatalf("SubscribeAll: %v", err)
	}

	if err := b.Publish(ctx, "chat.7", []byte(`{"event":"x"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, ch := range []chan Message{first, second} {
		select {
		case msg := <-ch:
			if msg.Channel != "chat.7" {
				t.Errorf("Channel = %q, want chat.7", msg.Channel)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the message")
		}
	}
}

func TestMemBusDropsWhenSubscriberFull(t *testing.T) {
	b := NewMemBus()
	ctx := context.Background()

	full := make(chan Message, 1)
	if err := b.SubscribeAll(ctx, full); err != nil {
		t.Fatalf("SubscribeAll: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := b.Publish(ctx, "chat.1", []byte("{}")); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if got := len(full); got != 1 {
		t.Errorf("buffered messages = %d, want 1", got)
	}
}

func TestNewBusUnsupportedType(t *testing.T) {
	if _, err := NewBus("kafka", "", ""); err == nil {
		t.Fatal("unsupported bus type was accepted")
	}
}
