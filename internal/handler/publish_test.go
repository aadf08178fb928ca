package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/olechat/chatbridge/internal/bus"
)

func postPublish(t *testing.T, h *PublishHandler, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/bridge/publish", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	if err := h.Publish(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	return rec
}

func TestPublishRequiresToken(t *testing.T) {
	h := NewPublishHandler(bus.NewMemBus(), []string{"s3cret"})

	rec := postPublish(t, h, "", `{"channel":"chat.7","event":"message.new","data":{}}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	rec = postPublish(t, h, "wrong", `{"channel":"chat.7","event":"message.new","data":{}}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestPublishRejectsWithoutConfiguredTokens(t *testing.T) {
	h := NewPublishHandler(bus.NewMemBus(), nil)

	rec := postPublish(t, h, "anything", `{"channel":"chat.7","event":"message.new","data":{}}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestPublishPutsEnvelopeOnTheBus(t *testing.T) {
	memBus := bus.NewMemBus()
	h := NewPublishHandler(memBus, []string{"s3cret"})

	messageCh := make(chan bus.Message, 1)
	if err := memBus.SubscribeAll(context.Background(), messageCh); err != nil {
		t.Fatalf("SubscribeAll: %v", err)
	}

	rec := postPublish(t, h, "s3cret", `{"channel":"chat.7","event":"message.new","data":{"id":99}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	select {
	case msg := <-messageCh:
		if msg.Channel != "chat.7" {
			t.Errorf("Channel = %q, want chat.7", msg.Channel)
		}
		want := `{"event":"message.new","data":{"id":99}}`
		if string(msg.Body) != want {
			t.Errorf("Body = %s, want %s", msg.Body, want)
		}
	case <-time.After(time.Second):
		t.Fatal("nothing published on the bus")
	}
}

func TestPublishValidatesRequest(t *testing.T) {
	h := NewPublishHandler(bus.NewMemBus(), []string{"s3cret"})

	rec := postPublish(t, h, "s3cret", `{"event":"message.new"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing channel: status = %d, want 400", rec.Code)
	}

	rec = postPublish(t, h, "s3cret", `{"channel":"chat.7"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing event: status = %d, want 400", rec.Code)
	}
}
