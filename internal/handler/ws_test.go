package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/olechat/chatbridge/internal/hub"
	"github.com/olechat/chatbridge/internal/membership"
	"github.com/olechat/chatbridge/internal/rooms"
)

func TestServeRejectsMissingToken(t *testing.T) {
	h := NewWsHandler(hub.NewHub(), rooms.NewAuthorizer(membership.NewMemStore()), "secret")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	if err := h.Serve(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestServeRejectsInvalidToken(t *testing.T) {
	h := NewWsHandler(hub.NewHub(), rooms.NewAuthorizer(membership.NewMemStore()), "secret")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil)
	rec := httptest.NewRecorder()
	if err := h.Serve(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
