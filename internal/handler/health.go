package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/olechat/chatbridge/internal/bus"
	"github.com/olechat/chatbridge/internal/membership"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	bus     bus.Bus
	members membership.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(b bus.Bus, members membership.Store) *HealthHandler {
	return &HealthHandler{bus: b, members: members}
}

// Register registers health routes
func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
}

// Health returns basic health status
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports readiness of the bus and the membership store.
func (h *HealthHandler) Ready(c echo.Context) error {
	log := log.WithField("prefix", "ReadyHandler")

	if err := h.bus.HealthCheck(); err != nil {
		log.Errorf("bus connection error: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status": "not ready",
			"error":  "bus not accessible",
		})
	}
	if err := h.members.HealthCheck(); err != nil {
		log.Errorf("membership store error: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status": "not ready",
			"error":  "membership store not accessible",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
