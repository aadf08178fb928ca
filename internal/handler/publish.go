package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/olechat/chatbridge/internal/bus"
	"github.com/olechat/chatbridge/internal/models"
)

var publishedMessagesMetric = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bridge_published_messages",
	Help: "The total number of messages accepted on the publish endpoint",
})

// PublishRequest is what the domain layer (or an operator) posts to put an
// event on the bus through the bridge instead of talking to the broker
// directly.
type PublishRequest struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// PublishHandler accepts server-originated events over HTTP and republishes
// them on the bus.
type PublishHandler struct {
	bus    bus.Bus
	tokens []string
}

func NewPublishHandler(b bus.Bus, tokens []string) *PublishHandler {
	return &PublishHandler{bus: b, tokens: tokens}
}

// Register registers the publish route
func (h *PublishHandler) Register(e *echo.Echo) {
	e.POST("/bridge/publish", h.Publish)
}

func (h *PublishHandler) Publish(c echo.Context) error {
	ctx := c.Request().Context()
	log := log.WithField("prefix", "PublishHandler.Publish")

	if !h.authorized(c.Request()) {
		return c.JSON(http.StatusUnauthorized, ErrorResponse("invalid publish token", http.StatusUnauthorized))
	}

	var req PublishRequest
	if err := c.Bind(&req); err != nil {
		badRequestMetric.Inc()
		log.Error(err)
		return c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), http.StatusBadRequest))
	}
	if req.Channel == "" || req.Event == "" {
		badRequestMetric.Inc()
		errorMsg := "params \"channel\" and \"event\" are required"
		log.Error(errorMsg)
		return c.JSON(http.StatusBadRequest, ErrorResponse(errorMsg, http.StatusBadRequest))
	}

	body, err := json.Marshal(models.BusEnvelope{Event: req.Event, Data: req.Data})
	if err != nil {
		log.Error(err)
		return c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), http.StatusBadRequest))
	}

	if err := h.bus.Publish(ctx, req.Channel, body); err != nil {
		log.Errorf("bus publish failed: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse("failed to publish", http.StatusInternalServerError))
	}

	publishedMessagesMetric.Inc()
	return c.JSON(http.StatusOK, SuccessResponse())
}

func (h *PublishHandler) authorized(r *http.Request) bool {
	if len(h.tokens) == 0 {
		return false
	}
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return false
	}
	token := strings.TrimPrefix(authorization, "Bearer ")
	return slices.Contains(h.tokens, token)
}
