package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/olechat/chatbridge/internal/auth"
	"github.com/olechat/chatbridge/internal/hub"
	"github.com/olechat/chatbridge/internal/rooms"
)

var badRequestMetric = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bridge_bad_requests",
	Help: "The total number of bad requests",
})

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy for the upgrade is handled at the echo layer.
		return true
	},
}

// WsHandler authenticates and upgrades client connections.
type WsHandler struct {
	hub        *hub.Hub
	authorizer *rooms.Authorizer
	jwtSecret  string
}

func NewWsHandler(h *hub.Hub, authorizer *rooms.Authorizer, jwtSecret string) *WsHandler {
	return &WsHandler{hub: h, authorizer: authorizer, jwtSecret: jwtSecret}
}

// Register registers the websocket route
func (h *WsHandler) Register(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve validates the bearer token, upgrades the connection and runs the
// client pumps until disconnect.
func (h *WsHandler) Serve(c echo.Context) error {
	log := log.WithField("prefix", "WsHandler.Serve")

	token := bearerToken(c.Request())
	if token == "" {
		badRequestMetric.Inc()
		return c.JSON(http.StatusUnauthorized, ErrorResponse("missing token", http.StatusUnauthorized))
	}
	claims, err := auth.ParseToken(h.jwtSecret, token)
	if err != nil {
		badRequestMetric.Inc()
		log.Infof("token rejected: %v", err)
		return c.JSON(http.StatusUnauthorized, ErrorResponse("invalid token", http.StatusUnauthorized))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Errorf("upgrade failed: %v", err)
		return nil
	}

	client := hub.NewClient(h.hub, h.authorizer, conn, claims.UserID)
	log.Infof("client %s connected for user %d", client.ID(), claims.UserID)

	ctx := c.Request().Context()
	go client.WritePump()
	client.ReadPump(ctx)

	log.Infof("client %s disconnected", client.ID())
	return nil
}

// bearerToken reads the token from the Authorization header or, for browser
// websocket clients that cannot set headers, from the token query param.
func bearerToken(r *http.Request) string {
	if authorization := r.Header.Get("Authorization"); authorization != "" {
		return strings.TrimPrefix(authorization, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
