package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"golang.org/x/time/rate"

	"github.com/olechat/chatbridge/internal/bridge"
	"github.com/olechat/chatbridge/internal/bus"
	"github.com/olechat/chatbridge/internal/config"
	"github.com/olechat/chatbridge/internal/crypto"
	"github.com/olechat/chatbridge/internal/handler"
	"github.com/olechat/chatbridge/internal/hub"
	"github.com/olechat/chatbridge/internal/membership"
	bridge_middleware "github.com/olechat/chatbridge/internal/middleware"
	"github.com/olechat/chatbridge/internal/rooms"
)

func main() {
	log.Info("Chat bridge is running")
	config.LoadConfig()

	members, err := membership.NewStore(config.Config.MembershipType, config.Config.PostgresURI, config.Config.SqlitePath)
	if err != nil {
		log.Fatalf("failed to create membership store: %v", err)
	}
	log.Infof("using %s membership store", config.Config.MembershipType)

	busURI := config.Config.RedisURI
	switch config.Config.BusType {
	case "nats":
		busURI = config.Config.NatsURI
	case "amqp", "rabbitmq":
		busURI = config.Config.AmqpURI
	}
	eventBus, err := bus.NewBus(config.Config.BusType, busURI, config.Config.AmqpExchange)
	if err != nil {
		log.Fatalf("failed to create bus: %v", err)
	}
	log.Infof("using %s bus", config.Config.BusType)

	roomHub := hub.NewHub()
	authorizer := rooms.NewAuthorizer(members)
	eventBridge := bridge.NewBridge(eventBus, roomHub)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := eventBridge.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("bridge stopped: %v", err)
		}
	}()

	healthHandler := handler.NewHealthHandler(eventBus, members)
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := eventBus.HealthCheck(); err != nil {
			http.Error(w, "bus not ready", http.StatusInternalServerError)
			return
		}
		if err := members.HealthCheck(); err != nil {
			http.Error(w, "membership store not ready", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ready"}`)
	})
	go func() {
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", config.Config.MetricsPort), nil))
	}()

	e := echo.New()
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		Skipper:           nil,
		DisableStackAll:   true,
		DisablePrintStack: false,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() != "/bridge/publish"
		},
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(config.Config.RPSLimit)),
	}))
	e.Use(bridge_middleware.ConnectionsLimitMiddleware(
		bridge_middleware.NewConnectionsLimiter(config.Config.ConnectionsLimit),
		func(c echo.Context) bool {
			return c.Path() != "/ws"
		}))

	if config.Config.CorsEnable {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{echo.GET, echo.POST, echo.OPTIONS},
			AllowHeaders:     []string{"DNT", "Keep-Alive", "User-Agent", "X-Requested-With", "If-Modified-Since", "Cache-Control", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           86400,
		}))
	}

	handler.NewWsHandler(roomHub, authorizer, config.Config.JWTSecret).Register(e)
	handler.NewPublishHandler(eventBus, config.Config.PublishTokens).Register(e)
	healthHandler.Register(e)

	var existedPaths []string
	for _, r := range e.Routes() {
		existedPaths = append(existedPaths, r.Path)
	}
	p := prometheus.NewPrometheus("http", func(c echo.Context) bool {
		return !slices.Contains(existedPaths, c.Path())
	})
	e.Use(p.HandlerFunc)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		cancel()
		if err := eventBus.Close(); err != nil {
			log.Errorf("failed to close bus: %v", err)
		}
		if err := members.Close(); err != nil {
			log.Errorf("failed to close membership store: %v", err)
		}
		if err := e.Shutdown(context.Background()); err != nil {
			log.Errorf("failed to shutdown server: %v", err)
		}
	}()

	if config.Config.SelfSignedTLS {
		cert, key, err := crypto.GenerateSelfSignedCertificate()
		if err != nil {
			log.Fatalf("failed to generate self signed certificate: %v", err)
		}
		log.Fatal(e.StartTLS(fmt.Sprintf(":%v", config.Config.Port), cert, key))
	} else {
		log.Fatal(e.Start(fmt.Sprintf(":%v", config.Config.Port)))
	}
}
