package config

import (
	"log"

	"github.com/caarlos0/env/v6"
)

var Config = struct {
	Port        int `env:"PORT" envDefault:"8082"`
	MetricsPort int `env:"METRICS_PORT" envDefault:"9103"`

	BusType      string `env:"BUS_TYPE" envDefault:"redis"`
	RedisURI     string `env:"REDIS_URI" envDefault:"redis://localhost:6379"`
	NatsURI      string `env:"NATS_URI"`
	AmqpURI      string `env:"AMQP_URI"`
	AmqpExchange string `env:"AMQP_EXCHANGE" envDefault:"chat.events"`

	MembershipType string `env:"MEMBERSHIP_TYPE" envDefault:"memory"`
	PostgresURI    string `env:"POSTGRES_URI"`
	SqlitePath     string `env:"SQLITE_PATH" envDefault:"chatbridge.db"`

	JWTSecret     string   `env:"JWT_SECRET" envDefault:"insecure-dev-secret"`
	PublishTokens []string `env:"PUBLISH_TOKENS"`

	PingInterval     int  `env:"PING_INTERVAL" envDefault:"15"`
	RPSLimit         int  `env:"RPS_LIMIT" envDefault:"1000"`
	ConnectionsLimit int  `env:"CONNECTIONS_LIMIT" envDefault:"200"`
	CorsEnable       bool `env:"CORS_ENABLE"`
	SelfSignedTLS    bool `env:"SELF_SIGNED_TLS" envDefault:"false"`
}{}

func LoadConfig() {
	if err := env.Parse(&Config); err != nil {
		log.Fatalf("config parsing failed: %v\n", err)
	}
}
