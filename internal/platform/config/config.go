package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	NATSURL     string
	RedisAddr   string

	RelayInterval  time.Duration
	ResultsTTL     time.Duration
	EnableLivePush bool
	EnableSwagger  bool
}

// Load reads process configuration from the environment, applying a local
// .env file first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "ballotbox"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		NATSURL:     strings.TrimSpace(os.Getenv("NATS_URL")),
		RedisAddr:   strings.TrimSpace(os.Getenv("REDIS_ADDR")),

		RelayInterval:  envDuration("RELAY_INTERVAL", 2*time.Second),
		ResultsTTL:     envDuration("RESULTS_CACHE_TTL", 5*time.Second),
		EnableLivePush: envBool("ENABLE_LIVE_PUSH", true),
		EnableSwagger:  envBool("ENABLE_SWAGGER", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
