package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minAPITokenLength = 16

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// AppURL is the public URL of this service; its origin may open listener WebSockets.
	AppURL         string   `env:"APP_URL"`
	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS"`

	RelayConfigFile        string        `env:"RELAY_CONFIG_FILE"`
	RelayKeepAliveInterval time.Duration `env:"RELAY_KEEPALIVE_INTERVAL" default:"10s"`
	RelayConnectAttempts   int           `env:"RELAY_CONNECT_ATTEMPTS" default:"3"`

	APIRateLimit float64 `env:"API_RATE_LIMIT" default:"20"`
	APIRateBurst int     `env:"API_RATE_BURST" default:"40"`
	// APIToken enables POST /api/events for callers presenting it as a bearer token.
	APIToken string `env:"API_TOKEN"`

	// Relays is read from RelayConfigFile, not from the environment.
	Relays []RelayConfig
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	relays, err := LoadRelays(cfg.RelayConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.Relays = relays

	return &cfg, nil
}

func validate(cfg *Config) error {
	if !slices.Contains([]string{"development", "production", "test"}, cfg.AppEnv) {
		return fmt.Errorf("APP_ENV must be one of development, production, test, got %q", cfg.AppEnv)
	}
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a TCP port number, got %q", cfg.Port)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	if cfg.AppEnv == "production" && cfg.AppURL == "" {
		return errors.New("APP_URL is required in production")
	}
	if cfg.RelayKeepAliveInterval <= 0 {
		return errors.New("RELAY_KEEPALIVE_INTERVAL must be positive")
	}
	if cfg.RelayConnectAttempts < 1 {
		return errors.New("RELAY_CONNECT_ATTEMPTS must be at least 1")
	}
	if cfg.APIRateLimit <= 0 || cfg.APIRateBurst < 1 {
		return errors.New("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}
	if cfg.APIToken != "" && len(cfg.APIToken) < minAPITokenLength {
		return fmt.Errorf("API_TOKEN must be at least %d characters", minAPITokenLength)
	}
	return nil
}
