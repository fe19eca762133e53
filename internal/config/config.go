package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/velora/storefront/pkg/config"
)

// Config holds all configuration for the storefront daemon.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8090"`

	// Upstream commerce API
	APIBaseURL string        `env:"COMMERCE_API_BASE_URL" envDefault:"https://api.velora.dev"`
	APITimeout time.Duration `env:"COMMERCE_API_TIMEOUT" envDefault:"15s"`

	// Redis, shared by every storefront process that should mirror the
	// same session
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Key under which the session record lives
	SessionKey string `env:"SESSION_RECORD_KEY" envDefault:"storefront:session"`

	// Per-client rate limiting on the local facade
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("commerce API base URL is required")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("invalid commerce API timeout: %s", c.APITimeout)
	}
	if c.SessionKey == "" {
		return fmt.Errorf("session record key is required")
	}
	return nil
}
