// Package config loads configuration structs from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from environment variables using its `env` struct tags.
//
// Example:
//
//	type Config struct {
//	    HTTPPort   int    `env:"HTTP_PORT" envDefault:"8090"`
//	    APIBaseURL string `env:"API_BASE_URL"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
