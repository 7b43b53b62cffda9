package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config locates the plan server.
type Config struct {
	BaseURL string        `env:"PLANNER_API_URL" envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"PLANNER_API_TIMEOUT" envDefault:"15s"`
}

// LoadConfig reads the client configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BaseURL == "" {
		return Config{}, errors.New("PLANNER_API_URL must not be empty")
	}
	return cfg, nil
}
