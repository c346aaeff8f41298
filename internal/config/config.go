// Package config loads realmd settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting realmd reads at startup.
type Config struct {
	Port         int           `env:"REALM_PORT" envDefault:"8080"`
	DBPath       string        `env:"REALM_DB_PATH" envDefault:"data/realms.db"`
	AdminKey     string        `env:"REALM_ADMIN_KEY"` // Empty disables POST endpoints
	RelayKey     string        `env:"REALM_RELAY_KEY"` // Empty disables edit streaming
	LogLevel     string        `env:"REALM_LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"REALM_LOG_FORMAT" envDefault:"auto"`
	GenerateRate int           `env:"REALM_GENERATE_RATE" envDefault:"120"` // Generations per client per hour
	SaveInterval time.Duration `env:"REALM_SAVE_INTERVAL" envDefault:"30s"`
	RandomOrgKey string        `env:"RANDOM_ORG_API_KEY"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:","`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings realmd cannot start with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("REALM_PORT must be in [1, 65535], got %d", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("REALM_DB_PATH must not be empty")
	}
	if c.GenerateRate < 1 {
		return fmt.Errorf("REALM_GENERATE_RATE must be positive, got %d", c.GenerateRate)
	}
	if c.SaveInterval < time.Second {
		return fmt.Errorf("REALM_SAVE_INTERVAL must be at least 1s, got %s", c.SaveInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case FormatAuto, FormatText, FormatJSON:
	default:
		return fmt.Errorf("REALM_LOG_FORMAT must be auto, text, or json, got %q", c.LogFormat)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}
