// Package config loads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP API
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:":8080"`
	AuthMode       string `envconfig:"AUTH_MODE" default:"none"` // "none", "api-key", "jwt"
	APIKey         string `envconfig:"API_KEY"`
	JWTSecret      string `envconfig:"JWT_SECRET"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"200"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	TLSCert        string `envconfig:"TLS_CERT"`
	TLSKey         string `envconfig:"TLS_KEY"`

	// Record store
	DBPath   string `envconfig:"DB_PATH" default:"sprint-insights.db"`
	SeedFile string `envconfig:"SEED_FILE"` // optional YAML fixture loaded at startup

	// Analytics defaults and caps
	CFDDefaultDays      int `envconfig:"CFD_DEFAULT_DAYS" default:"30"`
	CFDMaxDays          int `envconfig:"CFD_MAX_DAYS" default:"400"`
	VelocitySprintCount int `envconfig:"VELOCITY_SPRINT_COUNT" default:"12"`
	MetricsSprintCount  int `envconfig:"METRICS_SPRINT_COUNT" default:"6"`
	MaxSprintCount      int `envconfig:"MAX_SPRINT_COUNT" default:"52"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case "none":
	case "api-key":
		if c.APIKey == "" {
			return fmt.Errorf("AUTH_MODE=api-key requires API_KEY")
		}
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("AUTH_MODE=jwt requires JWT_SECRET")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	if c.CFDMaxDays < 1 {
		return fmt.Errorf("CFD_MAX_DAYS must be positive")
	}
	if c.CFDDefaultDays < 1 || c.CFDDefaultDays > c.CFDMaxDays {
		return fmt.Errorf("CFD_DEFAULT_DAYS must be in [1, %d]", c.CFDMaxDays)
	}
	if c.VelocitySprintCount < 1 || c.VelocitySprintCount > c.MaxSprintCount {
		return fmt.Errorf("VELOCITY_SPRINT_COUNT must be in [1, %d]", c.MaxSprintCount)
	}
	if c.MetricsSprintCount < 1 || c.MetricsSprintCount > c.MaxSprintCount {
		return fmt.Errorf("METRICS_SPRINT_COUNT must be in [1, %d]", c.MaxSprintCount)
	}
	return nil
}

// Development reports whether the service runs in development mode.
func (c *Config) Development() bool { return c.Environment == "development" }
