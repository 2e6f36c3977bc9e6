// Package config loads the runtime configuration from the environment once,
// at startup. Nothing else in the module reads ambient process state.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type ESignConfig struct {
	BaseURL       string `envconfig:"ESIGN_BASE_URL"`
	APIKey        string `envconfig:"ESIGN_API_KEY"`
	WebhookSecret string `envconfig:"ESIGN_WEBHOOK_SECRET"`
	// SelfHosted disables provider registration and the invisible anchor
	// markers in rendered documents.
	SelfHosted bool `envconfig:"ESIGN_SELF_HOSTED" default:"false"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	ESign       ESignConfig
	Log         LogConfig
}

// Load reads and validates the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: process environment: %w", err)
	}
	if !cfg.ESign.SelfHosted && cfg.ESign.BaseURL == "" {
		return Config{}, fmt.Errorf("config: ESIGN_BASE_URL required unless ESIGN_SELF_HOSTED=true")
	}
	return cfg, nil
}
