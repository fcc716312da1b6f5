package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string                `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath          string                `env:"DB_PATH" envDefault:"club_brackets.db"`
	LogLevel        slog.Level            `env:"LOG_LEVEL" envDefault:"INFO"`
	CascadePolicy   bracket.CascadePolicy `env:"CASCADE_POLICY" envDefault:"descendants"`
	ShutdownTimeout time.Duration         `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine, variables may come from the environment.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if !cfg.CascadePolicy.Valid() {
		return nil, fmt.Errorf("unknown CASCADE_POLICY %q", cfg.CascadePolicy)
	}
	return &cfg, nil
}
