package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"CHANLOCK_HTTP_ADDR" envDefault:":8080"`

	// DB
	Env    string `env:"CHANLOCK_ENV" envDefault:"dev"` // "dev" | "prod"
	DBPath string `env:"CHANLOCK_DB_PATH" envDefault:"./data/chanlock.db"`

	// Channels is the seed set for the in-memory directory adapter used
	// in dev deployments without a real chat platform binding.
	Channels []string `env:"CHANLOCK_CHANNELS" envSeparator:","`

	// GrantTTL is how long an unlock grant lives.  The production value
	// is 30 minutes; it is configurable so dev and tests can shrink it.
	GrantTTL time.Duration `env:"CHANLOCK_GRANT_TTL" envDefault:"30m"`

	// SweepInterval is how often the expiry scheduler's backstop sweep runs.
	SweepInterval time.Duration `env:"CHANLOCK_SWEEP_INTERVAL" envDefault:"1m"`

	// AdapterTimeout bounds every platform adapter call.
	AdapterTimeout time.Duration `env:"CHANLOCK_ADAPTER_TIMEOUT" envDefault:"5s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Env = strings.ToLower(cfg.Env)
	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}

	return cfg, nil
}
