package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	// Backend selects the storage wiring: "postgres" (default),
	// "firestore" (postgres identity, firestore profiles), or "memory".
	Backend string `env:"BACKEND" envDefault:"postgres"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	GCPProjectID string `env:"GCP_PROJECT_ID"`

	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	BootstrapTimeout time.Duration `env:"BOOTSTRAP_TIMEOUT" envDefault:"200ms"`
	ResetTokenTTL    time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	// PublicBaseURL is used to build password reset links.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	switch cfg.Backend {
	case "postgres", "firestore":
		if cfg.DatabaseDSN == "" {
			return Config{}, fmt.Errorf("config: DATABASE_DSN must be set for the %s backend", cfg.Backend)
		}
		if cfg.Backend == "firestore" && cfg.GCPProjectID == "" {
			return Config{}, fmt.Errorf("config: GCP_PROJECT_ID must be set for the firestore backend")
		}
	case "memory":
	default:
		return Config{}, fmt.Errorf("config: unknown backend %q", cfg.Backend)
	}

	return cfg, nil
}
