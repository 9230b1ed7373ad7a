// Package config loads process configuration from the environment and the
// optional yaml session profile.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/mcdev12/rinklog/go/internal/dbconfig"
	"github.com/mcdev12/rinklog/go/internal/session/ownership"
)

// Store backends
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port     string `env:"PORT"      envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreBackend string `env:"SESSION_STORE"       envDefault:"sqlite"`
	SQLitePath   string `env:"SESSION_SQLITE_PATH" envDefault:"rinklog.db"`
	// NotifyChannel is the Postgres channel used for cross-process reloads
	NotifyChannel string `env:"SESSION_NOTIFY_CHANNEL" envDefault:"rinklog_session_changes"`

	DeviceID           string        `env:"SESSION_DEVICE_ID"           envDefault:"local"`
	GameID             string        `env:"SESSION_GAME_ID"`
	LoggerName         string        `env:"SESSION_LOGGER_NAME"`
	ApprovalPolicy     string        `env:"SESSION_APPROVAL_POLICY"     envDefault:"cooperative"`
	VisibilityDebounce time.Duration `env:"SESSION_VISIBILITY_DEBOUNCE" envDefault:"1s"`
	ProfilePath        string        `env:"SESSION_PROFILE"`

	// NATSURL enables JetStream fan-out when set
	NATSURL string `env:"NATS_URL"`

	// DB is parsed from the DB_* variables
	DB dbconfig.Config
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SESSION_SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.StoreBackend)
	}

	switch c.ApprovalPolicy {
	case ownership.Cooperative{}.Name(), ownership.HolderOnly{}.Name():
	default:
		return fmt.Errorf("unknown SESSION_APPROVAL_POLICY %q", c.ApprovalPolicy)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.VisibilityDebounce <= 0 {
		return fmt.Errorf("SESSION_VISIBILITY_DEBOUNCE must be positive")
	}
	return nil
}

// Level is the parsed log level
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Policy is the configured take-over approval policy
func (c Config) Policy() ownership.ApprovalPolicy {
	return ownership.PolicyByName(c.ApprovalPolicy)
}
