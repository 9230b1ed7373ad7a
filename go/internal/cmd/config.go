package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rinklog/go/internal/config"
)

func loadSettings() (config.Config, config.Profile, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, config.Profile{}, fmt.Errorf("failed to load config: %w", err)
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return config.Config{}, config.Profile{}, err
	}
	if cfg.LoggerName == "" {
		cfg.LoggerName = profile.LoggerName
	}
	return cfg, profile, nil
}

func setupLogging(level zerolog.Level) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(level)
}
