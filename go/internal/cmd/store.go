package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rinklog/go/internal/config"
	"github.com/mcdev12/rinklog/go/internal/session/store"
)

// storeHandle is the opened backend plus, for Postgres, what the health check
// and the change listener need.
type storeHandle struct {
	kv       store.KV
	postgres *store.PostgresKV
}

func setupStore(ctx context.Context, cfg config.Config) (*storeHandle, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory session store, state will not survive a restart")
		return &storeHandle{kv: store.NewMemoryKV()}, nil

	case config.StorePostgres:
		pg, err := store.OpenPostgres(ctx, cfg.DB.DSN(), cfg.NotifyChannel)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		log.Info().Str("database", cfg.DB.String()).Msg("connected to postgres session store")
		return &storeHandle{kv: pg, postgres: pg}, nil

	default:
		kv, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite session store")
		return &storeHandle{kv: kv}, nil
	}
}

func (h *storeHandle) Ping(ctx context.Context) error {
	if h.postgres == nil {
		return nil
	}
	return h.postgres.Ping(ctx)
}

func (h *storeHandle) Close() {
	if err := h.kv.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close session store")
	}
}
