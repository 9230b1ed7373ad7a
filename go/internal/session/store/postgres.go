package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"
)

// DefaultNotifyChannel is the LISTEN/NOTIFY channel writes are announced on.
const DefaultNotifyChannel = "rinklog_session_changes"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS session_kv (
	key        TEXT PRIMARY KEY,
	value      JSONB,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresKV stores records in a shared Postgres table so several devices can
// read each other's writes. Every write is followed by a NOTIFY carrying the
// key, which ChangeListener turns into reloads. Last writer wins.
type PostgresKV struct {
	pool          *pgxpool.Pool
	notifyChannel string
}

// OpenPostgres connects to dsn and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn, notifyChannel string) (*PostgresKV, error) {
	if notifyChannel == "" {
		notifyChannel = DefaultNotifyChannel
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create session_kv table: %w", err)
	}

	log.Info().Str("notify_channel", notifyChannel).Msg("opened postgres session store")
	return &PostgresKV{pool: pool, notifyChannel: notifyChannel}, nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value pqtype.NullRawMessage
	err := p.pool.QueryRow(ctx, `SELECT value FROM session_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if !value.Valid {
		return nil, ErrNotFound
	}
	return value.RawMessage, nil
}

func (p *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("put %s: value is not valid JSON", key)
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO session_kv (key, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			key, pqtype.NullRawMessage{RawMessage: value, Valid: true},
		)
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, p.notifyChannel, key); err != nil {
			return fmt.Errorf("notify %s: %w", key, err)
		}
		return nil
	})
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM session_kv WHERE key = $1`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, p.notifyChannel, key); err != nil {
			return fmt.Errorf("notify %s: %w", key, err)
		}
		return nil
	})
}

// Ping checks the pool can reach the database.
func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresKV) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	return nil
}
