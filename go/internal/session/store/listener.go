package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ListenerConfig configures the Postgres change listener.
type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel PostgresKV announces writes on
	FallbackInterval time.Duration // How often to reload in case a notification was missed
	PingInterval     time.Duration
}

// DefaultListenerConfig returns the listener defaults
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    DefaultNotifyChannel,
		FallbackInterval: 30 * time.Second,
		PingInterval:     90 * time.Second,
	}
}

// ChangeListener reports keys written by any process sharing the database.
// An empty key means "something may have changed", sent by the fallback
// ticker and after reconnects.
type ChangeListener struct {
	listener *pq.Listener
	cfg      ListenerConfig
	onChange func(key string)

	closeOnce sync.Once
	closeErr  error
}

// NewChangeListener starts listening on cfg.NotifyChannel.
func NewChangeListener(cfg ListenerConfig, onChange func(key string)) (*ChangeListener, error) {
	if cfg.NotifyChannel == "" {
		cfg.NotifyChannel = DefaultNotifyChannel
	}
	d := DefaultListenerConfig()
	if cfg.FallbackInterval <= 0 {
		cfg.FallbackInterval = d.FallbackInterval
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = d.PingInterval
	}

	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for session changes")

	return &ChangeListener{
		listener: l,
		cfg:      cfg,
		onChange: onChange,
	}, nil
}

// Start blocks until ctx is done, forwarding notifications to onChange.
func (c *ChangeListener) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(c.cfg.PingInterval)
	fallbackTicker := time.NewTicker(c.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("change listener shutting down")
			return c.Stop()
		case note := <-c.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established;
				// anything could have been missed
				c.onChange("")
				continue
			}
			log.Debug().Str("key", note.Extra).Msg("session change notification")
			c.onChange(note.Extra)
		case <-fallbackTicker.C:
			c.onChange("")
		case <-pingTicker.C:
			if err := c.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// Stop closes the underlying connection. Safe to call more than once.
func (c *ChangeListener) Stop() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.listener.Close()
	})
	return c.closeErr
}
