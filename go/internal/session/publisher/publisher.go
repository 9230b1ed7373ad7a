// Package publisher fans session events out of a coordinator.
package publisher

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rinklog/go/internal/session/events"
)

// Publisher delivers a session event somewhere
type Publisher interface {
	Publish(ctx context.Context, event events.Envelope) error
}

// LogPublisher only logs events, for development and single-device runs
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event events.Envelope) error {
	log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Str("game_id", event.GameID).
		Msg("session event")
	return nil
}

// Multi publishes to every publisher, continuing past failures
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event events.Envelope) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to Publisher
type Func func(ctx context.Context, event events.Envelope) error

func (f Func) Publish(ctx context.Context, event events.Envelope) error {
	return f(ctx, event)
}
