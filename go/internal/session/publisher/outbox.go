package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rinklog/go/internal/session/events"
)

type OutboxConfig struct {
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{
		BufferSize: 256,
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Outbox queues events and delivers them to a downstream publisher from a
// single worker goroutine, so callers never block on the network.
type Outbox struct {
	downstream Publisher
	config     OutboxConfig
	queue      chan events.Envelope

	mu      sync.Mutex
	running bool
	done    chan struct{}
	cancel  context.CancelFunc
}

func NewOutbox(downstream Publisher, cfg OutboxConfig) *Outbox {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultOutboxConfig().BufferSize
	}
	return &Outbox{
		downstream: downstream,
		config:     cfg,
		queue:      make(chan events.Envelope, cfg.BufferSize),
	}
}

// Publish enqueues the event, dropping it if the buffer is full
func (o *Outbox) Publish(_ context.Context, event events.Envelope) error {
	select {
	case o.queue <- event:
	default:
		log.Warn().
			Str("event_id", event.ID.String()).
			Str("event_type", string(event.Type)).
			Msg("outbox full, dropping event")
	}
	return nil
}

func (o *Outbox) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	o.running = true

	go o.run(ctx, o.done)
	log.Info().Int("buffer", o.config.BufferSize).Msg("session outbox started")
}

// Stop drains queued events and waits for the worker to exit
func (o *Outbox) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	cancel, done := o.cancel, o.done
	o.mu.Unlock()

	cancel()
	<-done
	log.Info().Msg("session outbox stopped")
}

func (o *Outbox) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event := <-o.queue:
			o.deliver(ctx, event)
		case <-ctx.Done():
			o.drain()
			return
		}
	}
}

func (o *Outbox) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case event := <-o.queue:
			o.deliver(ctx, event)
		default:
			return
		}
	}
}

func (o *Outbox) deliver(ctx context.Context, event events.Envelope) {
	var lastErr error
	for attempt := 0; attempt <= o.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(o.config.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return
			}
		}
		if lastErr = o.downstream.Publish(ctx, event); lastErr == nil {
			return
		}
		log.Warn().Err(lastErr).
			Str("event_id", event.ID.String()).
			Int("attempt", attempt+1).
			Msg("failed to publish session event, retrying")
	}
	log.Error().Err(lastErr).
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Msg("giving up on session event")
}
