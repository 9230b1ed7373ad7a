package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rinklog/go/internal/session/events"
)

// RemoteEventHandler is told about events published by other instances
type RemoteEventHandler interface {
	InstanceID() string
	HandleRemoteEvent(ctx context.Context, event events.Envelope) bool
}

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	URL               string
	StreamName        string
	ConsumerPrefix    string // the instance id is appended
	SubjectFilter     string // e.g., "session.events.>"
	MaxDeliver        int
	AckWait           time.Duration
	MaxAckPending     int
	InactiveThreshold time.Duration // consumers of dead instances are removed after this
	MaxReconnects     int
	ReconnectWait     time.Duration
}

func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:               nats.DefaultURL,
		StreamName:        "SESSION_EVENTS",
		ConsumerPrefix:    "session-gateway",
		SubjectFilter:     "session.events.>",
		MaxDeliver:        5,
		AckWait:           30 * time.Second,
		MaxAckPending:     100,
		InactiveThreshold: 10 * time.Minute,
		MaxReconnects:     -1, // Infinite
		ReconnectWait:     2 * time.Second,
	}
}

// EventConsumer reads session events from JetStream, reloads the coordinator
// when another instance changed ownership, and relays the events to local
// WebSocket clients.
type EventConsumer struct {
	connectionManager *ConnectionManager
	handler           RemoteEventHandler
	nc                *nats.Conn
	js                jetstream.JetStream
	consumer          jetstream.Consumer
	config            JetStreamConsumerConfig
}

// NewEventConsumer connects to NATS and ensures a consumer for this instance
func NewEventConsumer(ctx context.Context, cm *ConnectionManager, handler RemoteEventHandler, config JetStreamConsumerConfig) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.Name("rinklog-session-gateway"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := newEventConsumer(cm, handler, config)
	ec.nc = nc
	ec.js = js

	if err := ec.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return ec, nil
}

func newEventConsumer(cm *ConnectionManager, handler RemoteEventHandler, config JetStreamConsumerConfig) *EventConsumer {
	return &EventConsumer{
		connectionManager: cm,
		handler:           handler,
		config:            config,
	}
}

// ConsumerName is the durable name used by this instance
func (ec *EventConsumer) ConsumerName() string {
	return fmt.Sprintf("%s-%s", ec.config.ConsumerPrefix, ec.handler.InstanceID())
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	name := ec.ConsumerName()
	consumerConfig := jetstream.ConsumerConfig{
		Name:              name,
		Durable:           name,
		Description:       "Session gateway consumer",
		FilterSubject:     ec.config.SubjectFilter,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		MaxDeliver:        ec.config.MaxDeliver,
		AckWait:           ec.config.AckWait,
		MaxAckPending:     ec.config.MaxAckPending,
		InactiveThreshold: ec.config.InactiveThreshold,
		ReplayPolicy:      jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, consumerConfig)
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	log.Info().
		Str("consumer", name).
		Str("stream", ec.config.StreamName).
		Msg("JetStream consumer ready")

	ec.consumer = consumer
	return nil
}

// Start consumes events until ctx is done
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.ConsumerName()).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := ec.processMessage(ctx, msg.Data()); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				// a malformed envelope will never parse, so do not redeliver it
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to TERM message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// processMessage handles one raw envelope. Events this instance published
// are skipped; the coordinator already applied them and broadcast them.
func (ec *EventConsumer) processMessage(ctx context.Context, data []byte) error {
	var envelope events.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	if envelope.InstanceID == ec.handler.InstanceID() {
		return nil
	}

	log.Debug().
		Str("event_id", envelope.ID.String()).
		Str("game_id", envelope.GameID).
		Str("event_type", string(envelope.Type)).
		Str("origin", envelope.InstanceID).
		Msg("processing remote session event")

	if ec.handler.HandleRemoteEvent(ctx, envelope) {
		log.Info().
			Str("event_type", string(envelope.Type)).
			Str("game_id", envelope.GameID).
			Msg("reloaded session after remote change")
	}

	if ec.connectionManager != nil {
		ec.connectionManager.BroadcastToGame(envelope.GameID, &envelope)
	}
	return nil
}

// Stop closes the NATS connection
func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")

	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}

// GetConsumerInfo returns information about the consumer
func (ec *EventConsumer) GetConsumerInfo(ctx context.Context) (*jetstream.ConsumerInfo, error) {
	return ec.consumer.Info(ctx)
}
