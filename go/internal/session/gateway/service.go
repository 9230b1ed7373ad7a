// Package gateway pushes session events to log views over WebSocket, serves
// session state over HTTP and follows other instances through JetStream.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Coordinator is everything the gateway needs from the session
type Coordinator interface {
	StateProvider
	VisibilityReporter
	RemoteEventHandler
	GameID() string
}

// Service is the session gateway
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	stateHandler      *StateHandler
}

// Config holds configuration for the session gateway
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	// ConsumeEvents enables the JetStream consumer
	ConsumeEvents bool
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates the gateway around a connection manager that the
// coordinator already publishes to. The JetStream consumer is only connected
// when config.ConsumeEvents is set.
func NewService(ctx context.Context, config Config, connectionManager *ConnectionManager, coord Coordinator) (*Service, error) {
	connectionManager.SetVisibilityReporter(coord)

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, coord.GameID),
		stateHandler:      NewStateHandler(coord),
	}

	if config.ConsumeEvents {
		eventConsumer, err := NewEventConsumer(ctx, connectionManager, coord, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = eventConsumer
	}

	return s, nil
}

// Start runs the gateway until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting session gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("session gateway service shutting down")
	return s.Stop()
}

// Stop shuts down the event consumer. The connection manager stops with the
// context passed to Start.
func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	log.Info().Msg("session gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("session gateway routes registered")
}

// Stats describes the gateway for health endpoints
type Stats struct {
	ConnectionStats
	Service        string `json:"service"`
	Status         string `json:"status"`
	ConsumerActive bool   `json:"consumer_active"`
}

func (s *Service) GetStats() Stats {
	return Stats{
		ConnectionStats: s.connectionManager.GetConnectionStats(),
		Service:         "session_gateway",
		Status:          "running",
		ConsumerActive:  s.eventConsumer != nil,
	}
}
