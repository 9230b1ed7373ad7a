package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rinklog/go/internal/config"
	"github.com/mcdev12/rinklog/go/internal/session"
	"github.com/mcdev12/rinklog/go/internal/session/gateway"
	"github.com/mcdev12/rinklog/go/internal/session/publisher"
	"github.com/mcdev12/rinklog/go/internal/session/rpc"
	"github.com/mcdev12/rinklog/go/internal/session/store"
)

type Services struct {
	Store       *storeHandle
	Coordinator *session.Coordinator
	Session     *rpc.Service
	Gateway     *gateway.Service
	Outbox      *publisher.Outbox
	JetStream   *publisher.JetStreamPublisher
	Listener    *store.ChangeListener
}

func setupServices(ctx context.Context, cfg config.Config, profile config.Profile, st *storeHandle) (*Services, error) {
	// Wire up the chain
	// Store → Coordinator → (RPC service, Gateway)
	// Coordinator → Publisher → (WebSocket clients, JetStream)

	services := &Services{Store: st}

	connections := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	publishers := publisher.Multi{publisher.LogPublisher{}, connections}

	if cfg.NATSURL != "" {
		jsCfg := publisher.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATSURL
		js, err := publisher.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		services.JetStream = js
		services.Outbox = publisher.NewOutbox(js, publisher.DefaultOutboxConfig())
		publishers = append(publishers, services.Outbox)
	}

	views, err := profile.Views()
	if err != nil {
		return nil, fmt.Errorf("invalid default views: %w", err)
	}

	services.Coordinator = session.New(ctx, store.NewSessionStore(st.kv, cfg.DeviceID), session.Options{
		GameID:       cfg.GameID,
		LoggerName:   cfg.LoggerName,
		Rules:        profile.Clock,
		Policy:       cfg.Policy(),
		Debounce:     cfg.VisibilityDebounce,
		Publisher:    publishers,
		DefaultViews: views,
	})
	services.Session = rpc.NewService(services.Coordinator)

	gatewayConfig := gateway.DefaultConfig()
	if cfg.NATSURL != "" {
		gatewayConfig.ConsumeEvents = true
		gatewayConfig.JetStreamConfig.URL = cfg.NATSURL
	}
	services.Gateway, err = gateway.NewService(ctx, gatewayConfig, connections, services.Coordinator)
	if err != nil {
		return nil, err
	}

	if cfg.StoreBackend == config.StorePostgres {
		listenerCfg := store.DefaultListenerConfig()
		listenerCfg.DatabaseURL = cfg.DB.DSN()
		listenerCfg.NotifyChannel = cfg.NotifyChannel

		coord := services.Coordinator
		services.Listener, err = store.NewChangeListener(listenerCfg, func(key string) {
			coord.HandleStoreChange(context.Background(), key)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create change listener: %w", err)
		}
	}

	log.Info().
		Str("game_id", services.Coordinator.GameID()).
		Str("policy", cfg.ApprovalPolicy).
		Bool("jetstream", services.JetStream != nil).
		Bool("listener", services.Listener != nil).
		Msg("session services ready")

	return services, nil
}

// start launches the background workers. They stop when ctx is cancelled.
func (s *Services) start(ctx context.Context) {
	if s.Outbox != nil {
		s.Outbox.Start(ctx)
	}

	go func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("session gateway failed")
		}
	}()

	if s.Listener != nil {
		go func() {
			if err := s.Listener.Start(ctx); err != nil {
				log.Error().Err(err).Msg("change listener failed")
			}
		}()
	}
}

// shutdown closes the coordinator first so its final writes and events go
// out before the publishers and the store close.
func (s *Services) shutdown(ctx context.Context) {
	s.Coordinator.Close(ctx)

	if s.Listener != nil {
		if err := s.Listener.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop change listener")
		}
	}
	if s.Outbox != nil {
		s.Outbox.Stop()
	}
	if s.JetStream != nil {
		s.JetStream.Close()
	}
	s.Store.Close()
}
