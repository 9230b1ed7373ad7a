package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/rinklog/go/internal/config"
	"github.com/mcdev12/rinklog/go/internal/session/rpc"
)

func setupServer(cfg config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(mux, services)
	setupHealthCheck(mux, services)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	// Register session service
	sessionPath, sessionHandler := rpc.NewHandler(services.Session)
	mux.Handle(sessionPath, sessionHandler)

	// Register gateway WebSocket and state routes
	services.Gateway.RegisterRoutes(mux)
}

type healthResponse struct {
	Status      string `json:"status"`
	GameID      string `json:"game_id"`
	Clock       string `json:"clock"`
	Store       string `json:"store"`
	JetStream   string `json:"jetstream,omitempty"`
	Connections int    `json:"connections"`
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:      "ok",
			GameID:      services.Coordinator.GameID(),
			Clock:       services.Coordinator.CurrentTime(),
			Store:       "ok",
			Connections: services.Gateway.GetStats().TotalConnections,
		}
		status := http.StatusOK

		if err := services.Store.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Store = err.Error()
			status = http.StatusServiceUnavailable
		}
		if services.JetStream != nil {
			resp.JetStream = services.JetStream.Conn().Status().String()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
