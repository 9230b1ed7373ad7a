package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for session connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	currentGame       func() string
}

// NewWebSocketHandler creates a handler. currentGame supplies the game id
// for clients that do not name one.
func NewWebSocketHandler(cm *ConnectionManager, currentGame func() string) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		currentGame:       currentGame,
	}
}

// HandleSessionConnection handles /ws/session?game_id=...&logger_id=...
func (h *WebSocketHandler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	if gameID == "" && h.currentGame != nil {
		gameID = h.currentGame()
	}
	if gameID == "" {
		http.Error(w, "game_id is required", http.StatusBadRequest)
		return
	}

	loggerID := r.URL.Query().Get("logger_id")
	if loggerID == "" {
		loggerID = "anonymous"
	}

	// the upgrader has already written an error response on failure
	if err := h.connectionManager.UpgradeConnection(w, r, loggerID, gameID); err != nil {
		log.Error().
			Err(err).
			Str("game_id", gameID).
			Str("logger_id", loggerID).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", h.HandleSessionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
