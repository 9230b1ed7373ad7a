package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rinklog/go/internal/models"
	"github.com/mcdev12/rinklog/go/internal/session"
)

// StateProvider is the read side of the coordinator
type StateProvider interface {
	Snapshot() session.Snapshot
	CurrentTime() string
	Owner(view models.ViewID) (models.ViewAssignment, bool)
	PendingTakeOver(view models.ViewID) (models.TakeOverRequest, bool)
}

// ViewStateResponse describes one view
type ViewStateResponse struct {
	View     models.ViewID           `json:"view"`
	Owner    *models.ViewAssignment  `json:"owner,omitempty"`
	TakeOver *models.TakeOverRequest `json:"take_over,omitempty"`
}

// TimeResponse is the clock display
type TimeResponse struct {
	Display string `json:"display"`
}

// StateHandler handles HTTP requests for session state
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetSessionState handles GET /api/sessions/state
func (h *StateHandler) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.stateProvider.Snapshot())
}

// HandleGetTime handles GET /api/sessions/time
func (h *StateHandler) HandleGetTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, TimeResponse{Display: h.stateProvider.CurrentTime()})
}

// HandleGetView handles GET /api/sessions/views/{view}
func (h *StateHandler) HandleGetView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view, err := models.ParseViewID(r.PathValue("view"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := ViewStateResponse{View: view}
	if owner, ok := h.stateProvider.Owner(view); ok {
		resp.Owner = &owner
	}
	if req, ok := h.stateProvider.PendingTakeOver(view); ok {
		resp.TakeOver = &req
	}
	writeJSON(w, resp)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions/state", h.HandleGetSessionState)
	mux.HandleFunc("/api/sessions/time", h.HandleGetTime)
	mux.HandleFunc("/api/sessions/views/{view}", h.HandleGetView)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode session state response")
	}
}
