package rpc

import (
	"github.com/mcdev12/rinklog/go/internal/models"
	"github.com/mcdev12/rinklog/go/internal/session"
)

type Empty struct{}

type GetCurrentTimeResponse struct {
	Display string           `json:"display"`
	Clock   models.GameClock `json:"clock"`
}

type SnapshotResponse struct {
	Session session.Snapshot `json:"session"`
}

// ClaimOrCheckRequest claims a view. Logger defaults to this device's logger.
type ClaimOrCheckRequest struct {
	View   string         `json:"view"`
	Logger *models.Logger `json:"logger,omitempty"`
}

type ClaimOrCheckResponse struct {
	Result session.ClaimResult `json:"result"`
}

// ViewRequest addresses one view
type ViewRequest struct {
	View string `json:"view"`
}

type RequestTakeOverRequest struct {
	View string         `json:"view"`
	From *models.Logger `json:"from,omitempty"`
}

// AcceptedResponse reports whether a command changed anything. A false value
// is a rejection by the current state, not a failure.
type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

type SelectViewsRequest struct {
	Views []string `json:"views"`
}

type SelectViewsResponse struct {
	Views []models.ViewID `json:"views"`
}

type ClockResponse struct {
	Accepted bool             `json:"accepted"`
	Clock    models.GameClock `json:"clock"`
	Display  string           `json:"display"`
}

type SetTimeRequest struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

type SetPeriodRequest struct {
	Period int `json:"period"`
}

type ReportVisibilityRequest struct {
	State string `json:"state"`
}

type SwitchGameRequest struct {
	GameID string `json:"game_id"`
}
