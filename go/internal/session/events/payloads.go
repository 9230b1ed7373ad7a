// Package events defines the session events shared by the coordinator,
// publishers and the gateway.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/rinklog/go/internal/models"
)

// EventType names a session event
type EventType string

const (
	EventTypeClockChanged      EventType = "ClockChanged"
	EventTypeClockTicked       EventType = "ClockTicked"
	EventTypePeriodEnded       EventType = "PeriodEnded"
	EventTypeViewClaimed       EventType = "ViewClaimed"
	EventTypeViewReleased      EventType = "ViewReleased"
	EventTypeTakeOverRequested EventType = "TakeOverRequested"
	EventTypeTakeOverApproved  EventType = "TakeOverApproved"
	EventTypeTakeOverCancelled EventType = "TakeOverCancelled"
	EventTypeSelectionChanged  EventType = "SelectionChanged"
	EventTypeSessionCleared    EventType = "SessionCleared"
	EventTypeGameSwitched      EventType = "GameSwitched"
)

// ChangesOwnership reports whether the event alters the shared per-game
// record, i.e. whether other devices should reload.
func (t EventType) ChangesOwnership() bool {
	switch t {
	case EventTypeViewClaimed, EventTypeViewReleased,
		EventTypeTakeOverRequested, EventTypeTakeOverApproved, EventTypeTakeOverCancelled,
		EventTypeSessionCleared:
		return true
	default:
		return false
	}
}

// Envelope wraps every event that leaves a coordinator
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       EventType       `json:"type"`
	GameID     string          `json:"game_id"`
	InstanceID string          `json:"instance_id"` // coordinator that produced it
	LoggerID   string          `json:"logger_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a fresh envelope
func NewEnvelope(eventType EventType, gameID, instanceID, loggerID string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:         uuid.New(),
		Type:       eventType,
		GameID:     gameID,
		InstanceID: instanceID,
		LoggerID:   loggerID,
		Timestamp:  time.Now().UTC(),
		Payload:    data,
	}, nil
}

// ClockPayload is the payload for clock events
type ClockPayload struct {
	Clock   models.GameClock `json:"clock"`
	Display string           `json:"display"`
}

// ViewPayload is the payload for ViewClaimed and ViewReleased
type ViewPayload struct {
	View       models.ViewID          `json:"view"`
	Assignment *models.ViewAssignment `json:"assignment,omitempty"`
}

// TakeOverPayload is the payload for the take-over events
type TakeOverPayload struct {
	View    models.ViewID          `json:"view"`
	Request models.TakeOverRequest `json:"request"`
	Holder  *models.ViewAssignment `json:"holder,omitempty"`
}

// SelectionPayload is the payload for SelectionChanged
type SelectionPayload struct {
	Views []models.ViewID `json:"views"`
}

// GamePayload is the payload for GameSwitched and SessionCleared
type GamePayload struct {
	GameID string `json:"game_id"`
}

// ParsePayload decodes an envelope's payload into the matching struct
func ParsePayload(e Envelope) (any, error) {
	var target any
	switch e.Type {
	case EventTypeClockChanged, EventTypeClockTicked, EventTypePeriodEnded:
		target = &ClockPayload{}
	case EventTypeViewClaimed, EventTypeViewReleased:
		target = &ViewPayload{}
	case EventTypeTakeOverRequested, EventTypeTakeOverApproved, EventTypeTakeOverCancelled:
		target = &TakeOverPayload{}
	case EventTypeSelectionChanged:
		target = &SelectionPayload{}
	case EventTypeGameSwitched, EventTypeSessionCleared:
		target = &GamePayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.Type)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", e.Type, err)
	}
	return target, nil
}
