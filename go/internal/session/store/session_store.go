package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/rinklog/go/internal/models"
)

const keyPrefix = "rinklog"

// GlobalRecord is the per-device state that survives a restart regardless of
// which game is open.
type GlobalRecord struct {
	Clock         models.GameClock `json:"clock"`
	SelectedViews []models.ViewID  `json:"selected_views"`
	ActiveView    models.ViewID    `json:"active_view,omitempty"`
	Logger        *models.Logger   `json:"logger,omitempty"`
	GameID        string           `json:"game_id,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// GameRecord is the ownership state shared by every logger of one game.
type GameRecord struct {
	GameID      string                  `json:"game_id"`
	Assignments models.Assignments      `json:"assignments"`
	Requests    models.TakeOverRequests `json:"requests"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// SessionStore reads and writes coordinator records on top of a KV.
type SessionStore struct {
	kv       KV
	deviceID string
	now      func() time.Time
}

// NewSessionStore wraps kv. deviceID scopes the global record so devices
// sharing one backend keep their own clock and selection.
func NewSessionStore(kv KV, deviceID string) *SessionStore {
	if deviceID == "" {
		deviceID = "local"
	}
	return &SessionStore{
		kv:       kv,
		deviceID: deviceID,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GlobalKey is where this device's global record lives.
func (s *SessionStore) GlobalKey() string {
	return fmt.Sprintf("%s/devices/%s/global", keyPrefix, s.deviceID)
}

// GameKey is where a game's ownership record lives.
func GameKey(gameID string) string {
	return fmt.Sprintf("%s/games/%s", keyPrefix, gameID)
}

// GameIDFromKey extracts the game id from a GameKey, if it is one.
func GameIDFromKey(key string) (string, bool) {
	prefix := keyPrefix + "/games/"
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, prefix)
	return id, id != ""
}

// LoadGame returns the assignments and requests of a game. A game that was
// never saved yields empty maps and no error. A read or decode failure yields
// empty maps and the error, so callers can warn and carry on.
func (s *SessionStore) LoadGame(ctx context.Context, gameID string) (GameRecord, error) {
	rec := GameRecord{
		GameID:      gameID,
		Assignments: make(models.Assignments),
		Requests:    make(models.TakeOverRequests),
	}

	raw, err := s.kv.Get(ctx, GameKey(gameID))
	if errors.Is(err, ErrNotFound) {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("load game %s: %w", gameID, err)
	}

	var stored GameRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return rec, fmt.Errorf("decode game %s: %w", gameID, err)
	}
	for v, a := range stored.Assignments {
		if v.Valid() {
			rec.Assignments[v] = a
		}
	}
	for v, r := range stored.Requests {
		if v.Valid() {
			rec.Requests[v] = r
		}
	}
	rec.UpdatedAt = stored.UpdatedAt
	return rec, nil
}

// SaveGame writes both ownership maps of a game.
func (s *SessionStore) SaveGame(ctx context.Context, gameID string, assignments models.Assignments, requests models.TakeOverRequests) error {
	if assignments == nil {
		assignments = models.Assignments{}
	}
	if requests == nil {
		requests = models.TakeOverRequests{}
	}
	raw, err := json.Marshal(GameRecord{
		GameID:      gameID,
		Assignments: assignments,
		Requests:    requests,
		UpdatedAt:   s.now(),
	})
	if err != nil {
		return fmt.Errorf("encode game %s: %w", gameID, err)
	}
	if err := s.kv.Put(ctx, GameKey(gameID), raw); err != nil {
		return fmt.Errorf("save game %s: %w", gameID, err)
	}
	return nil
}

// LoadGlobal returns this device's global record. found is false when nothing
// was ever saved; on error the zero record is returned with the error.
func (s *SessionStore) LoadGlobal(ctx context.Context) (rec GlobalRecord, found bool, err error) {
	raw, err := s.kv.Get(ctx, s.GlobalKey())
	if errors.Is(err, ErrNotFound) {
		return GlobalRecord{}, false, nil
	}
	if err != nil {
		return GlobalRecord{}, false, fmt.Errorf("load global record: %w", err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return GlobalRecord{}, false, fmt.Errorf("decode global record: %w", err)
	}

	kept := rec.SelectedViews[:0]
	for _, v := range rec.SelectedViews {
		if v.Valid() {
			kept = append(kept, v)
		}
	}
	rec.SelectedViews = models.DedupeViews(kept)
	if !rec.ActiveView.Valid() {
		rec.ActiveView = ""
	}
	return rec, true, nil
}

// SaveGlobal writes this device's global record.
func (s *SessionStore) SaveGlobal(ctx context.Context, rec GlobalRecord) error {
	if rec.SelectedViews == nil {
		rec.SelectedViews = []models.ViewID{}
	}
	rec.UpdatedAt = s.now()

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode global record: %w", err)
	}
	if err := s.kv.Put(ctx, s.GlobalKey(), raw); err != nil {
		return fmt.Errorf("save global record: %w", err)
	}
	return nil
}

// ClearSelectedViews empties the persisted selection, keeping the rest of the
// global record.
func (s *SessionStore) ClearSelectedViews(ctx context.Context) error {
	rec, found, err := s.LoadGlobal(ctx)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	rec.SelectedViews = []models.ViewID{}
	return s.SaveGlobal(ctx, rec)
}
