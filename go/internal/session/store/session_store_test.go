package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/rinklog/go/internal/models"
)

var (
	ana = models.Logger{ID: "a", DisplayName: "Ana Lind", Initials: "AL"}
	ben = models.Logger{ID: "b", DisplayName: "Ben Ortiz", Initials: "BO"}
)

func backends(t *testing.T) map[string]KV {
	t.Helper()

	sqliteKV, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteKV.Close() })

	return map[string]KV{
		"memory": NewMemoryKV(),
		"sqlite": sqliteKV,
	}
}

func TestGameRoundTrip(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewSessionStore(kv, "dev-1")

			assignments := models.Assignments{
				models.ViewGoals: models.AssignmentFor(ana),
				models.ViewShots: models.AssignmentFor(ben),
			}
			requests := models.TakeOverRequests{
				models.ViewGoals: models.RequestFrom(ben),
			}

			require.NoError(t, s.SaveGame(ctx, "game-7", assignments, requests))

			got, err := s.LoadGame(ctx, "game-7")
			require.NoError(t, err)
			assert.Equal(t, assignments, got.Assignments)
			assert.Equal(t, requests, got.Requests)
			assert.Equal(t, "game-7", got.GameID)
			assert.False(t, got.UpdatedAt.IsZero())
		})
	}
}

func TestLoadMissingGameIsEmpty(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := NewSessionStore(kv, "")
			got, err := s.LoadGame(context.Background(), "nope")
			require.NoError(t, err)
			assert.Empty(t, got.Assignments)
			assert.Empty(t, got.Requests)
			assert.NotNil(t, got.Assignments)
		})
	}
}

func TestLoadCorruptGameFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, GameKey("g"), []byte("{not json")))

	got, err := NewSessionStore(kv, "").LoadGame(ctx, "g")
	assert.Error(t, err)
	assert.Empty(t, got.Assignments)
	assert.NotNil(t, got.Requests)
}

func TestLoadGameDropsUnknownViews(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	raw := `{"game_id":"g","assignments":{"goals":{"logger_id":"a"},"hits":{"logger_id":"b"}},"requests":{}}`
	require.NoError(t, kv.Put(ctx, GameKey("g"), []byte(raw)))

	got, err := NewSessionStore(kv, "").LoadGame(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, models.Assignments{models.ViewGoals: {LoggerID: "a"}}, got.Assignments)
}

func TestGlobalRoundTripAndClear(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewSessionStore(kv, "dev-1")

			_, found, err := s.LoadGlobal(ctx)
			require.NoError(t, err)
			assert.False(t, found)

			rec := GlobalRecord{
				Clock:         models.GameClock{Minutes: 12, Seconds: 5, Period: 2, Running: true},
				SelectedViews: []models.ViewID{models.ViewShifts, models.ViewGoals},
				ActiveView:    models.ViewGoals,
				Logger:        &ana,
				GameID:        "game-7",
			}
			require.NoError(t, s.SaveGlobal(ctx, rec))

			got, found, err := s.LoadGlobal(ctx)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, rec.Clock, got.Clock)
			assert.Equal(t, rec.SelectedViews, got.SelectedViews)
			assert.Equal(t, models.ViewGoals, got.ActiveView)
			assert.Equal(t, ana, *got.Logger)
			assert.Equal(t, "game-7", got.GameID)

			require.NoError(t, s.ClearSelectedViews(ctx))
			got, _, err = s.LoadGlobal(ctx)
			require.NoError(t, err)
			assert.Empty(t, got.SelectedViews)
			assert.Equal(t, rec.Clock, got.Clock, "clearing selection keeps the clock")
		})
	}
}

func TestGlobalRecordIsPerDevice(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	one := NewSessionStore(kv, "one")
	two := NewSessionStore(kv, "two")

	require.NoError(t, one.SaveGlobal(ctx, GlobalRecord{SelectedViews: []models.ViewID{models.ViewGoals}}))

	_, found, err := two.LoadGlobal(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"rinklog/devices/one/global"}, kv.Keys("rinklog/devices/"))
}

func TestGameIDFromKey(t *testing.T) {
	id, ok := GameIDFromKey(GameKey("g-1"))
	assert.True(t, ok)
	assert.Equal(t, "g-1", id)

	_, ok = GameIDFromKey("rinklog/devices/x/global")
	assert.False(t, ok)
	_, ok = GameIDFromKey("rinklog/games/")
	assert.False(t, ok)
}

func TestSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}

func TestSQLiteGetMissing(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer kv.Close()

	_, err = kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Put(context.Background(), "k", []byte(`{"a":1}`)))
	require.NoError(t, kv.Delete(context.Background(), "k"))
	_, err = kv.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
