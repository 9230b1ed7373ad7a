package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/rinklog/go/internal/models"
	"github.com/mcdev12/rinklog/go/internal/session/events"
	"github.com/mcdev12/rinklog/go/internal/session/lifecycle"
	"github.com/mcdev12/rinklog/go/internal/session/ownership"
	"github.com/mcdev12/rinklog/go/internal/session/store"
)

var (
	yara = models.Logger{ID: "logger-y", DisplayName: "Yara Young", Initials: "YY"}
	zoe  = models.Logger{ID: "logger-z", DisplayName: "Zoe", Initials: "ZO"}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenKV) Put(context.Context, string, []byte) error   { return errors.New("disk gone") }
func (brokenKV) Delete(context.Context, string) error        { return errors.New("disk gone") }
func (brokenKV) Close() error                                { return nil }

func newCoordinator(t *testing.T, kv store.KV, device string, opts Options) *Coordinator {
	t.Helper()
	if opts.GameID == "" {
		opts.GameID = "g1"
	}
	c := New(context.Background(), store.NewSessionStore(kv, device), opts)
	t.Cleanup(func() { c.Close(context.Background()) })
	return c
}

func TestNewCreatesLoggerOnce(t *testing.T) {
	kv := store.NewMemoryKV()
	first := newCoordinator(t, kv, "a", Options{LoggerName: "Jane Doe"})

	l := first.Logger()
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "JD", l.Initials)
	assert.Equal(t, "20:00", first.CurrentTime())
	assert.True(t, first.Clock().Locked)
	assert.Equal(t, 1, first.Clock().Period)

	second := newCoordinator(t, kv, "a", Options{LoggerName: "Someone Else"})
	assert.Equal(t, l, second.Logger())
}

func TestNewDefaultsGameFromStore(t *testing.T) {
	kv := store.NewMemoryKV()
	ctx := context.Background()
	st := store.NewSessionStore(kv, "a")

	c := New(ctx, st, Options{})
	assert.Equal(t, DefaultGameID, c.GameID())
	require.True(t, c.SwitchGame(ctx, "g9"))
	c.Close(ctx)

	again := New(ctx, st, Options{})
	defer again.Close(ctx)
	assert.Equal(t, "g9", again.GameID())
}

func TestClaimOrCheck(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{LoggerName: "Xavier", Publisher: pub})
	me := c.Logger()

	res := c.ClaimOrCheck(ctx, models.ViewGoals, me)
	assert.True(t, res.Owned)
	assert.Equal(t, "Xavier", res.OwnerName)

	// claiming again is a check
	res = c.ClaimOrCheck(ctx, models.ViewGoals, me)
	assert.True(t, res.Owned)

	res = c.ClaimOrCheck(ctx, models.ViewGoals, yara)
	assert.False(t, res.Owned)
	assert.Equal(t, "Xavier", res.OwnerName)
	assert.Equal(t, me.Initials, res.OwnerInitials)

	assert.True(t, c.IsOwnedByOther(models.ViewGoals, yara.ID))
	assert.Equal(t, []events.EventType{events.EventTypeViewClaimed}, pub.types())
}

func TestTakeOverThroughCoordinator(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{LoggerName: "Xavier", Publisher: pub})

	require.True(t, c.ClaimOrCheck(ctx, models.ViewGoals, c.Logger()).Owned)

	require.True(t, c.RequestTakeOver(ctx, models.ViewGoals, yara))
	assert.False(t, c.RequestTakeOver(ctx, models.ViewGoals, zoe))

	req, ok := c.PendingTakeOver(models.ViewGoals)
	require.True(t, ok)
	assert.Equal(t, yara.ID, req.FromLoggerID)

	owner, _ := c.Owner(models.ViewGoals)
	assert.Equal(t, c.Logger().ID, owner.LoggerID)

	require.True(t, c.ApproveTakeOver(ctx, models.ViewGoals))
	assert.False(t, c.ApproveTakeOver(ctx, models.ViewGoals))

	owner, _ = c.Owner(models.ViewGoals)
	assert.Equal(t, yara.ID, owner.LoggerID)
	_, ok = c.PendingTakeOver(models.ViewGoals)
	assert.False(t, ok)

	assert.Equal(t, []events.EventType{
		events.EventTypeViewClaimed,
		events.EventTypeTakeOverRequested,
		events.EventTypeTakeOverApproved,
	}, pub.types())
}

func TestCancelTakeOver(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{})
	c.ClaimOrCheck(ctx, models.ViewShots, c.Logger())

	assert.False(t, c.CancelTakeOver(ctx, models.ViewShots))
	require.True(t, c.RequestTakeOver(ctx, models.ViewShots, yara))
	assert.True(t, c.CancelTakeOver(ctx, models.ViewShots))
	assert.False(t, c.ApproveTakeOver(ctx, models.ViewShots))
}

func TestHolderOnlyPolicy(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{Policy: ownership.HolderOnly{}})

	require.True(t, c.ClaimOrCheck(ctx, models.ViewGoals, yara).Owned)
	require.True(t, c.RequestTakeOver(ctx, models.ViewGoals, zoe))

	// this device's logger does not hold goals
	assert.False(t, c.ApproveTakeOver(ctx, models.ViewGoals))
	_, pending := c.PendingTakeOver(models.ViewGoals)
	assert.True(t, pending)
	assert.Equal(t, "holder_only", c.Snapshot().Policy)
}

func TestTwoDevicesShareStore(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	a := newCoordinator(t, kv, "a", Options{LoggerName: "Xavier"})
	b := newCoordinator(t, kv, "b", Options{LoggerName: "Yara"})
	require.NotEqual(t, a.Logger().ID, b.Logger().ID)

	require.True(t, a.ClaimOrCheck(ctx, models.ViewGoals, a.Logger()).Owned)

	b.Reload(ctx)
	res := b.ClaimOrCheck(ctx, models.ViewGoals, b.Logger())
	assert.False(t, res.Owned)
	assert.Equal(t, "Xavier", res.OwnerName)

	require.True(t, b.RequestTakeOver(ctx, models.ViewGoals, b.Logger()))

	a.Reload(ctx)
	req, ok := a.PendingTakeOver(models.ViewGoals)
	require.True(t, ok)
	assert.Equal(t, b.Logger().ID, req.FromLoggerID)
	require.True(t, a.ApproveTakeOver(ctx, models.ViewGoals))

	b.Reload(ctx)
	owner, ok := b.Owner(models.ViewGoals)
	require.True(t, ok)
	assert.Equal(t, b.Logger().ID, owner.LoggerID)
	_, ok = b.PendingTakeOver(models.ViewGoals)
	assert.False(t, ok)
}

func TestLastWriterWins(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	a := newCoordinator(t, kv, "a", Options{LoggerName: "Xavier"})
	b := newCoordinator(t, kv, "b", Options{LoggerName: "Yara"})

	// both claim before either reloads
	require.True(t, a.ClaimOrCheck(ctx, models.ViewShots, a.Logger()).Owned)
	require.True(t, b.ClaimOrCheck(ctx, models.ViewShots, b.Logger()).Owned)

	a.Reload(ctx)
	owner, _ := a.Owner(models.ViewShots)
	assert.Equal(t, b.Logger().ID, owner.LoggerID)
}

func TestHandleRemoteEvent(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{InstanceID: "me"})

	mk := func(typ events.EventType, gameID, instance string) events.Envelope {
		env, err := events.NewEnvelope(typ, gameID, instance, "x", events.GamePayload{GameID: gameID})
		require.NoError(t, err)
		return env
	}

	assert.False(t, c.HandleRemoteEvent(ctx, mk(events.EventTypeViewClaimed, "g1", "me")))
	assert.False(t, c.HandleRemoteEvent(ctx, mk(events.EventTypeClockTicked, "g1", "other")))
	assert.False(t, c.HandleRemoteEvent(ctx, mk(events.EventTypeViewClaimed, "g2", "other")))
	assert.True(t, c.HandleRemoteEvent(ctx, mk(events.EventTypeTakeOverRequested, "g1", "other")))
}

func TestHandleStoreChange(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	c := newCoordinator(t, kv, "a", Options{})

	other := store.NewSessionStore(kv, "b")
	require.NoError(t, other.SaveGame(ctx, "g1", models.Assignments{
		models.ViewGoals: models.AssignmentFor(zoe),
	}, nil))

	assert.False(t, c.HandleStoreChange(ctx, store.GameKey("g2")))
	_, owned := c.Owner(models.ViewGoals)
	assert.False(t, owned)

	assert.True(t, c.HandleStoreChange(ctx, store.GameKey("g1")))
	owner, owned := c.Owner(models.ViewGoals)
	require.True(t, owned)
	assert.Equal(t, zoe.ID, owner.LoggerID)

	assert.True(t, c.HandleStoreChange(ctx, ""))
}

func TestClockCommandsPersist(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	c := newCoordinator(t, kv, "a", Options{})

	assert.False(t, c.SetTime(ctx, 5, 30), "locked clock rejects edits")
	assert.False(t, c.StartClock(ctx), "locked clock rejects start")
	require.True(t, c.ToggleLock(ctx))
	require.True(t, c.SetTime(ctx, 5, 30))
	require.True(t, c.SetPeriod(ctx, 3))
	assert.False(t, c.SetTime(ctx, 5, 60))
	assert.Equal(t, "05:30", c.CurrentTime())
	c.Close(ctx)

	restored := newCoordinator(t, kv, "a", Options{})
	st := restored.Clock()
	assert.Equal(t, 5, st.Minutes)
	assert.Equal(t, 30, st.Seconds)
	assert.Equal(t, 3, st.Period)
	assert.False(t, st.Locked)
	assert.False(t, st.Running)
}

func TestClockTicksWithFakeClock(t *testing.T) {
	ctx := context.Background()
	fc := clockwork.NewFakeClock()
	pub := &recordingPublisher{}
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{Clock: fc, Publisher: pub})

	require.True(t, c.ToggleLock(ctx))
	require.True(t, c.StartClock(ctx))
	assert.False(t, c.StartClock(ctx))

	for i, want := range []string{"19:59", "19:58", "19:57"} {
		fc.Advance(time.Second)
		w := want
		require.Eventually(t, func() bool { return c.CurrentTime() == w }, time.Second, time.Millisecond, "tick %d", i)
	}

	require.True(t, c.StopClock(ctx))
	assert.False(t, c.Clock().Running)
	assert.Contains(t, pub.types(), events.EventTypeClockTicked)

	fc.Advance(3 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, "19:57", c.CurrentTime())
}

func TestSelectViews(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	c := newCoordinator(t, kv, "a", Options{})

	c.SelectViews(ctx, []models.ViewID{models.ViewGoals, models.ViewShots, models.ViewGoals})
	assert.Equal(t, []models.ViewID{models.ViewGoals, models.ViewShots}, c.SelectedViews())

	assert.False(t, c.SetActiveView(ctx, models.ViewPenalties))
	assert.True(t, c.SetActiveView(ctx, models.ViewShots))
	assert.Equal(t, models.ViewShots, c.ActiveView())

	// dropping the active view from the selection clears it
	c.SelectViews(ctx, []models.ViewID{models.ViewGoals})
	assert.Equal(t, models.ViewID(""), c.ActiveView())
	c.Close(ctx)

	restored := newCoordinator(t, kv, "a", Options{})
	assert.Equal(t, []models.ViewID{models.ViewGoals}, restored.SelectedViews())
}

func TestHiddenPastDebounceClearsSelection(t *testing.T) {
	ctx := context.Background()
	fc := clockwork.NewFakeClock()
	kv := store.NewMemoryKV()
	c := newCoordinator(t, kv, "a", Options{Clock: fc, Debounce: time.Second})
	c.SelectViews(ctx, []models.ViewID{models.ViewGoals})

	c.HandleVisibility(ctx, lifecycle.Hidden)
	fc.Advance(time.Second)
	require.Eventually(t, func() bool { return len(c.SelectedViews()) == 0 }, time.Second, time.Millisecond)

	rec, found, err := store.NewSessionStore(kv, "a").LoadGlobal(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, rec.SelectedViews)
}

func TestBriefTabSwitchKeepsSelection(t *testing.T) {
	ctx := context.Background()
	fc := clockwork.NewFakeClock()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{Clock: fc, Debounce: time.Second})
	c.SelectViews(ctx, []models.ViewID{models.ViewGoals})

	c.HandleVisibility(ctx, lifecycle.Hidden)
	fc.Advance(300 * time.Millisecond)
	c.HandleVisibility(ctx, lifecycle.Visible)
	fc.Advance(2 * time.Second)
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, []models.ViewID{models.ViewGoals}, c.SelectedViews())
}

func TestUnloadClearsImmediately(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{Clock: clockwork.NewFakeClock()})
	c.SelectViews(ctx, []models.ViewID{models.ViewGoals})

	c.HandleVisibility(ctx, lifecycle.Unloaded)
	assert.Empty(t, c.SelectedViews())
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{})
	me := c.Logger()

	c.SelectViews(ctx, []models.ViewID{models.ViewGoals, models.ViewShots})
	c.ClaimOrCheck(ctx, models.ViewGoals, me)
	c.ClaimOrCheck(ctx, models.ViewShots, me)
	c.ClaimOrCheck(ctx, models.ViewPenalties, zoe)
	require.True(t, c.RequestTakeOver(ctx, models.ViewGoals, zoe))
	require.True(t, c.RequestTakeOver(ctx, models.ViewPenalties, yara))

	c.ClearAll(ctx)

	snap := c.Snapshot()
	assert.Empty(t, snap.SelectedViews)
	assert.Len(t, snap.Assignments, 1)
	assert.Equal(t, zoe.ID, snap.Assignments[models.ViewPenalties].LoggerID)
	assert.Len(t, snap.Requests, 1)
	assert.Equal(t, yara.ID, snap.Requests[models.ViewPenalties].FromLoggerID)
}

func TestReleaseView(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{})
	assert.False(t, c.ReleaseView(ctx, models.ViewGoals))

	c.ClaimOrCheck(ctx, models.ViewGoals, c.Logger())
	require.True(t, c.RequestTakeOver(ctx, models.ViewGoals, yara))
	assert.True(t, c.ReleaseView(ctx, models.ViewGoals))

	_, owned := c.Owner(models.ViewGoals)
	assert.False(t, owned)
	_, pending := c.PendingTakeOver(models.ViewGoals)
	assert.False(t, pending)
}

func TestSwitchGameKeepsOwnershipPerGame(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{})
	c.ClaimOrCheck(ctx, models.ViewGoals, c.Logger())

	assert.False(t, c.SwitchGame(ctx, "g1"))
	assert.False(t, c.SwitchGame(ctx, "  "))
	require.True(t, c.SwitchGame(ctx, "g2"))
	_, owned := c.Owner(models.ViewGoals)
	assert.False(t, owned)

	require.True(t, c.SwitchGame(ctx, "g1"))
	_, owned = c.Owner(models.ViewGoals)
	assert.True(t, owned)
}

func TestRenameLogger(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	c := newCoordinator(t, kv, "a", Options{LoggerName: "Xavier"})
	id := c.Logger().ID

	l := c.RenameLogger(ctx, " Xavier Quinn ")
	assert.Equal(t, "Xavier Quinn", l.DisplayName)
	assert.Equal(t, "XQ", l.Initials)
	c.Close(ctx)

	restored := newCoordinator(t, kv, "a", Options{})
	assert.Equal(t, id, restored.Logger().ID)
	assert.Equal(t, "XQ", restored.Logger().Initials)
}

func TestPersistenceFailureFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, brokenKV{}, "a", Options{LoggerName: "Xavier"})

	assert.Equal(t, "20:00", c.CurrentTime())
	assert.NotEmpty(t, c.Logger().ID)

	res := c.ClaimOrCheck(ctx, models.ViewGoals, c.Logger())
	assert.True(t, res.Owned)
	c.Reload(ctx)
	_, owned := c.Owner(models.ViewGoals)
	assert.True(t, owned, "failed reload keeps in-memory state")
}

func TestUnknownViewPanics(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{})

	assert.Panics(t, func() { c.ClaimOrCheck(ctx, models.ViewID("zamboni"), c.Logger()) })
	assert.Panics(t, func() { c.SelectViews(ctx, []models.ViewID{"zamboni"}) })
	assert.Panics(t, func() { c.RequestTakeOver(ctx, models.ViewID("zamboni"), yara) })
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, store.NewMemoryKV(), "a", Options{})
	c.Close(ctx)
	c.Close(ctx)
	c.Reload(ctx)
}

func TestDefaultViewsOnlyForFreshDevice(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	opts := Options{DefaultViews: []models.ViewID{models.ViewClock, models.ViewGoals, models.ViewClock}}

	fresh := newCoordinator(t, kv, "a", opts)
	assert.Equal(t, []models.ViewID{models.ViewClock, models.ViewGoals}, fresh.SelectedViews())
	fresh.SelectViews(ctx, []models.ViewID{models.ViewShifts})
	fresh.Close(ctx)

	restored := newCoordinator(t, kv, "a", opts)
	assert.Equal(t, []models.ViewID{models.ViewShifts}, restored.SelectedViews())
}
