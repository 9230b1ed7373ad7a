package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/rinklog/go/internal/models"
	"github.com/mcdev12/rinklog/go/internal/session"
	"github.com/mcdev12/rinklog/go/internal/session/store"
)

func newTestServer(t *testing.T) (*Client, *session.Coordinator) {
	t.Helper()
	ctx := context.Background()
	coord := session.New(ctx, store.NewSessionStore(store.NewMemoryKV(), "test"), session.Options{
		GameID:     "g1",
		LoggerName: "Xavier",
		Clock:      clockwork.NewFakeClock(),
	})
	t.Cleanup(func() { coord.Close(ctx) })

	mux := http.NewServeMux()
	path, handler := NewHandler(NewService(coord))
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(srv.Client(), srv.URL), coord
}

func TestGetCurrentTime(t *testing.T) {
	client, _ := newTestServer(t)

	resp, err := client.GetCurrentTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20:00", resp.Display)
	assert.Equal(t, 1, resp.Clock.Period)
	assert.True(t, resp.Clock.Locked)
}

func TestClaimAndTakeOver(t *testing.T) {
	ctx := context.Background()
	client, coord := newTestServer(t)

	claim, err := client.ClaimOrCheck(ctx, &ClaimOrCheckRequest{View: "goals"})
	require.NoError(t, err)
	assert.True(t, claim.Result.Owned)
	assert.Equal(t, "Xavier", claim.Result.OwnerName)

	yara := &models.Logger{ID: "logger-y", DisplayName: "Yara"}
	claim, err = client.ClaimOrCheck(ctx, &ClaimOrCheckRequest{View: "goals", Logger: yara})
	require.NoError(t, err)
	assert.False(t, claim.Result.Owned)
	assert.Equal(t, "XA", claim.Result.OwnerInitials)

	req, err := client.RequestTakeOver(ctx, &RequestTakeOverRequest{View: "goals", From: yara})
	require.NoError(t, err)
	assert.True(t, req.Accepted)

	pending, ok := coord.PendingTakeOver(models.ViewGoals)
	require.True(t, ok)
	assert.Equal(t, "YA", pending.FromLoggerInitials)

	approve, err := client.ApproveTakeOver(ctx, "goals")
	require.NoError(t, err)
	assert.True(t, approve.Accepted)

	approve, err = client.ApproveTakeOver(ctx, "goals")
	require.NoError(t, err)
	assert.False(t, approve.Accepted)

	owner, _ := coord.Owner(models.ViewGoals)
	assert.Equal(t, "logger-y", owner.LoggerID)
}

func TestUnknownViewIsInvalidArgument(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestServer(t)

	_, err := client.ClaimOrCheck(ctx, &ClaimOrCheckRequest{View: "zamboni"})
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.SelectViews(ctx, "goals", "zamboni")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.ClaimOrCheck(ctx, &ClaimOrCheckRequest{View: "goals", Logger: &models.Logger{}})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestClockProcedures(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestServer(t)

	resp, err := client.SetTime(ctx, 10, 0)
	require.NoError(t, err)
	assert.False(t, resp.Accepted, "locked clock")

	resp, err = client.ToggleLock(ctx)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.False(t, resp.Clock.Locked)

	resp, err = client.SetTime(ctx, 10, 5)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "10:05", resp.Display)

	resp, err = client.StartClock(ctx)
	require.NoError(t, err)
	assert.True(t, resp.Clock.Running)

	resp, err = client.StopClock(ctx)
	require.NoError(t, err)
	assert.False(t, resp.Clock.Running)
}

func TestSelectViewsAndVisibility(t *testing.T) {
	ctx := context.Background()
	client, coord := newTestServer(t)

	sel, err := client.SelectViews(ctx, "shots", "goals", "shots")
	require.NoError(t, err)
	assert.Equal(t, []models.ViewID{models.ViewShots, models.ViewGoals}, sel.Views)

	err = client.ReportVisibility(ctx, "sideways")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	require.NoError(t, client.ReportVisibility(ctx, "unloaded"))
	assert.Empty(t, coord.SelectedViews())
}

func TestClearAllReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestServer(t)

	_, err := client.SelectViews(ctx, "goals")
	require.NoError(t, err)
	_, err = client.ClaimOrCheck(ctx, &ClaimOrCheckRequest{View: "goals"})
	require.NoError(t, err)

	snap, err := client.ClearAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Session.SelectedViews)
	assert.Empty(t, snap.Session.Assignments)
	assert.Equal(t, "g1", snap.Session.GameID)
}

func TestActiveViewPeriodAndGame(t *testing.T) {
	ctx := context.Background()
	client, coord := newTestServer(t)

	focus, err := client.SetActiveView(ctx, "goals")
	require.NoError(t, err)
	assert.False(t, focus.Accepted, "goals is not selected")

	_, err = client.SelectViews(ctx, "goals")
	require.NoError(t, err)
	focus, err = client.SetActiveView(ctx, "goals")
	require.NoError(t, err)
	assert.True(t, focus.Accepted)
	assert.Equal(t, models.ViewGoals, coord.ActiveView())

	_, err = client.ToggleLock(ctx)
	require.NoError(t, err)
	period, err := client.SetPeriod(ctx, 2)
	require.NoError(t, err)
	assert.True(t, period.Accepted)
	assert.Equal(t, 2, period.Clock.Period)

	_, err = client.SwitchGame(ctx, "")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	switched, err := client.SwitchGame(ctx, "g2")
	require.NoError(t, err)
	assert.True(t, switched.Accepted)
	assert.Equal(t, "g2", coord.GameID())
}
