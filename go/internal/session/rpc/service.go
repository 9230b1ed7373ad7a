// Package rpc exposes the session coordinator to log-view collaborators over
// connect.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mcdev12/rinklog/go/internal/models"
	"github.com/mcdev12/rinklog/go/internal/session"
	"github.com/mcdev12/rinklog/go/internal/session/lifecycle"
)

const SessionServiceName = "rinklog.session.v1.SessionService"

const (
	GetCurrentTimeProcedure   = "/" + SessionServiceName + "/GetCurrentTime"
	GetSnapshotProcedure      = "/" + SessionServiceName + "/GetSnapshot"
	ClaimOrCheckProcedure     = "/" + SessionServiceName + "/ClaimOrCheck"
	ReleaseViewProcedure      = "/" + SessionServiceName + "/ReleaseView"
	RequestTakeOverProcedure  = "/" + SessionServiceName + "/RequestTakeOver"
	ApproveTakeOverProcedure  = "/" + SessionServiceName + "/ApproveTakeOver"
	CancelTakeOverProcedure   = "/" + SessionServiceName + "/CancelTakeOver"
	SelectViewsProcedure      = "/" + SessionServiceName + "/SelectViews"
	SetActiveViewProcedure    = "/" + SessionServiceName + "/SetActiveView"
	ClearAllProcedure         = "/" + SessionServiceName + "/ClearAll"
	StartClockProcedure       = "/" + SessionServiceName + "/StartClock"
	StopClockProcedure        = "/" + SessionServiceName + "/StopClock"
	SetTimeProcedure          = "/" + SessionServiceName + "/SetTime"
	SetPeriodProcedure        = "/" + SessionServiceName + "/SetPeriod"
	ToggleLockProcedure       = "/" + SessionServiceName + "/ToggleLock"
	ReportVisibilityProcedure = "/" + SessionServiceName + "/ReportVisibility"
	SwitchGameProcedure       = "/" + SessionServiceName + "/SwitchGame"
)

// SessionApp defines what the service layer needs from the coordinator
type SessionApp interface {
	Logger() models.Logger
	CurrentTime() string
	Clock() models.GameClock
	Snapshot() session.Snapshot
	ClaimOrCheck(ctx context.Context, view models.ViewID, logger models.Logger) session.ClaimResult
	ReleaseView(ctx context.Context, view models.ViewID) bool
	RequestTakeOver(ctx context.Context, view models.ViewID, from models.Logger) bool
	ApproveTakeOver(ctx context.Context, view models.ViewID) bool
	CancelTakeOver(ctx context.Context, view models.ViewID) bool
	SelectViews(ctx context.Context, views []models.ViewID)
	SelectedViews() []models.ViewID
	SetActiveView(ctx context.Context, view models.ViewID) bool
	ClearAll(ctx context.Context)
	StartClock(ctx context.Context) bool
	StopClock(ctx context.Context) bool
	SetTime(ctx context.Context, minutes, seconds int) bool
	SetPeriod(ctx context.Context, period int) bool
	ToggleLock(ctx context.Context) bool
	HandleVisibility(ctx context.Context, state lifecycle.Visibility)
	SwitchGame(ctx context.Context, gameID string) bool
}

var _ SessionApp = (*session.Coordinator)(nil)

// Service implements the SessionService procedures
type Service struct {
	app SessionApp
}

// NewService creates a new session service
func NewService(app SessionApp) *Service {
	return &Service{
		app: app,
	}
}

// NewHandler builds the HTTP handler for every procedure and the path prefix
// to mount it on.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetCurrentTimeProcedure, connect.NewUnaryHandler(GetCurrentTimeProcedure, svc.GetCurrentTime, opts...))
	mux.Handle(GetSnapshotProcedure, connect.NewUnaryHandler(GetSnapshotProcedure, svc.GetSnapshot, opts...))
	mux.Handle(ClaimOrCheckProcedure, connect.NewUnaryHandler(ClaimOrCheckProcedure, svc.ClaimOrCheck, opts...))
	mux.Handle(ReleaseViewProcedure, connect.NewUnaryHandler(ReleaseViewProcedure, svc.ReleaseView, opts...))
	mux.Handle(RequestTakeOverProcedure, connect.NewUnaryHandler(RequestTakeOverProcedure, svc.RequestTakeOver, opts...))
	mux.Handle(ApproveTakeOverProcedure, connect.NewUnaryHandler(ApproveTakeOverProcedure, svc.ApproveTakeOver, opts...))
	mux.Handle(CancelTakeOverProcedure, connect.NewUnaryHandler(CancelTakeOverProcedure, svc.CancelTakeOver, opts...))
	mux.Handle(SelectViewsProcedure, connect.NewUnaryHandler(SelectViewsProcedure, svc.SelectViews, opts...))
	mux.Handle(SetActiveViewProcedure, connect.NewUnaryHandler(SetActiveViewProcedure, svc.SetActiveView, opts...))
	mux.Handle(ClearAllProcedure, connect.NewUnaryHandler(ClearAllProcedure, svc.ClearAll, opts...))
	mux.Handle(StartClockProcedure, connect.NewUnaryHandler(StartClockProcedure, svc.StartClock, opts...))
	mux.Handle(StopClockProcedure, connect.NewUnaryHandler(StopClockProcedure, svc.StopClock, opts...))
	mux.Handle(SetTimeProcedure, connect.NewUnaryHandler(SetTimeProcedure, svc.SetTime, opts...))
	mux.Handle(SetPeriodProcedure, connect.NewUnaryHandler(SetPeriodProcedure, svc.SetPeriod, opts...))
	mux.Handle(ToggleLockProcedure, connect.NewUnaryHandler(ToggleLockProcedure, svc.ToggleLock, opts...))
	mux.Handle(ReportVisibilityProcedure, connect.NewUnaryHandler(ReportVisibilityProcedure, svc.ReportVisibility, opts...))
	mux.Handle(SwitchGameProcedure, connect.NewUnaryHandler(SwitchGameProcedure, svc.SwitchGame, opts...))

	return "/" + SessionServiceName + "/", mux
}

// GetCurrentTime returns the clock display used to stamp events
func (s *Service) GetCurrentTime(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[GetCurrentTimeResponse], error) {
	return connect.NewResponse(&GetCurrentTimeResponse{
		Display: s.app.CurrentTime(),
		Clock:   s.app.Clock(),
	}), nil
}

func (s *Service) GetSnapshot(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[SnapshotResponse], error) {
	return connect.NewResponse(&SnapshotResponse{Session: s.app.Snapshot()}), nil
}

// ClaimOrCheck claims an unowned view or reports who holds it
func (s *Service) ClaimOrCheck(ctx context.Context, req *connect.Request[ClaimOrCheckRequest]) (*connect.Response[ClaimOrCheckResponse], error) {
	view, err := parseView(req.Msg.View)
	if err != nil {
		return nil, err
	}
	logger, err := s.loggerOrDefault(req.Msg.Logger)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&ClaimOrCheckResponse{
		Result: s.app.ClaimOrCheck(ctx, view, logger),
	}), nil
}

func (s *Service) ReleaseView(ctx context.Context, req *connect.Request[ViewRequest]) (*connect.Response[AcceptedResponse], error) {
	view, err := parseView(req.Msg.View)
	if err != nil {
		return nil, err
	}
	return accepted(s.app.ReleaseView(ctx, view)), nil
}

func (s *Service) RequestTakeOver(ctx context.Context, req *connect.Request[RequestTakeOverRequest]) (*connect.Response[AcceptedResponse], error) {
	view, err := parseView(req.Msg.View)
	if err != nil {
		return nil, err
	}
	from, err := s.loggerOrDefault(req.Msg.From)
	if err != nil {
		return nil, err
	}
	return accepted(s.app.RequestTakeOver(ctx, view, from)), nil
}

func (s *Service) ApproveTakeOver(ctx context.Context, req *connect.Request[ViewRequest]) (*connect.Response[AcceptedResponse], error) {
	view, err := parseView(req.Msg.View)
	if err != nil {
		return nil, err
	}
	return accepted(s.app.ApproveTakeOver(ctx, view)), nil
}

func (s *Service) CancelTakeOver(ctx context.Context, req *connect.Request[ViewRequest]) (*connect.Response[AcceptedResponse], error) {
	view, err := parseView(req.Msg.View)
	if err != nil {
		return nil, err
	}
	return accepted(s.app.CancelTakeOver(ctx, view)), nil
}

// SelectViews replaces the device's selection and echoes the stored result
func (s *Service) SelectViews(ctx context.Context, req *connect.Request[SelectViewsRequest]) (*connect.Response[SelectViewsResponse], error) {
	views, err := models.ParseViewIDs(req.Msg.Views)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	s.app.SelectViews(ctx, views)
	return connect.NewResponse(&SelectViewsResponse{Views: s.app.SelectedViews()}), nil
}

func (s *Service) SetActiveView(ctx context.Context, req *connect.Request[ViewRequest]) (*connect.Response[AcceptedResponse], error) {
	var view models.ViewID
	if req.Msg.View != "" {
		v, err := parseView(req.Msg.View)
		if err != nil {
			return nil, err
		}
		view = v
	}
	return accepted(s.app.SetActiveView(ctx, view)), nil
}

func (s *Service) ClearAll(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[SnapshotResponse], error) {
	s.app.ClearAll(ctx)
	return connect.NewResponse(&SnapshotResponse{Session: s.app.Snapshot()}), nil
}

func (s *Service) StartClock(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ClockResponse], error) {
	return s.clockResponse(s.app.StartClock(ctx)), nil
}

func (s *Service) StopClock(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ClockResponse], error) {
	return s.clockResponse(s.app.StopClock(ctx)), nil
}

func (s *Service) SetTime(ctx context.Context, req *connect.Request[SetTimeRequest]) (*connect.Response[ClockResponse], error) {
	return s.clockResponse(s.app.SetTime(ctx, req.Msg.Minutes, req.Msg.Seconds)), nil
}

func (s *Service) SetPeriod(ctx context.Context, req *connect.Request[SetPeriodRequest]) (*connect.Response[ClockResponse], error) {
	return s.clockResponse(s.app.SetPeriod(ctx, req.Msg.Period)), nil
}

func (s *Service) ToggleLock(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ClockResponse], error) {
	return s.clockResponse(s.app.ToggleLock(ctx)), nil
}

// ReportVisibility forwards the client's page visibility to the close watcher
func (s *Service) ReportVisibility(ctx context.Context, req *connect.Request[ReportVisibilityRequest]) (*connect.Response[Empty], error) {
	state, err := lifecycle.ParseVisibility(req.Msg.State)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	s.app.HandleVisibility(ctx, state)
	return connect.NewResponse(&Empty{}), nil
}

func (s *Service) SwitchGame(ctx context.Context, req *connect.Request[SwitchGameRequest]) (*connect.Response[AcceptedResponse], error) {
	if req.Msg.GameID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("game_id is required"))
	}
	return accepted(s.app.SwitchGame(ctx, req.Msg.GameID)), nil
}

func (s *Service) clockResponse(ok bool) *connect.Response[ClockResponse] {
	return connect.NewResponse(&ClockResponse{
		Accepted: ok,
		Clock:    s.app.Clock(),
		Display:  s.app.CurrentTime(),
	})
}

func (s *Service) loggerOrDefault(l *models.Logger) (models.Logger, error) {
	if l == nil {
		return s.app.Logger(), nil
	}
	if l.ID == "" {
		return models.Logger{}, connect.NewError(connect.CodeInvalidArgument, errors.New("logger id is required"))
	}
	out := *l
	if out.Initials == "" {
		out.Initials = models.DeriveInitials(out.DisplayName)
	}
	return out, nil
}

func parseView(s string) (models.ViewID, error) {
	view, err := models.ParseViewID(s)
	if err != nil {
		return "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("view %q: %w", s, err))
	}
	return view, nil
}

func accepted(ok bool) *connect.Response[AcceptedResponse] {
	return connect.NewResponse(&AcceptedResponse{Accepted: ok})
}
