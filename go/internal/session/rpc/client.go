package rpc

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a remote SessionService
type Client struct {
	getCurrentTime   *connect.Client[Empty, GetCurrentTimeResponse]
	getSnapshot      *connect.Client[Empty, SnapshotResponse]
	claimOrCheck     *connect.Client[ClaimOrCheckRequest, ClaimOrCheckResponse]
	releaseView      *connect.Client[ViewRequest, AcceptedResponse]
	requestTakeOver  *connect.Client[RequestTakeOverRequest, AcceptedResponse]
	approveTakeOver  *connect.Client[ViewRequest, AcceptedResponse]
	cancelTakeOver   *connect.Client[ViewRequest, AcceptedResponse]
	selectViews      *connect.Client[SelectViewsRequest, SelectViewsResponse]
	setActiveView    *connect.Client[ViewRequest, AcceptedResponse]
	clearAll         *connect.Client[Empty, SnapshotResponse]
	startClock       *connect.Client[Empty, ClockResponse]
	stopClock        *connect.Client[Empty, ClockResponse]
	setTime          *connect.Client[SetTimeRequest, ClockResponse]
	setPeriod        *connect.Client[SetPeriodRequest, ClockResponse]
	toggleLock       *connect.Client[Empty, ClockResponse]
	reportVisibility *connect.Client[ReportVisibilityRequest, Empty]
	switchGame       *connect.Client[SwitchGameRequest, AcceptedResponse]
}

// NewClient creates a client for the service at baseURL
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		getCurrentTime:   connect.NewClient[Empty, GetCurrentTimeResponse](httpClient, baseURL+GetCurrentTimeProcedure, opts...),
		getSnapshot:      connect.NewClient[Empty, SnapshotResponse](httpClient, baseURL+GetSnapshotProcedure, opts...),
		claimOrCheck:     connect.NewClient[ClaimOrCheckRequest, ClaimOrCheckResponse](httpClient, baseURL+ClaimOrCheckProcedure, opts...),
		releaseView:      connect.NewClient[ViewRequest, AcceptedResponse](httpClient, baseURL+ReleaseViewProcedure, opts...),
		requestTakeOver:  connect.NewClient[RequestTakeOverRequest, AcceptedResponse](httpClient, baseURL+RequestTakeOverProcedure, opts...),
		approveTakeOver:  connect.NewClient[ViewRequest, AcceptedResponse](httpClient, baseURL+ApproveTakeOverProcedure, opts...),
		cancelTakeOver:   connect.NewClient[ViewRequest, AcceptedResponse](httpClient, baseURL+CancelTakeOverProcedure, opts...),
		selectViews:      connect.NewClient[SelectViewsRequest, SelectViewsResponse](httpClient, baseURL+SelectViewsProcedure, opts...),
		setActiveView:    connect.NewClient[ViewRequest, AcceptedResponse](httpClient, baseURL+SetActiveViewProcedure, opts...),
		clearAll:         connect.NewClient[Empty, SnapshotResponse](httpClient, baseURL+ClearAllProcedure, opts...),
		startClock:       connect.NewClient[Empty, ClockResponse](httpClient, baseURL+StartClockProcedure, opts...),
		stopClock:        connect.NewClient[Empty, ClockResponse](httpClient, baseURL+StopClockProcedure, opts...),
		setTime:          connect.NewClient[SetTimeRequest, ClockResponse](httpClient, baseURL+SetTimeProcedure, opts...),
		setPeriod:        connect.NewClient[SetPeriodRequest, ClockResponse](httpClient, baseURL+SetPeriodProcedure, opts...),
		toggleLock:       connect.NewClient[Empty, ClockResponse](httpClient, baseURL+ToggleLockProcedure, opts...),
		reportVisibility: connect.NewClient[ReportVisibilityRequest, Empty](httpClient, baseURL+ReportVisibilityProcedure, opts...),
		switchGame:       connect.NewClient[SwitchGameRequest, AcceptedResponse](httpClient, baseURL+SwitchGameProcedure, opts...),
	}
}

func (c *Client) GetCurrentTime(ctx context.Context) (*GetCurrentTimeResponse, error) {
	return call(ctx, c.getCurrentTime, &Empty{})
}

func (c *Client) GetSnapshot(ctx context.Context) (*SnapshotResponse, error) {
	return call(ctx, c.getSnapshot, &Empty{})
}

func (c *Client) ClaimOrCheck(ctx context.Context, req *ClaimOrCheckRequest) (*ClaimOrCheckResponse, error) {
	return call(ctx, c.claimOrCheck, req)
}

func (c *Client) ReleaseView(ctx context.Context, view string) (*AcceptedResponse, error) {
	return call(ctx, c.releaseView, &ViewRequest{View: view})
}

func (c *Client) RequestTakeOver(ctx context.Context, req *RequestTakeOverRequest) (*AcceptedResponse, error) {
	return call(ctx, c.requestTakeOver, req)
}

func (c *Client) ApproveTakeOver(ctx context.Context, view string) (*AcceptedResponse, error) {
	return call(ctx, c.approveTakeOver, &ViewRequest{View: view})
}

func (c *Client) CancelTakeOver(ctx context.Context, view string) (*AcceptedResponse, error) {
	return call(ctx, c.cancelTakeOver, &ViewRequest{View: view})
}

func (c *Client) SelectViews(ctx context.Context, views ...string) (*SelectViewsResponse, error) {
	return call(ctx, c.selectViews, &SelectViewsRequest{Views: views})
}

// SetActiveView focuses a selected view. An empty view clears the focus.
func (c *Client) SetActiveView(ctx context.Context, view string) (*AcceptedResponse, error) {
	return call(ctx, c.setActiveView, &ViewRequest{View: view})
}

func (c *Client) ClearAll(ctx context.Context) (*SnapshotResponse, error) {
	return call(ctx, c.clearAll, &Empty{})
}

func (c *Client) StartClock(ctx context.Context) (*ClockResponse, error) {
	return call(ctx, c.startClock, &Empty{})
}

func (c *Client) StopClock(ctx context.Context) (*ClockResponse, error) {
	return call(ctx, c.stopClock, &Empty{})
}

func (c *Client) SetTime(ctx context.Context, minutes, seconds int) (*ClockResponse, error) {
	return call(ctx, c.setTime, &SetTimeRequest{Minutes: minutes, Seconds: seconds})
}

func (c *Client) SetPeriod(ctx context.Context, period int) (*ClockResponse, error) {
	return call(ctx, c.setPeriod, &SetPeriodRequest{Period: period})
}

func (c *Client) ToggleLock(ctx context.Context) (*ClockResponse, error) {
	return call(ctx, c.toggleLock, &Empty{})
}

func (c *Client) ReportVisibility(ctx context.Context, state string) error {
	_, err := call(ctx, c.reportVisibility, &ReportVisibilityRequest{State: state})
	return err
}

func (c *Client) SwitchGame(ctx context.Context, gameID string) (*AcceptedResponse, error) {
	return call(ctx, c.switchGame, &SwitchGameRequest{GameID: gameID})
}

func call[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
