// Package session composes the clock, the ownership ledger, the take-over
// protocol and the session store into one coordinator per running process.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rinklog/go/internal/models"
	"github.com/mcdev12/rinklog/go/internal/session/clock"
	"github.com/mcdev12/rinklog/go/internal/session/events"
	"github.com/mcdev12/rinklog/go/internal/session/lifecycle"
	"github.com/mcdev12/rinklog/go/internal/session/ownership"
	"github.com/mcdev12/rinklog/go/internal/session/publisher"
	"github.com/mcdev12/rinklog/go/internal/session/store"
)

// Store is what the coordinator needs from persistence
type Store interface {
	LoadGame(ctx context.Context, gameID string) (store.GameRecord, error)
	SaveGame(ctx context.Context, gameID string, assignments models.Assignments, requests models.TakeOverRequests) error
	LoadGlobal(ctx context.Context) (store.GlobalRecord, bool, error)
	SaveGlobal(ctx context.Context, rec store.GlobalRecord) error
	ClearSelectedViews(ctx context.Context) error
}

// DefaultGameID is used when neither the options nor the store name a game
const DefaultGameID = "default"

type Options struct {
	GameID     string
	LoggerName string // used only when no logger was persisted
	Rules      clock.Rules
	Policy     ownership.ApprovalPolicy
	Clock      clockwork.Clock
	Debounce   time.Duration
	Publisher  publisher.Publisher
	InstanceID string

	// DefaultViews is the selection of a device that has none persisted
	DefaultViews []models.ViewID
}

// ClaimResult answers "may this logger work in the view"
type ClaimResult struct {
	Owned         bool   `json:"owned"`
	OwnerName     string `json:"owner_name,omitempty"`
	OwnerInitials string `json:"owner_initials,omitempty"`
}

// Snapshot is a point-in-time copy of the whole session
type Snapshot struct {
	GameID        string                  `json:"game_id"`
	InstanceID    string                  `json:"instance_id"`
	Logger        models.Logger           `json:"logger"`
	Clock         models.GameClock        `json:"clock"`
	Display       string                  `json:"display"`
	Assignments   models.Assignments      `json:"assignments"`
	Requests      models.TakeOverRequests `json:"requests"`
	SelectedViews []models.ViewID         `json:"selected_views"`
	ActiveView    models.ViewID           `json:"active_view,omitempty"`
	Policy        string                  `json:"policy"`
}

// Coordinator is the explicit session handle shared by every consumer in the
// process. Commands are serialised by mu; the clock, ledger and protocol carry
// their own locks so the ticker goroutine can use them too.
type Coordinator struct {
	store      Store
	engine     *clock.Engine
	ticker     *clock.Ticker
	ledger     *ownership.Ledger
	takeOver   *ownership.TakeOver
	watcher    *lifecycle.Watcher
	publisher  publisher.Publisher
	instanceID string

	runCtx    context.Context
	runCancel context.CancelFunc

	mu         sync.Mutex
	logger     models.Logger
	gameID     string
	selected   []models.ViewID
	activeView models.ViewID
	closed     bool
}

// New builds a coordinator and loads its state from st. Load failures are
// logged and the affected state starts from defaults.
func New(ctx context.Context, st Store, opts Options) *Coordinator {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	pub := opts.Publisher
	if pub == nil {
		pub = publisher.LogPublisher{}
	}
	instanceID := opts.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}

	ledger := ownership.NewLedger()
	c := &Coordinator{
		store:      st,
		engine:     clock.NewEngine(opts.Rules),
		ledger:     ledger,
		takeOver:   ownership.NewTakeOver(ledger, opts.Policy),
		publisher:  pub,
		instanceID: instanceID,
		selected:   []models.ViewID{},
	}
	c.runCtx, c.runCancel = context.WithCancel(context.Background())
	c.ticker = clock.NewTicker(c.engine, clk, c.onTick)
	c.watcher = lifecycle.NewWatcher(clk, opts.Debounce, c.onSessionClose)

	c.load(ctx, opts)
	return c
}

func (c *Coordinator) load(ctx context.Context, opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, found, err := c.store.LoadGlobal(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load global session record, using defaults")
	}
	if found {
		c.engine.Restore(rec.Clock)
		c.selected = rec.SelectedViews
		c.activeView = rec.ActiveView
		if rec.Logger != nil && rec.Logger.ID != "" {
			c.logger = *rec.Logger
		}
		c.gameID = rec.GameID
	} else if len(opts.DefaultViews) > 0 {
		for _, v := range opts.DefaultViews {
			models.MustBeKnown(v)
		}
		c.selected = models.DedupeViews(opts.DefaultViews)
	}
	if c.logger.ID == "" {
		c.logger = models.NewLogger(opts.LoggerName)
		log.Info().
			Str("logger_id", c.logger.ID).
			Str("initials", c.logger.Initials).
			Msg("created logger for this device")
	}
	if opts.GameID != "" {
		c.gameID = opts.GameID
	}
	if c.gameID == "" {
		c.gameID = DefaultGameID
	}

	c.loadGameLocked(ctx)
	c.saveGlobalLocked(ctx)

	if c.engine.State().Running {
		c.ticker.Start(c.runCtx)
	}

	log.Info().
		Str("game_id", c.gameID).
		Str("logger_id", c.logger.ID).
		Str("instance_id", c.instanceID).
		Str("clock", c.engine.Format()).
		Int("assignments", len(c.ledger.Snapshot())).
		Msg("session loaded")
}

func (c *Coordinator) loadGameLocked(ctx context.Context) {
	rec, err := c.store.LoadGame(ctx, c.gameID)
	if err != nil {
		log.Warn().Err(err).Str("game_id", c.gameID).Msg("failed to load game ownership, starting empty")
	}
	c.ledger.Replace(rec.Assignments)
	c.takeOver.Replace(rec.Requests)
}

// Logger returns the logger of this device
func (c *Coordinator) Logger() models.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logger
}

func (c *Coordinator) GameID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID
}

func (c *Coordinator) InstanceID() string {
	return c.instanceID
}

// RenameLogger changes the display name (and initials) of this device's
// logger. Existing assignments keep the name they were made with.
func (c *Coordinator) RenameLogger(ctx context.Context, name string) models.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.DisplayName = strings.TrimSpace(name)
	c.logger.Initials = models.DeriveInitials(c.logger.DisplayName)
	c.saveGlobalLocked(ctx)
	return c.logger
}

// CurrentTime is the clock display used to stamp logged events
func (c *Coordinator) CurrentTime() string {
	return c.engine.Format()
}

func (c *Coordinator) Clock() models.GameClock {
	return c.engine.State()
}

// ClaimOrCheck assigns an unowned view to logger. If someone else holds it,
// the result names the holder and Owned is false.
func (c *Coordinator) ClaimOrCheck(ctx context.Context, view models.ViewID, logger models.Logger) ClaimResult {
	models.MustBeKnown(view)

	c.mu.Lock()
	defer c.mu.Unlock()

	owner, owned := c.ledger.OwnerOf(view)
	if owned && owner.LoggerID != logger.ID {
		return ClaimResult{
			Owned:         false,
			OwnerName:     owner.LoggerName,
			OwnerInitials: owner.LoggerInitials,
		}
	}
	if !owned {
		c.ledger.Assign(view, logger)
		c.saveGameLocked(ctx)
		assignment := models.AssignmentFor(logger)
		c.publishLocked(ctx, events.EventTypeViewClaimed, events.ViewPayload{View: view, Assignment: &assignment})
		log.Info().
			Str("game_id", c.gameID).
			Str("view", view.String()).
			Str("logger_id", logger.ID).
			Msg("view claimed")
		owner = assignment
	}
	return ClaimResult{
		Owned:         true,
		OwnerName:     owner.LoggerName,
		OwnerInitials: owner.LoggerInitials,
	}
}

// Owner returns the current holder of a view
func (c *Coordinator) Owner(view models.ViewID) (models.ViewAssignment, bool) {
	return c.ledger.OwnerOf(view)
}

// IsOwnedByOther reports whether someone other than loggerID holds the view
func (c *Coordinator) IsOwnedByOther(view models.ViewID, loggerID string) bool {
	return c.ledger.IsOwnedByOther(view, loggerID)
}

// ReleaseView drops the view's assignment and any request that was waiting
// on it.
func (c *Coordinator) ReleaseView(ctx context.Context, view models.ViewID) bool {
	models.MustBeKnown(view)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, owned := c.ledger.OwnerOf(view); !owned {
		return false
	}
	c.ledger.Release(view)
	c.takeOver.DropOrphans()
	c.saveGameLocked(ctx)
	c.publishLocked(ctx, events.EventTypeViewReleased, events.ViewPayload{View: view})
	return true
}

// RequestTakeOver records that from wants a view someone else holds. The
// holder finds out through published events or on its next reload.
func (c *Coordinator) RequestTakeOver(ctx context.Context, view models.ViewID, from models.Logger) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.takeOver.Request(view, from) {
		return false
	}
	c.saveGameLocked(ctx)

	payload := events.TakeOverPayload{View: view, Request: models.RequestFrom(from)}
	if holder, ok := c.ledger.OwnerOf(view); ok {
		payload.Holder = &holder
	}
	c.publishLocked(ctx, events.EventTypeTakeOverRequested, payload)
	log.Info().
		Str("game_id", c.gameID).
		Str("view", view.String()).
		Str("from_logger_id", from.ID).
		Msg("take-over requested")
	return true
}

// ApproveTakeOver hands the view to its pending requester, with this device's
// logger as the approver.
func (c *Coordinator) ApproveTakeOver(ctx context.Context, view models.ViewID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	holder, hadHolder := c.ledger.OwnerOf(view)
	req, ok := c.takeOver.Approve(view, c.logger)
	if !ok {
		return false
	}
	c.saveGameLocked(ctx)

	payload := events.TakeOverPayload{View: view, Request: req}
	if hadHolder {
		payload.Holder = &holder
	}
	c.publishLocked(ctx, events.EventTypeTakeOverApproved, payload)
	log.Info().
		Str("game_id", c.gameID).
		Str("view", view.String()).
		Str("new_owner_id", req.FromLoggerID).
		Msg("take-over approved")
	return true
}

// CancelTakeOver withdraws or declines the pending request on a view
func (c *Coordinator) CancelTakeOver(ctx context.Context, view models.ViewID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, pending := c.takeOver.Pending(view)
	if !pending || !c.takeOver.Cancel(view) {
		return false
	}
	c.saveGameLocked(ctx)
	c.publishLocked(ctx, events.EventTypeTakeOverCancelled, events.TakeOverPayload{View: view, Request: req})
	return true
}

func (c *Coordinator) PendingTakeOver(view models.ViewID) (models.TakeOverRequest, bool) {
	return c.takeOver.Pending(view)
}

// SelectViews replaces the set of views this device is logging. Duplicates
// are dropped, order is kept.
func (c *Coordinator) SelectViews(ctx context.Context, views []models.ViewID) {
	for _, v := range views {
		models.MustBeKnown(v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.selected = models.DedupeViews(views)
	if c.activeView != "" && !containsView(c.selected, c.activeView) {
		c.activeView = ""
	}
	c.saveGlobalLocked(ctx)
	c.publishLocked(ctx, events.EventTypeSelectionChanged, events.SelectionPayload{Views: c.selectedCopyLocked()})
}

func (c *Coordinator) SelectedViews() []models.ViewID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedCopyLocked()
}

// SetActiveView marks which selected view has focus. An empty view clears it.
func (c *Coordinator) SetActiveView(ctx context.Context, view models.ViewID) bool {
	if view != "" {
		models.MustBeKnown(view)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if view != "" && !containsView(c.selected, view) {
		return false
	}
	if c.activeView == view {
		return false
	}
	c.activeView = view
	c.saveGlobalLocked(ctx)
	return true
}

func (c *Coordinator) ActiveView() models.ViewID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeView
}

// ClearAll empties the selection and gives back every view this device's
// logger holds, along with the requests that were waiting on them.
func (c *Coordinator) ClearAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	released := 0
	for view, a := range c.ledger.Snapshot() {
		if a.LoggerID == c.logger.ID {
			c.ledger.Release(view)
			released++
		}
	}
	dropped := c.takeOver.DropOrphans()
	c.clearSelectedLocked(ctx)
	c.saveGameLocked(ctx)
	c.publishLocked(ctx, events.EventTypeSessionCleared, events.GamePayload{GameID: c.gameID})

	log.Info().
		Str("game_id", c.gameID).
		Int("released", released).
		Int("dropped_requests", len(dropped)).
		Msg("session cleared")
}

// StartClock starts the countdown. Rejected while locked or already running.
func (c *Coordinator) StartClock(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.engine.Start() {
		return false
	}
	c.ticker.Start(c.runCtx)
	c.clockChangedLocked(ctx)
	return true
}

func (c *Coordinator) StopClock(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ticker.Stop()
	if !c.engine.Stop() {
		return false
	}
	c.clockChangedLocked(ctx)
	return true
}

func (c *Coordinator) SetTime(ctx context.Context, minutes, seconds int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.engine.SetTime(minutes, seconds) {
		return false
	}
	c.clockChangedLocked(ctx)
	return true
}

func (c *Coordinator) SetPeriod(ctx context.Context, period int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.engine.SetPeriod(period) {
		return false
	}
	c.clockChangedLocked(ctx)
	return true
}

func (c *Coordinator) ToggleLock(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.engine.ToggleLock() {
		return false
	}
	c.clockChangedLocked(ctx)
	return true
}

func (c *Coordinator) clockChangedLocked(ctx context.Context) {
	c.saveGlobalLocked(ctx)
	c.publishLocked(ctx, events.EventTypeClockChanged, events.ClockPayload{
		Clock:   c.engine.State(),
		Display: c.engine.Format(),
	})
}

func (c *Coordinator) onTick(res clock.TickResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	ctx := context.Background()
	c.saveGlobalLocked(ctx)

	eventType := events.EventTypeClockTicked
	if res.RolledOver {
		eventType = events.EventTypePeriodEnded
	}
	c.publishLocked(ctx, eventType, events.ClockPayload{
		Clock:   res.State,
		Display: res.State.Format(),
	})
}

// SwitchGame saves the current game and loads another one's ownership. The
// clock and the selection are per device and carry over.
func (c *Coordinator) SwitchGame(ctx context.Context, gameID string) bool {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gameID == c.gameID {
		return false
	}
	c.saveGameLocked(ctx)
	previous := c.gameID
	c.gameID = gameID
	c.loadGameLocked(ctx)
	c.saveGlobalLocked(ctx)
	c.publishLocked(ctx, events.EventTypeGameSwitched, events.GamePayload{GameID: gameID})

	log.Info().
		Str("from_game_id", previous).
		Str("game_id", gameID).
		Msg("switched game")
	return true
}

// Reload re-reads the current game's ownership from the store, picking up
// writes from other devices. Last writer wins.
func (c *Coordinator) Reload(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	rec, err := c.store.LoadGame(ctx, c.gameID)
	if err != nil {
		log.Warn().Err(err).Str("game_id", c.gameID).Msg("reload failed, keeping in-memory ownership")
		return
	}
	c.ledger.Replace(rec.Assignments)
	c.takeOver.Replace(rec.Requests)

	log.Debug().
		Str("game_id", c.gameID).
		Int("assignments", len(rec.Assignments)).
		Int("requests", len(rec.Requests)).
		Msg("session reloaded")
}

// HandleRemoteEvent reloads when another instance changed this game's
// ownership. It reports whether a reload happened.
func (c *Coordinator) HandleRemoteEvent(ctx context.Context, event events.Envelope) bool {
	if event.InstanceID == c.instanceID || !event.Type.ChangesOwnership() {
		return false
	}
	if event.GameID != c.GameID() {
		return false
	}
	c.Reload(ctx)
	return true
}

// HandleStoreChange reloads when a store key for this game changed. An empty
// key means "something may have changed".
func (c *Coordinator) HandleStoreChange(ctx context.Context, key string) bool {
	if key != "" {
		gameID, ok := store.GameIDFromKey(key)
		if !ok || gameID != c.GameID() {
			return false
		}
	}
	c.Reload(ctx)
	return true
}

// HandleVisibility feeds a visibility change to the session-close watcher.
// Coming back into view also reloads, since take-over requests from other
// devices are otherwise only seen on the next read.
func (c *Coordinator) HandleVisibility(ctx context.Context, state lifecycle.Visibility) {
	c.watcher.Report(state)
	if state == lifecycle.Visible {
		c.Reload(ctx)
	}
}

func (c *Coordinator) onSessionClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.clearSelectedLocked(context.Background())
	c.publishLocked(context.Background(), events.EventTypeSelectionChanged, events.SelectionPayload{Views: []models.ViewID{}})
}

func (c *Coordinator) clearSelectedLocked(ctx context.Context) {
	c.selected = []models.ViewID{}
	c.activeView = ""
	if err := c.store.ClearSelectedViews(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to clear persisted selected views")
	}
	c.saveGlobalLocked(ctx)
}

// Snapshot copies the whole session state
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		GameID:        c.gameID,
		InstanceID:    c.instanceID,
		Logger:        c.logger,
		Clock:         c.engine.State(),
		Display:       c.engine.Format(),
		Assignments:   c.ledger.Snapshot(),
		Requests:      c.takeOver.Snapshot(),
		SelectedViews: c.selectedCopyLocked(),
		ActiveView:    c.activeView,
		Policy:        c.takeOver.Policy().Name(),
	}
}

// Close stops the ticker and the watcher and writes the final state. The
// clock keeps its running flag so the next process resumes it.
func (c *Coordinator) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.ticker.Stop()
	c.watcher.Stop()
	c.runCancel()
	c.saveGameLocked(ctx)
	c.saveGlobalLocked(ctx)
	c.closed = true

	log.Info().Str("game_id", c.gameID).Msg("session closed")
}

func (c *Coordinator) saveGameLocked(ctx context.Context) {
	if err := c.store.SaveGame(ctx, c.gameID, c.ledger.Snapshot(), c.takeOver.Snapshot()); err != nil {
		log.Warn().Err(err).Str("game_id", c.gameID).Msg("failed to persist game ownership")
	}
}

func (c *Coordinator) saveGlobalLocked(ctx context.Context) {
	logger := c.logger
	rec := store.GlobalRecord{
		Clock:         c.engine.State(),
		SelectedViews: c.selectedCopyLocked(),
		ActiveView:    c.activeView,
		Logger:        &logger,
		GameID:        c.gameID,
	}
	if err := c.store.SaveGlobal(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("failed to persist global session record")
	}
}

func (c *Coordinator) publishLocked(ctx context.Context, eventType events.EventType, payload any) {
	env, err := events.NewEnvelope(eventType, c.gameID, c.instanceID, c.logger.ID, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build session event")
		return
	}
	if err := c.publisher.Publish(ctx, env); err != nil {
		log.Warn().Err(err).Str("event_type", string(eventType)).Msg("failed to publish session event")
	}
}

func (c *Coordinator) selectedCopyLocked() []models.ViewID {
	out := make([]models.ViewID, len(c.selected))
	copy(out, c.selected)
	return out
}

func containsView(views []models.ViewID, v models.ViewID) bool {
	for _, x := range views {
		if x == v {
			return true
		}
	}
	return false
}
