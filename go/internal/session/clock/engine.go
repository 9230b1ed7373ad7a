// Package clock runs the shared game clock: a countdown with period rollover
// that loggers can lock, edit and start or stop.
package clock

import (
	"sync"

	"github.com/mcdev12/rinklog/go/internal/models"
)

// Rules bound the clock values an engine accepts.
type Rules struct {
	PeriodMinutes int `yaml:"period_minutes"`
	MaxPeriod     int `yaml:"max_period"`
}

// DefaultRules returns 20 minute periods with at most 5 periods.
func DefaultRules() Rules {
	return Rules{
		PeriodMinutes: 20,
		MaxPeriod:     5,
	}
}

func (r Rules) normalized() Rules {
	d := DefaultRules()
	if r.PeriodMinutes <= 0 {
		r.PeriodMinutes = d.PeriodMinutes
	}
	if r.MaxPeriod <= 0 {
		r.MaxPeriod = d.MaxPeriod
	}
	return r
}

// DefaultState is the clock a new session starts with: a full first period,
// stopped and locked.
func DefaultState(rules Rules) models.GameClock {
	rules = rules.normalized()
	return models.GameClock{
		Minutes: rules.PeriodMinutes,
		Seconds: 0,
		Period:  1,
		Running: false,
		Locked:  true,
	}
}

// Engine owns the authoritative GameClock. Every mutator returns whether the
// state changed; rejected operations leave the clock untouched.
type Engine struct {
	mu    sync.Mutex
	rules Rules
	state models.GameClock
}

// NewEngine creates an engine in the default state.
func NewEngine(rules Rules) *Engine {
	rules = rules.normalized()
	return &Engine{
		rules: rules,
		state: DefaultState(rules),
	}
}

// Rules returns the bounds this engine enforces.
func (e *Engine) Rules() Rules {
	return e.rules
}

// State returns a snapshot of the clock.
func (e *Engine) State() models.GameClock {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Format returns the remaining time as MM:SS.
func (e *Engine) Format() string {
	return e.State().Format()
}

// Restore replaces the clock with a persisted value, pulling anything out of
// range back into bounds.
func (e *Engine) Restore(c models.GameClock) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c.Minutes = clamp(c.Minutes, 0, e.rules.PeriodMinutes)
	c.Seconds = clamp(c.Seconds, 0, 59)
	c.Period = clamp(c.Period, 1, e.rules.MaxPeriod)
	e.state = c
}

// Start sets the clock running. Ignored while locked.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Locked || e.state.Running {
		return false
	}
	e.state.Running = true
	return true
}

// Stop freezes the clock. Permitted even while locked.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Running {
		return false
	}
	e.state.Running = false
	return true
}

// SetTime replaces the remaining time. Running and period are untouched.
func (e *Engine) SetTime(minutes, seconds int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Locked {
		return false
	}
	if seconds < 0 || seconds > 59 {
		return false
	}
	if minutes < 0 || minutes > e.rules.PeriodMinutes {
		return false
	}
	if e.state.Minutes == minutes && e.state.Seconds == seconds {
		return false
	}
	e.state.Minutes = minutes
	e.state.Seconds = seconds
	return true
}

// SetPeriod moves to the given period, clamped to the allowed range.
func (e *Engine) SetPeriod(period int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Locked {
		return false
	}
	period = clamp(period, 1, e.rules.MaxPeriod)
	if e.state.Period == period {
		return false
	}
	e.state.Period = period
	return true
}

// ToggleLock flips the lock. Always permitted.
func (e *Engine) ToggleLock() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Locked = !e.state.Locked
	return true
}

// TickResult describes what a single tick did.
type TickResult struct {
	Applied    bool
	RolledOver bool
	State      models.GameClock
}

// Tick advances the clock by one second. Reaching 00:00 stops the clock,
// moves to the next period (never past the last) and resets the time in one
// step.
func (e *Engine) Tick() TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Running {
		return TickResult{State: e.state}
	}

	res := TickResult{Applied: true}
	switch {
	case e.state.Seconds > 0:
		e.state.Seconds--
	case e.state.Minutes > 0:
		e.state.Minutes--
		e.state.Seconds = 59
	default:
		e.state.Running = false
		e.state.Period = clamp(e.state.Period+1, 1, e.rules.MaxPeriod)
		e.state.Minutes = e.rules.PeriodMinutes
		e.state.Seconds = 0
		res.RolledOver = true
	}
	res.State = e.state
	return res
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
