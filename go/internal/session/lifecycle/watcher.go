package lifecycle

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Watcher turns visibility changes into a single close signal, using
// ShouldClear and a debounce timer.
type Watcher struct {
	clock    clockwork.Clock
	debounce time.Duration
	onClose  func()

	mu       sync.Mutex
	state    Visibility
	since    time.Time
	pending  clockwork.Timer
	sequence uint64
}

// NewWatcher creates a watcher that calls onClose when the session closes.
func NewWatcher(clk clockwork.Clock, debounce time.Duration, onClose func()) *Watcher {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		clock:    clk,
		debounce: debounce,
		onClose:  onClose,
		state:    Visible,
		since:    clk.Now(),
	}
}

// State returns the last reported visibility.
func (w *Watcher) State() Visibility {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Report records a visibility change.
func (w *Watcher) Report(state Visibility) {
	w.mu.Lock()

	if state == w.state && state != Unloaded {
		w.mu.Unlock()
		return
	}

	w.state = state
	w.since = w.clock.Now()
	w.sequence++
	w.cancelPendingLocked()

	switch state {
	case Unloaded:
		w.mu.Unlock()
		log.Info().Msg("session unloaded - clearing selected views")
		w.fire()
		return
	case Hidden:
		seq := w.sequence
		w.pending = w.clock.AfterFunc(w.debounce, func() { w.check(seq) })
	}
	w.mu.Unlock()
}

// Stop cancels any pending close check.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelPendingLocked()
}

func (w *Watcher) check(seq uint64) {
	w.mu.Lock()
	if seq != w.sequence {
		w.mu.Unlock()
		return
	}
	elapsed := w.clock.Since(w.since)
	shouldClear := ShouldClear(w.state, elapsed, w.debounce)
	w.pending = nil
	w.mu.Unlock()

	if shouldClear {
		log.Info().Dur("hidden_for", elapsed).Msg("session hidden past debounce - clearing selected views")
		w.fire()
	}
}

func (w *Watcher) fire() {
	if w.onClose != nil {
		w.onClose()
	}
}

func (w *Watcher) cancelPendingLocked() {
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}
