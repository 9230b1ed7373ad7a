package clock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TickInterval is how often a running clock is advanced. Scheduling drift is
// not corrected.
const TickInterval = time.Second

// Ticker drives Engine.Tick from a clockwork ticker while the clock runs.
type Ticker struct {
	engine *Engine
	clock  clockwork.Clock
	onTick func(TickResult)

	mu         sync.Mutex
	cancel     context.CancelFunc
	generation uint64
}

// NewTicker creates a stopped ticker. onTick is invoked after every applied
// tick, from the ticker goroutine.
func NewTicker(engine *Engine, clk clockwork.Clock, onTick func(TickResult)) *Ticker {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Ticker{
		engine: engine,
		clock:  clk,
		onTick: onTick,
	}
}

// Start begins ticking if it is not already. The ticker exits on its own once
// the engine stops running, e.g. at the end of a period.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.generation++
	gen := t.generation

	// created here rather than in the goroutine so a fake clock sees the
	// waiter as soon as Start returns
	tk := t.clock.NewTicker(TickInterval)
	go t.run(runCtx, gen, tk)

	log.Debug().Uint64("generation", gen).Msg("clock ticker started")
}

// Stop halts ticking. It does not wait for an in-flight tick.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
	log.Debug().Uint64("generation", t.generation).Msg("clock ticker stopped")
}

// Active reports whether a ticker goroutine is scheduled.
func (t *Ticker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Ticker) run(ctx context.Context, gen uint64, tk clockwork.Ticker) {
	defer tk.Stop()
	defer t.finish(gen)

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.Chan():
			if ctx.Err() != nil {
				return
			}
			res := t.engine.Tick()
			if res.Applied && t.onTick != nil {
				t.onTick(res)
			}
			if res.RolledOver {
				log.Info().
					Int("period", res.State.Period).
					Msg("period ended - clock stopped")
			}
			if !res.State.Running {
				return
			}
		}
	}
}

// finish clears the cancel func when the goroutine that owns it exits, unless
// a newer Start already replaced it.
func (t *Ticker) finish(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.generation == gen && t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
