package tracker

import (
	"sync"
	"time"

	"github.com/JakeFAU/percent-page-viewed/internal/clock"
)

// ThrottleWindow is the minimum spacing between scroll handler runs.
const ThrottleWindow = 100 * time.Millisecond

// Throttle runs fn at most once per window. The first call in a window runs
// immediately; further calls inside the window collapse into one trailing
// run at the window boundary.
type Throttle struct {
	mu       sync.Mutex
	clock    clock.Clock
	wait     time.Duration
	fn       func()
	previous time.Time
	trailing clock.Timer
	stopped  bool
}

// NewThrottle wraps fn with a leading and trailing throttle of the given window.
func NewThrottle(clk clock.Clock, wait time.Duration, fn func()) *Throttle {
	return &Throttle{clock: clk, wait: wait, fn: fn}
}

// Call requests a run of the wrapped function.
func (t *Throttle) Call() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	now := t.clock.Now()
	remaining := t.wait - now.Sub(t.previous)
	if t.previous.IsZero() || remaining <= 0 {
		if t.trailing != nil {
			t.trailing.Stop()
			t.trailing = nil
		}
		t.previous = now
		t.mu.Unlock()
		t.fn()
		return
	}
	if t.trailing == nil {
		t.trailing = t.clock.AfterFunc(remaining, t.runTrailing)
	}
	t.mu.Unlock()
}

// Stop drops any pending trailing run and ignores future calls.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.trailing != nil {
		t.trailing.Stop()
		t.trailing = nil
	}
}

func (t *Throttle) runTrailing() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.previous = t.clock.Now()
	t.trailing = nil
	t.mu.Unlock()
	t.fn()
}
