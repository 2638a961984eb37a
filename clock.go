package phaseloop

import (
	"sync"
	"time"
)

// Clock is the loop's time source. Every timer comparison and "now" read
// goes through it, which makes time externally injectable for deterministic
// testing. Implementations must be monotonic: Now never goes backwards.
type Clock interface {
	Now() time.Time
}

// systemClock is the default Clock, backed by the runtime monotonic clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ManualClock is a settable Clock for deterministic tests. Time only moves
// when Advance or Set is called.
//
// ManualClock is safe for concurrent use, though in the intended
// single-threaded test setup all access happens on one goroutine.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a ManualClock starting at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Negative values are ignored, to
// preserve monotonicity.
func (c *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t. Instants earlier than the current manual time
// are ignored, to preserve monotonicity.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}
