package animation

import (
	"sync"
	"time"
)

// Clock provides wall-clock time to the controller. Production code uses
// SystemClock; tests and deterministic exports use ManualClock so pause
// bookkeeping follows synthetic timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock uses the actual system time.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock returns whatever time it was last set to.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewManualClock returns a ManualClock reading t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{t: t}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

// instant is an optional timestamp.
type instant struct {
	t  time.Time
	ok bool
}

func at(t time.Time) instant { return instant{t: t, ok: true} }
