package animation

import (
	"errors"
	"math"
	"sync"
	"time"
)

var (
	ErrInvalidDuration = errors.New("animation duration must be positive")
	ErrNoHost          = errors.New("animation host is required")
)

// Status is the scheduler state.
type Status int

const (
	StatusStopped Status = iota
	StatusTicking
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusTicking:
		return "ticking"
	default:
		return "unknown"
	}
}

// Hooks are optional callbacks attached to one playback run. OnFrame runs
// synchronously on every tick that does not finish the animation, before the
// next tick is scheduled. OnComplete runs once, after the controller has
// paused at the end of the animation. Both run without the controller lock
// held and may call back into the controller.
type Hooks struct {
	OnFrame    func()
	OnComplete func()
}

// State is a point-in-time snapshot of the controller.
type State struct {
	Elapsed  time.Duration
	Duration time.Duration
	Playing  bool
	Status   Status
	Fraction float64
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used by Play and Pause. Ticks always use
// the timestamp supplied by the host.
func WithClock(c Clock) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// Controller is the virtual animation clock and its frame scheduler.
//
// Elapsed time only advances through ticks while playing. The first tick after
// a (re)start contributes no delta; later ticks add the wall-clock time since
// the previous tick. Playback completes when elapsed reaches the duration.
type Controller struct {
	mu       sync.Mutex
	clock    Clock
	host     Host
	duration time.Duration

	elapsed time.Duration
	playing bool
	status  Status
	hooks   Hooks

	handle    FrameHandle
	scheduled bool
	seq       uint64

	anchor     instant
	pausedAt   instant
	prevTick   instant
	pauseAccum time.Duration
}

// NewController returns a stopped controller for an animation of the given
// duration, scheduling its ticks on host.
func NewController(duration time.Duration, host Host, opts ...Option) (*Controller, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if host == nil {
		return nil, ErrNoHost
	}
	c := &Controller{
		clock:    SystemClock{},
		host:     host,
		duration: duration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Play starts or resumes playback. It reports false when the animation is
// already complete or already ticking.
func (c *Controller) Play() bool {
	return c.Start(Hooks{})
}

// Start is Play with per-run hooks.
func (c *Controller) Start(h Hooks) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.elapsed >= c.duration || c.status == StatusTicking {
		return false
	}
	if c.pausedAt.ok {
		if d := c.clock.Now().Sub(c.pausedAt.t); d > 0 {
			c.pauseAccum += d
		}
		c.pausedAt = instant{}
	}
	c.playing = true
	c.status = StatusTicking
	c.hooks = h
	c.scheduleLocked()
	return true
}

// Pause stops playback and cancels the pending tick.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseLocked(c.clock.Now())
}

// Reset pauses and returns the clock to its initial state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseLocked(c.clock.Now())
	c.elapsed = 0
	c.pauseAccum = 0
	c.anchor = instant{}
	c.prevTick = instant{}
	c.pausedAt = instant{}
}

// ScrubTo pauses and jumps to fraction of the duration. fraction is clamped
// to [0, 1].
func (c *Controller) ScrubTo(fraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseLocked(c.clock.Now())
	c.elapsed = time.Duration(clamp01(fraction) * float64(c.duration))
}

// Tick runs one scheduler step at now. Hosts that drive the controller
// directly call it once per refresh; any registration made with the host is
// cancelled first. It reports false when the controller is not ticking.
func (c *Controller) Tick(now time.Time) bool {
	c.mu.Lock()
	if c.status != StatusTicking {
		c.mu.Unlock()
		return false
	}
	c.cancelLocked()
	c.tick(now)
	return true
}

func (c *Controller) fire(seq uint64, now time.Time) {
	c.mu.Lock()
	if c.status != StatusTicking || !c.scheduled || seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.scheduled = false
	c.tick(now)
}

// tick is entered with c.mu held and returns with it released.
func (c *Controller) tick(now time.Time) {
	if !c.anchor.ok {
		c.anchor = at(now.Add(-c.pauseAccum))
	}
	if c.prevTick.ok {
		if d := now.Sub(c.prevTick.t); d > 0 {
			c.elapsed += d
		}
	}
	c.prevTick = at(now)

	h := c.hooks
	if c.elapsed >= c.duration {
		c.elapsed = c.duration
		c.pauseLocked(now)
		c.mu.Unlock()
		if h.OnComplete != nil {
			h.OnComplete()
		}
		return
	}

	seq := c.seq
	c.mu.Unlock()
	if h.OnFrame != nil {
		h.OnFrame()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusTicking && !c.scheduled && c.seq == seq {
		c.scheduleLocked()
	}
}

func (c *Controller) scheduleLocked() {
	c.seq++
	seq := c.seq
	c.handle = c.host.RequestFrame(func(now time.Time) { c.fire(seq, now) })
	c.scheduled = true
}

func (c *Controller) cancelLocked() {
	if c.scheduled {
		c.host.CancelFrame(c.handle)
		c.scheduled = false
	}
}

func (c *Controller) pauseLocked(now time.Time) {
	c.cancelLocked()
	if !c.pausedAt.ok {
		c.pausedAt = at(now)
	}
	c.prevTick = instant{}
	c.playing = false
	c.status = StatusStopped
	c.hooks = Hooks{}
}

// Elapsed returns the accumulated animation time.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Playing reports whether playback is active.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Status returns the scheduler state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Duration returns the configured animation length.
func (c *Controller) Duration() time.Duration {
	return c.duration
}

// Fraction returns elapsed / duration in [0, 1].
func (c *Controller) Fraction() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fractionLocked()
}

func (c *Controller) fractionLocked() float64 {
	return clamp01(float64(c.elapsed) / float64(c.duration))
}

// WallElapsed returns the wall-clock time played since the first tick after
// the last reset, excluding pauses. It is zero before that tick.
func (c *Controller) WallElapsed(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.anchor.ok {
		return 0
	}
	end := now
	if c.pausedAt.ok {
		end = c.pausedAt.t
	}
	if d := end.Sub(c.anchor.t) - c.pauseAccum; d > 0 {
		return d
	}
	return 0
}

// State returns a consistent snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Elapsed:  c.elapsed,
		Duration: c.duration,
		Playing:  c.playing,
		Status:   c.status,
		Fraction: c.fractionLocked(),
	}
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
