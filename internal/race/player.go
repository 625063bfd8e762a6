package race

import (
	"context"
	"image"
	"sync"
	"time"

	"chartrace/internal/animation"
	"chartrace/internal/series"
)

// Player plays a race in real time.
type Player struct {
	race *Race
	ctl  *animation.Controller
	host *animation.TickerHost

	mu        sync.Mutex
	listeners map[int]func(animation.State)
	nextID    int
}

// NewPlayer returns a stopped player. The race is ticked at cfg.FPS once Run
// is called. clock may be nil to use the system clock.
func NewPlayer(cfg Config, list []*series.Series, clock animation.Clock) (*Player, error) {
	if clock == nil {
		clock = animation.SystemClock{}
	}
	host := animation.NewTickerHost(cfg.FPS, clock)
	ctl, err := animation.NewController(cfg.Duration, host, animation.WithClock(clock))
	if err != nil {
		return nil, invalid("duration", err)
	}
	r, err := New(cfg, list, ctl)
	if err != nil {
		return nil, err
	}
	return &Player{
		race:      r,
		ctl:       ctl,
		host:      host,
		listeners: make(map[int]func(animation.State)),
	}, nil
}

// Run drives playback until ctx is done.
func (p *Player) Run(ctx context.Context) error {
	return p.host.Run(ctx)
}

// Race returns the surface being played.
func (p *Player) Race() *Race { return p.race }

// Play starts or resumes playback.
func (p *Player) Play() bool {
	ok := p.ctl.Start(animation.Hooks{OnFrame: p.changed, OnComplete: p.changed})
	p.changed()
	return ok
}

// Pause stops playback at the current position.
func (p *Player) Pause() {
	p.ctl.Pause()
	p.changed()
}

// Reset pauses and rewinds to the start.
func (p *Player) Reset() {
	p.ctl.Reset()
	p.changed()
}

// ScrubTo pauses and jumps to fraction of the duration.
func (p *Player) ScrubTo(fraction float64) {
	p.ctl.ScrubTo(fraction)
	p.changed()
}

// State returns the controller state.
func (p *Player) State() animation.State { return p.ctl.State() }

// Date returns the last date visible at the current position.
func (p *Player) Date() time.Time {
	return series.MaxVisibleDate(p.race.cfg.Range, p.ctl.Fraction())
}

// Render draws the current frame.
func (p *Player) Render() (*image.RGBA, error) { return p.race.Render() }

// Subscribe registers fn to be called after every frame and control change.
// fn runs on the caller's or the ticker's goroutine and must not block.
func (p *Player) Subscribe(fn func(animation.State)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Player) changed() {
	st := p.ctl.State()
	p.mu.Lock()
	fns := make([]func(animation.State), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
