package race

import (
	"image"

	"chartrace/internal/animation"
	"chartrace/internal/render"
	"chartrace/internal/series"
)

// Race is the rendering surface of a chart race: every call windows the
// series at the controller's current fraction and renders the result.
type Race struct {
	cfg      Config
	series   []*series.Series
	ctl      *animation.Controller
	renderer *render.Renderer
}

// New validates cfg and returns a Race drawing list as driven by ctl.
// Series that were never populated are left out of every frame.
func New(cfg Config, list []*series.Series, ctl *animation.Controller) (*Race, error) {
	if err := cfg.Validate(list); err != nil {
		return nil, err
	}
	rd, err := render.New(cfg.renderOptions())
	if err != nil {
		return nil, invalid("render options", err)
	}
	keep := make([]*series.Series, 0, len(list))
	for _, s := range list {
		if s != nil && s.Populated() {
			keep = append(keep, s)
		}
	}
	return &Race{cfg: cfg, series: keep, ctl: ctl, renderer: rd}, nil
}

// Config returns the race configuration.
func (r *Race) Config() Config { return r.cfg }

// Controller returns the animation clock driving the race.
func (r *Race) Controller() *animation.Controller { return r.ctl }

// Series returns the populated series the race draws.
func (r *Race) Series() []*series.Series { return r.series }

// Bounds implements recording.Surface.
func (r *Race) Bounds() image.Rectangle { return r.renderer.Bounds() }

// Frame windows every series at the controller's current fraction.
func (r *Race) Frame() (render.Frame, error) {
	return r.frameAt(r.ctl.Fraction())
}

func (r *Race) frameAt(fraction float64) (render.Frame, error) {
	f := render.Frame{
		Series: make([]series.Visible, 0, len(r.series)),
		Date:   series.MaxVisibleDate(r.cfg.Range, fraction),
	}
	for _, s := range r.series {
		v, err := series.WindowSeries(s, r.cfg.Range, fraction, r.cfg.LookAhead, r.cfg.Rebase)
		if err != nil {
			return f, err
		}
		f.Series = append(f.Series, v)
	}
	return f, nil
}

// Snapshot implements recording.Surface.
func (r *Race) Snapshot(dst *image.RGBA) error {
	f, err := r.Frame()
	if err != nil {
		return err
	}
	return r.renderer.RenderInto(dst, f)
}

// Render returns the current frame as a new image.
func (r *Race) Render() (*image.RGBA, error) {
	f, err := r.Frame()
	if err != nil {
		return nil, err
	}
	return r.renderer.Render(f)
}
