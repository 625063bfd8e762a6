// Package race composes the animation clock, series windowing, rendering and
// recording into a chart race that can be played interactively or exported.
package race

import (
	"errors"
	"fmt"
	"time"

	"chartrace/internal/animation"
	"chartrace/internal/recording"
	"chartrace/internal/render"
	"chartrace/internal/series"
)

// Defaults used when a preset or flag leaves a field unset.
const (
	DefaultDuration   = 10 * time.Second
	DefaultSize       = 1080
	DefaultPadding    = 40
	DefaultFPS        = 30
	DefaultPixelRatio = 1
	MaxFPS            = 120
)

var (
	// ErrNoSeries is returned when a race has no series at all.
	ErrNoSeries = errors.New("no series selected")

	// ErrNoSeriesData is returned when none of the series has been populated.
	ErrNoSeriesData = errors.New("no series has data")

	// ErrInvalidFPS is returned for frame rates outside 1..MaxFPS.
	ErrInvalidFPS = errors.New("invalid frame rate")

	// ErrInvalidPixelRatio is returned for pixel ratios other than 1 or 2.
	ErrInvalidPixelRatio = errors.New("pixel ratio must be 1 or 2")
)

// InputError reports a configuration the race refuses to run with.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &InputError{Field: field, Err: err}
}

// Config describes one chart race.
type Config struct {
	Range      series.DateRange
	Duration   time.Duration
	LookAhead  int
	Style      render.Style
	Rebase     bool
	Padding    int
	Title      string
	Annotation string
	ShowDate   bool
	Width      int
	Height     int
	PixelRatio int
	FPS        int
	Format     recording.Format
}

// DefaultConfig returns the default race: the year up to today, ten seconds
// long, with a one-month look-ahead.
func DefaultConfig(today time.Time) Config {
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return Config{
		Range:      series.DateRange{Start: end.AddDate(-1, 0, 0), End: end},
		Duration:   DefaultDuration,
		LookAhead:  series.DefaultLookAhead,
		Style:      render.StyleLine,
		Padding:    DefaultPadding,
		ShowDate:   true,
		Width:      DefaultSize,
		Height:     DefaultSize,
		PixelRatio: DefaultPixelRatio,
		FPS:        DefaultFPS,
		Format:     recording.FormatMP4,
	}
}

// Validate checks cfg against the series it will animate. Failures are
// returned as *InputError.
func (c Config) Validate(list []*series.Series) error {
	if len(list) == 0 {
		return invalid("series", ErrNoSeries)
	}
	populated := 0
	for _, s := range list {
		if s == nil || !s.Populated() {
			continue
		}
		populated++
		if c.Rebase {
			if _, err := series.Rebase(s.Points()); err != nil {
				return invalid("rebase", fmt.Errorf("%s: %w", s.Symbol, err))
			}
		}
	}
	if populated == 0 {
		return invalid("series", ErrNoSeriesData)
	}
	if err := c.Range.Validate(); err != nil {
		return invalid("date range", err)
	}
	if c.Duration <= 0 {
		return invalid("duration", animation.ErrInvalidDuration)
	}
	if err := series.ValidateLookAhead(c.LookAhead); err != nil {
		return invalid("look-ahead", err)
	}
	if _, err := render.ParseStyle(string(c.Style)); err != nil {
		return invalid("style", err)
	}
	if c.Width <= 0 || c.Height <= 0 || c.Padding < 0 {
		return invalid("size", fmt.Errorf("%w: %dx%d padding %d", render.ErrInvalidSize, c.Width, c.Height, c.Padding))
	}
	if c.PixelRatio != 1 && c.PixelRatio != 2 {
		return invalid("pixel ratio", ErrInvalidPixelRatio)
	}
	if c.FPS <= 0 || c.FPS > MaxFPS {
		return invalid("fps", fmt.Errorf("%w: %d", ErrInvalidFPS, c.FPS))
	}
	return nil
}

// FrameInterval is the simulated time between exported frames.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// FrameCount is the number of frames an export of cfg hands to the encoder:
// one per scheduler frame plus the frame captured when recording starts.
func (c Config) FrameCount() int {
	step := c.FrameInterval()
	return int((c.Duration+step-1)/step) + 1
}

func (c Config) renderOptions() render.Options {
	return render.Options{
		Width:      c.Width,
		Height:     c.Height,
		PixelRatio: c.PixelRatio,
		Padding:    c.Padding,
		Title:      c.Title,
		Annotation: c.Annotation,
		ShowDate:   c.ShowDate,
		Style:      c.Style,
		Rebase:     c.Rebase,
	}
}
