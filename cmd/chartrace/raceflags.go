package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"chartrace/internal/marketdata"
	"chartrace/internal/race"
	"chartrace/internal/recording"
	"chartrace/internal/render"
	"chartrace/internal/series"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// raceFlags are the race options shared by record and preview. Flags that
// were set explicitly override the preset.
type raceFlags struct {
	preset     string
	symbols    []string
	start, end string
	duration   time.Duration
	lookAhead  int
	style      string
	rebase     bool
	title      string
	annotation string
	showDate   bool
	width      int
	height     int
	pixelRatio int
	fps        int
	format     string
	seed       uint64
}

func (f *raceFlags) register(fs *pflag.FlagSet) {
	d := race.DefaultConfig(time.Now())
	fs.StringVar(&f.preset, "preset", "", "YAML preset with symbols and race options")
	fs.StringSliceVar(&f.symbols, "symbols", nil, "comma-separated ticker symbols, e.g. AAPL,MSFT")
	fs.StringVar(&f.start, "start", "", "first date (YYYY-MM-DD, default one year ago)")
	fs.StringVar(&f.end, "end", "", "last date (YYYY-MM-DD, default today)")
	fs.DurationVar(&f.duration, "duration", d.Duration, "animation length")
	fs.IntVar(&f.lookAhead, "lookahead", d.LookAhead, "days of x axis shown ahead of the data: 0, 1, 7, 31, 182 or 365")
	fs.StringVar(&f.style, "style", string(d.Style), "chart style: line or area")
	fs.BoolVar(&f.rebase, "rebase", false, "plot growth relative to each series' first close")
	fs.StringVar(&f.title, "title", "", "chart title")
	fs.StringVar(&f.annotation, "annotation", "", "line of text under the title")
	fs.BoolVar(&f.showDate, "show-date", d.ShowDate, "draw the current date in the top-right corner")
	fs.IntVar(&f.width, "width", d.Width, "frame width in logical pixels")
	fs.IntVar(&f.height, "height", d.Height, "frame height in logical pixels")
	fs.IntVar(&f.pixelRatio, "pixel-ratio", d.PixelRatio, "raster scale: 1 or 2")
	fs.IntVar(&f.fps, "fps", d.FPS, "frames per second")
	fs.StringVar(&f.format, "format", string(d.Format), "output format: mp4, gif or frames")
	fs.Uint64Var(&f.seed, "seed", 0, "palette seed; 0 picks colors at random")
}

// resolve builds the race configuration and its unpopulated series.
func (f *raceFlags) resolve(fs *pflag.FlagSet, today time.Time) (race.Config, []*series.Series, error) {
	preset := &race.Preset{}
	if f.preset != "" {
		p, err := race.LoadPreset(f.preset)
		if err != nil {
			return race.Config{}, nil, err
		}
		preset = p
	}
	cfg, err := preset.Config(today)
	if err != nil {
		return cfg, nil, err
	}

	if fs.Changed("start") || fs.Changed("end") {
		start, end := f.start, f.end
		if start == "" {
			start = cfg.Range.Start.Format(series.DateLayout)
		}
		if end == "" {
			end = cfg.Range.End.Format(series.DateLayout)
		}
		r, err := series.ParseDateRange(start, end)
		if err != nil {
			return cfg, nil, &race.InputError{Field: "date range", Err: err}
		}
		cfg.Range = r
	}
	if fs.Changed("duration") {
		cfg.Duration = f.duration
	}
	if fs.Changed("lookahead") {
		cfg.LookAhead = f.lookAhead
	}
	if fs.Changed("style") {
		st, err := render.ParseStyle(f.style)
		if err != nil {
			return cfg, nil, &race.InputError{Field: "style", Err: err}
		}
		cfg.Style = st
	}
	if fs.Changed("rebase") {
		cfg.Rebase = f.rebase
	}
	if fs.Changed("title") {
		cfg.Title = f.title
	}
	if fs.Changed("annotation") {
		cfg.Annotation = f.annotation
	}
	if fs.Changed("show-date") {
		cfg.ShowDate = f.showDate
	}
	if fs.Changed("width") {
		cfg.Width = f.width
	}
	if fs.Changed("height") {
		cfg.Height = f.height
	}
	if fs.Changed("pixel-ratio") {
		cfg.PixelRatio = f.pixelRatio
	}
	if fs.Changed("fps") {
		cfg.FPS = f.fps
	}
	if fs.Changed("format") {
		format, err := recording.ParseFormat(f.format)
		if err != nil {
			return cfg, nil, &race.InputError{Field: "format", Err: err}
		}
		cfg.Format = format
	}

	entries := preset.Series
	if len(f.symbols) > 0 {
		entries = entries[:0:0]
		for _, s := range f.symbols {
			entries = append(entries, race.PresetSeries{Symbol: strings.TrimSpace(s)})
		}
	}
	var rng *rand.Rand
	if f.seed != 0 {
		rng = rand.New(rand.NewPCG(f.seed, f.seed))
	}
	list, err := race.NewSeries(entries, rng)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, list, nil
}

// load resolves the flags of cmd and fetches every series. Symbols that fail
// to load are logged and left out; the race still runs with the rest.
func (f *raceFlags) load(ctx context.Context, cmd *cobra.Command, p marketdata.Provider, log *slog.Logger) (race.Config, []*series.Series, error) {
	cfg, list, err := f.resolve(cmd.Flags(), time.Now())
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.Range.Validate(); err != nil {
		return cfg, nil, &race.InputError{Field: "date range", Err: err}
	}
	log.Info("loading series", "symbols", len(list), "range", cfg.Range.String(), "provider", p.Name())
	if err := marketdata.LoadSeries(ctx, p, list, cfg.Range, log); err != nil {
		if errors.Is(err, context.Canceled) {
			return cfg, nil, err
		}
		log.Warn("some series could not be loaded", "error", err)
	}
	return cfg, list, nil
}
