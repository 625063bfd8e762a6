package race

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"chartrace/internal/recording"
	"chartrace/internal/render"
	"chartrace/internal/series"

	"gopkg.in/yaml.v3"
)

// PresetSeries is one series entry of a preset. In YAML it is either a bare
// symbol or a mapping with symbol, label and color.
type PresetSeries struct {
	Symbol string `yaml:"symbol"`
	Label  string `yaml:"label,omitempty"`
	Color  string `yaml:"color,omitempty"`
}

// UnmarshalYAML accepts "AAPL" as shorthand for {symbol: AAPL}.
func (p *PresetSeries) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Symbol = node.Value
		return nil
	}
	type plain PresetSeries
	return node.Decode((*plain)(p))
}

// Preset is a saved race configuration.
type Preset struct {
	Series     []PresetSeries `yaml:"series"`
	Title      string         `yaml:"title,omitempty"`
	Annotation string         `yaml:"annotation,omitempty"`
	Start      string         `yaml:"start,omitempty"`
	End        string         `yaml:"end,omitempty"`
	Duration   string         `yaml:"duration,omitempty"`
	LookAhead  *int           `yaml:"look_ahead,omitempty"`
	Style      string         `yaml:"style,omitempty"`
	Rebase     bool           `yaml:"rebase,omitempty"`
	ShowDate   *bool          `yaml:"show_date,omitempty"`
	Padding    *int           `yaml:"padding,omitempty"`
	Width      int            `yaml:"width,omitempty"`
	Height     int            `yaml:"height,omitempty"`
	PixelRatio int            `yaml:"pixel_ratio,omitempty"`
	FPS        int            `yaml:"fps,omitempty"`
	Format     string         `yaml:"format,omitempty"`
}

// LoadPreset reads a YAML preset from path.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset: %w", err)
	}
	return ParsePreset(data)
}

// ParsePreset decodes a YAML preset.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preset: %w", err)
	}
	return &p, nil
}

// Symbols returns the preset's symbols in order.
func (p *Preset) Symbols() []string {
	out := make([]string, 0, len(p.Series))
	for _, s := range p.Series {
		out = append(out, s.Symbol)
	}
	return out
}

// Config applies the preset on top of DefaultConfig(today).
func (p *Preset) Config(today time.Time) (Config, error) {
	cfg := DefaultConfig(today)
	cfg.Title = p.Title
	cfg.Annotation = p.Annotation
	cfg.Rebase = p.Rebase

	if p.Start != "" || p.End != "" {
		start, end := p.Start, p.End
		if start == "" {
			start = cfg.Range.Start.Format(series.DateLayout)
		}
		if end == "" {
			end = cfg.Range.End.Format(series.DateLayout)
		}
		r, err := series.ParseDateRange(start, end)
		if err != nil {
			return cfg, invalid("date range", err)
		}
		cfg.Range = r
	}
	if p.Duration != "" {
		d, err := time.ParseDuration(p.Duration)
		if err != nil {
			return cfg, invalid("duration", err)
		}
		cfg.Duration = d
	}
	if p.LookAhead != nil {
		cfg.LookAhead = *p.LookAhead
	}
	if p.Style != "" {
		st, err := render.ParseStyle(p.Style)
		if err != nil {
			return cfg, invalid("style", err)
		}
		cfg.Style = st
	}
	if p.ShowDate != nil {
		cfg.ShowDate = *p.ShowDate
	}
	if p.Padding != nil {
		cfg.Padding = *p.Padding
	}
	if p.Width > 0 {
		cfg.Width = p.Width
	}
	if p.Height > 0 {
		cfg.Height = p.Height
	}
	if p.PixelRatio > 0 {
		cfg.PixelRatio = p.PixelRatio
	}
	if p.FPS > 0 {
		cfg.FPS = p.FPS
	}
	if p.Format != "" {
		f, err := recording.ParseFormat(p.Format)
		if err != nil {
			return cfg, invalid("format", err)
		}
		cfg.Format = f
	}
	return cfg, nil
}

// NewSeries builds unpopulated series for symbols. Colors named in entries are
// honoured; the rest are drawn from the default palette with rng.
func NewSeries(entries []PresetSeries, rng *rand.Rand) ([]*series.Series, error) {
	palette := series.DefaultPalette()
	out := make([]*series.Series, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		sym := strings.ToUpper(strings.TrimSpace(e.Symbol))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true

		var c series.Color
		if e.Color != "" {
			named, ok := series.DefaultPalette().ByName(strings.ToLower(e.Color))
			if !ok {
				return nil, invalid("color", fmt.Errorf("unknown color %q for %s", e.Color, sym))
			}
			c = named
			for i := range palette {
				if palette[i].Name == named.Name {
					palette = append(palette[:i], palette[i+1:]...)
					break
				}
			}
		} else if taken, ok := palette.Take(rng); ok {
			c = taken
		}
		out = append(out, series.New(sym, e.Label, c))
	}
	if len(out) == 0 {
		return nil, invalid("series", ErrNoSeries)
	}
	return out, nil
}
