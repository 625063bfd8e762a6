// Package render draws one animation frame into a raster image. The chart
// body is rendered by go-chart; the title and current-date overlay are drawn
// with the x/image bitmap font scaled to the output resolution.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/draw"

	"chartrace/internal/series"
)

// Style is the series drawing style.
type Style string

const (
	StyleLine Style = "line"
	StyleArea Style = "area"
)

var (
	ErrInvalidStyle = errors.New("invalid chart style")
	ErrInvalidSize  = errors.New("invalid output size")
	ErrSizeMismatch = errors.New("destination size does not match renderer")
)

// ParseStyle accepts "line" and "area"; empty selects line.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleLine:
		return StyleLine, nil
	case StyleArea:
		return StyleArea, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStyle, s)
}

// Options configures a Renderer. Width, Height and Padding are in logical
// pixels; the raster is PixelRatio times larger.
type Options struct {
	Width      int
	Height     int
	PixelRatio int
	Padding    int
	Title      string
	Annotation string
	ShowDate   bool
	Style      Style
	Rebase     bool
	// TextScale magnifies the overlay font; zero selects 2.
	TextScale int
}

// Frame is what one animation position shows.
type Frame struct {
	Series []series.Visible
	Date   time.Time
}

// Renderer turns frames into RGBA rasters. It holds no mutable state and is
// safe for concurrent use.
type Renderer struct {
	opts Options
}

// New validates opts and returns a Renderer.
func New(opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, opts.Width, opts.Height)
	}
	if opts.PixelRatio == 0 {
		opts.PixelRatio = 1
	}
	if opts.PixelRatio < 1 || opts.PixelRatio > 2 {
		return nil, fmt.Errorf("%w: pixel ratio %d", ErrInvalidSize, opts.PixelRatio)
	}
	if opts.Padding < 0 {
		return nil, fmt.Errorf("%w: padding %d", ErrInvalidSize, opts.Padding)
	}
	if opts.TextScale <= 0 {
		opts.TextScale = 2
	}
	style, err := ParseStyle(string(opts.Style))
	if err != nil {
		return nil, err
	}
	opts.Style = style
	return &Renderer{opts: opts}, nil
}

// Bounds is the raster size of every frame.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.opts.Width*r.opts.PixelRatio, r.opts.Height*r.opts.PixelRatio)
}

// Options returns the normalised options.
func (r *Renderer) Options() Options {
	return r.opts
}

// Render draws f into a new image.
func (r *Renderer) Render(f Frame) (*image.RGBA, error) {
	dst := image.NewRGBA(r.Bounds())
	if err := r.RenderInto(dst, f); err != nil {
		return nil, err
	}
	return dst, nil
}

// RenderInto draws f over the whole of dst, which must have the renderer's
// bounds.
func (r *Renderer) RenderInto(dst *image.RGBA, f Frame) error {
	if dst == nil || dst.Bounds() != r.Bounds() {
		return ErrSizeMismatch
	}
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	if c, ok := r.chart(f); ok {
		var buf bytes.Buffer
		if err := c.Render(chart.PNG, &buf); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			return fmt.Errorf("decode chart: %w", err)
		}
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	r.overlay(dst, f)
	return nil
}

func (r *Renderer) px(n int) int {
	return n * r.opts.PixelRatio
}

// chart builds the go-chart definition for f. ok is false when no series has
// a known value, in which case only the background and overlay are drawn.
func (r *Renderer) chart(f Frame) (chart.Chart, bool) {
	var (
		lines      []chart.Series
		minX, maxX time.Time
		minY       = math.Inf(1)
		maxY       = math.Inf(-1)
	)
	for _, s := range f.Series {
		var xs []time.Time
		var ys []float64
		for _, p := range s.Points {
			if minX.IsZero() || p.Date.Before(minX) {
				minX = p.Date
			}
			if p.Date.After(maxX) {
				maxX = p.Date
			}
			// Known points form a prefix; the rest only widen the time axis.
			if !p.Known {
				continue
			}
			xs = append(xs, p.Date)
			ys = append(ys, p.Value)
			minY = math.Min(minY, p.Value)
			maxY = math.Max(maxY, p.Value)
		}
		if len(xs) == 0 {
			continue
		}
		lines = append(lines, chart.TimeSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style:   r.seriesStyle(s.Color),
		})
	}
	if len(lines) == 0 {
		return chart.Chart{}, false
	}

	if !maxX.After(minX) {
		maxX = minX.AddDate(0, 0, 1)
	}
	lo, hi := paddedRange(minY, maxY)

	yFormat := FormatUSD
	if r.opts.Rebase {
		yFormat = FormatPercent
	}

	pad := r.px(r.opts.Padding)
	top := pad
	if r.opts.Title != "" || r.opts.ShowDate || r.opts.Annotation != "" {
		top += r.px(80)
	}
	bounds := r.Bounds()
	c := chart.Chart{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		DPI:    float64(92 * r.opts.PixelRatio),
		Background: chart.Style{
			Padding:   chart.Box{Top: top, Left: pad, Right: pad, Bottom: pad},
			FillColor: chart.ColorWhite,
		},
		Canvas: chart.Style{FillColor: chart.ColorWhite},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(minX),
				Max: chart.TimeToFloat64(maxX),
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return yFormat(f)
				}
				return ""
			},
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: lines,
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}
	return c, true
}

func (r *Renderer) seriesStyle(c series.Color) chart.Style {
	col := parseHex(c.Hex)
	st := chart.Style{
		StrokeColor: col,
		StrokeWidth: float64(2 * r.opts.PixelRatio),
	}
	if r.opts.Style == StyleArea {
		st.FillColor = col.WithAlpha(64)
	}
	return st
}

func parseHex(hex string) drawing.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 && len(hex) != 3 {
		return chart.ColorBlue
	}
	return drawing.ColorFromHex(hex)
}

// paddedRange widens [lo, hi] by 5% on each side and guarantees a non-empty
// range for flat series.
func paddedRange(lo, hi float64) (float64, float64) {
	span := hi - lo
	if span <= 0 {
		span = math.Max(math.Abs(hi)*0.1, 1)
		return lo - span/2, hi + span/2
	}
	return lo - span*0.05, hi + span*0.05
}

var textColor = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}

func (r *Renderer) overlay(dst *image.RGBA, f Frame) {
	pad := r.px(r.opts.Padding)
	scale := r.opts.TextScale * r.opts.PixelRatio
	if r.opts.Title != "" {
		drawText(dst, r.opts.Title, pad+r.px(64), pad+r.px(32), scale+r.opts.PixelRatio, textColor, false)
	}
	if r.opts.Annotation != "" {
		drawText(dst, r.opts.Annotation, pad+r.px(64), pad+r.px(64), scale, textColor, false)
	}
	if r.opts.ShowDate && !f.Date.IsZero() {
		drawText(dst, f.Date.Format(series.DateLayout), dst.Bounds().Dx()-pad, pad+r.px(32), scale, textColor, true)
	}
}
