package series

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// VisiblePoint is a point as drawn at one animation position. Known is false
// for look-ahead points whose date has not arrived yet; they render as a gap.
type VisiblePoint struct {
	Date  time.Time
	Value float64
	Known bool
}

// Visible is a windowed series ready for rendering.
type Visible struct {
	Symbol string
	Label  string
	Color  Color
	Points []VisiblePoint
}

// Window returns the part of points shown at fraction of the animation.
//
// The animation has covered round(days(r) * fraction) days. Point i is
// included while i <= max(lookAheadDays, daysElapsed) and its value is known
// when its date is on or before the current animation date. The first point
// is always known.
func Window(points []Point, r DateRange, fraction float64, lookAheadDays int) []VisiblePoint {
	daysElapsed := elapsedDays(r, fraction)
	maxDate := dateOf(r.Start).AddDate(0, 0, daysElapsed)
	limit := max(lookAheadDays, daysElapsed)

	out := make([]VisiblePoint, 0, min(len(points), limit+1))
	for i, p := range points {
		if i > limit {
			break
		}
		known := i == 0 || !dateOf(p.Date).After(maxDate)
		vp := VisiblePoint{Date: p.Date, Known: known}
		if known {
			vp.Value = p.Value
		}
		out = append(out, vp)
	}
	return out
}

// MaxVisibleDate returns the calendar date reached at fraction of the
// animation.
func MaxVisibleDate(r DateRange, fraction float64) time.Time {
	return dateOf(r.Start).AddDate(0, 0, elapsedDays(r, fraction))
}

func elapsedDays(r DateRange, fraction float64) int {
	span := DaysBetween(r.Start, r.End)
	if span < 0 {
		span = 0
	}
	return int(math.Round(float64(span) * clampFraction(fraction)))
}

// WindowSeries windows s, rebasing it first when rebase is set. An
// unpopulated series yields no points.
func WindowSeries(s *Series, r DateRange, fraction float64, lookAheadDays int, rebase bool) (Visible, error) {
	v := Visible{Symbol: s.Symbol, Label: s.Label, Color: s.Color}
	points := s.Points()
	if len(points) == 0 {
		return v, nil
	}
	if rebase {
		var err error
		if points, err = Rebase(points); err != nil {
			return v, fmt.Errorf("%s: %w", s.Symbol, err)
		}
	}
	v.Points = Window(points, r, fraction, lookAheadDays)
	return v, nil
}

// Rebase divides every value by the first one so the series starts at 1.
func Rebase(points []Point) ([]Point, error) {
	if len(points) == 0 {
		return nil, nil
	}
	base := decimal.NewFromFloat(points[0].Value)
	if base.IsZero() {
		return nil, ErrZeroBaseline
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{
			Date:  p.Date,
			Value: decimal.NewFromFloat(p.Value).Div(base).InexactFloat64(),
		}
	}
	return out, nil
}

func clampFraction(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
