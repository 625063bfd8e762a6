package series

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DateLayout is the calendar date format used by quotes, presets and the API.
const DateLayout = "2006-01-02"

var (
	ErrAlreadyPopulated = errors.New("series already populated")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrZeroBaseline     = errors.New("cannot rebase a series whose first value is zero")
)

// Point is one daily close.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is one symbol on the chart. It is created empty when the symbol is
// added and populated once by a successful fetch; its points never change
// afterwards.
type Series struct {
	Symbol string
	Label  string
	Color  Color

	mu        sync.RWMutex
	points    []Point
	populated bool
}

// New returns an empty series.
func New(symbol, label string, color Color) *Series {
	if label == "" {
		label = symbol
	}
	return &Series{Symbol: symbol, Label: label, Color: color}
}

// Populate stores a copy of points sorted by date. It fails with
// ErrAlreadyPopulated on every call after the first successful one.
func (s *Series) Populate(points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.populated {
		return fmt.Errorf("%s: %w", s.Symbol, ErrAlreadyPopulated)
	}
	cp := make([]Point, len(points))
	copy(cp, points)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Date.Before(cp[j].Date) })
	s.points = cp
	s.populated = true
	return nil
}

// Populated reports whether data has been loaded.
func (s *Series) Populated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.populated
}

// Points returns the loaded points in ascending date order. The slice is
// shared and must not be modified.
func (s *Series) Points() []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points
}

// DateRange is an inclusive calendar range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD dates and validates the result.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start %q: %v", ErrInvalidDateRange, start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end %q: %v", ErrInvalidDateRange, end, err)
	}
	r := DateRange{Start: s, End: e}
	return r, r.Validate()
}

// Validate requires both ends to be set and End to fall after Start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidDateRange)
	}
	if !dateOf(r.End).After(dateOf(r.Start)) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidDateRange,
			r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return nil
}

// Days returns the number of calendar days from Start to End.
func (r DateRange) Days() int {
	return DaysBetween(r.Start, r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// DaysBetween counts whole calendar days from a to b, comparing dates in UTC.
func DaysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)) / (24 * time.Hour))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
