package series

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// DefaultLookAhead is one month.
const DefaultLookAhead = 31

var ErrInvalidLookAhead = errors.New("invalid look-ahead")

var lookAheadLabels = map[int]string{
	0:   "none",
	1:   "1 day",
	7:   "1 week",
	31:  "1 month",
	182: "6 months",
	365: "1 year",
}

// LookAheadOptions returns the selectable look-ahead windows in days.
func LookAheadOptions() []int {
	return []int{0, 1, 7, 31, 182, 365}
}

// LookAheadLabel returns the display name of a look-ahead option.
func LookAheadLabel(days int) string {
	if l, ok := lookAheadLabels[days]; ok {
		return l
	}
	return fmt.Sprintf("%d days", days)
}

// ValidateLookAhead accepts only the values from LookAheadOptions.
func ValidateLookAhead(days int) error {
	if _, ok := lookAheadLabels[days]; !ok {
		return fmt.Errorf("%w: %d days (allowed %v)", ErrInvalidLookAhead, days, LookAheadOptions())
	}
	return nil
}

// Color is a named display color.
type Color struct {
	Name string
	Hex  string
}

// Palette is a set of colors not yet assigned to a series.
type Palette []Color

// DefaultPalette returns a fresh copy of the fifteen series colors.
func DefaultPalette() Palette {
	return Palette{
		{"red", "#ef4444"},
		{"orange", "#f97316"},
		{"amber", "#f59e0b"},
		{"yellow", "#eab308"},
		{"lime", "#84cc16"},
		{"emerald", "#10b981"},
		{"teal", "#14b8a6"},
		{"cyan", "#06b6d4"},
		{"sky", "#0ea5e9"},
		{"blue", "#3b82f6"},
		{"indigo", "#6366f1"},
		{"violet", "#8b5cf6"},
		{"fuchsia", "#d946ef"},
		{"pink", "#ec4899"},
		{"rose", "#f43f5e"},
	}
}

// Take removes a random color from the palette. When rng is nil the
// package-level generator is used. ok is false once the palette is empty.
func (p *Palette) Take(rng *rand.Rand) (c Color, ok bool) {
	n := len(*p)
	if n == 0 {
		return Color{}, false
	}
	var i int
	if rng != nil {
		i = rng.IntN(n)
	} else {
		i = rand.IntN(n)
	}
	c = (*p)[i]
	*p = append((*p)[:i], (*p)[i+1:]...)
	return c, true
}

// ByName returns the palette color with the given name.
func (p Palette) ByName(name string) (Color, bool) {
	for _, c := range p {
		if c.Name == name {
			return c, true
		}
	}
	return Color{}, false
}
