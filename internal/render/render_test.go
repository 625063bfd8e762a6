package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"chartrace/internal/series"
)

func day(s string) time.Time {
	t, _ := time.Parse(series.DateLayout, s)
	return t
}

func testFrame() Frame {
	return Frame{
		Date: day("2023-01-03"),
		Series: []series.Visible{
			{
				Symbol: "AAA",
				Label:  "Alpha",
				Color:  series.Color{Name: "blue", Hex: "#3b82f6"},
				Points: []series.VisiblePoint{
					{Date: day("2023-01-01"), Value: 100, Known: true},
					{Date: day("2023-01-02"), Value: 110, Known: true},
					{Date: day("2023-01-03"), Value: 120, Known: true},
					{Date: day("2023-01-04")},
				},
			},
			{
				Symbol: "BBB",
				Label:  "Beta",
				Color:  series.Color{Name: "red", Hex: "#ef4444"},
				Points: []series.VisiblePoint{
					{Date: day("2023-01-01"), Value: 90, Known: true},
					{Date: day("2023-01-02"), Value: 95, Known: true},
				},
			},
		},
	}
}

func newTestRenderer(t *testing.T, opts Options) *Renderer {
	t.Helper()
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNew_validation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"zero_size", Options{}, ErrInvalidSize},
		{"negative_padding", Options{Width: 10, Height: 10, Padding: -1}, ErrInvalidSize},
		{"pixel_ratio", Options{Width: 10, Height: 10, PixelRatio: 3}, ErrInvalidSize},
		{"style", Options{Width: 10, Height: 10, Style: "bar"}, ErrInvalidStyle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("New = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRenderer_Bounds(t *testing.T) {
	r := newTestRenderer(t, Options{Width: 300, Height: 200, PixelRatio: 2})
	if got := r.Bounds(); got != image.Rect(0, 0, 600, 400) {
		t.Errorf("Bounds = %v", got)
	}
	if r.Options().Style != StyleLine || r.Options().TextScale != 2 {
		t.Errorf("defaults not applied: %+v", r.Options())
	}
}

func TestRenderer_Render(t *testing.T) {
	r := newTestRenderer(t, Options{Width: 320, Height: 240, Padding: 10, Title: "Race", ShowDate: true})

	img, err := r.Render(testFrame())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds() != r.Bounds() {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if countNonWhite(img, img.Bounds()) == 0 {
		t.Error("rendered frame is blank")
	}
}

func TestRenderer_Render_deterministic(t *testing.T) {
	for _, style := range []Style{StyleLine, StyleArea} {
		r := newTestRenderer(t, Options{Width: 200, Height: 200, Style: style, Rebase: style == StyleArea})
		a, err := r.Render(testFrame())
		if err != nil {
			t.Fatal(err)
		}
		b, err := r.Render(testFrame())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a.Pix, b.Pix) {
			t.Errorf("%s: two renders of the same frame differ", style)
		}
	}
}

func TestRenderer_Render_nothing_known(t *testing.T) {
	r := newTestRenderer(t, Options{Width: 120, Height: 80})
	f := Frame{Series: []series.Visible{{Label: "Empty"}}}
	img, err := r.Render(f)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n := countNonWhite(img, img.Bounds()); n != 0 {
		t.Errorf("expected blank frame, got %d non-white pixels", n)
	}
}

func TestRenderer_date_overlay(t *testing.T) {
	r := newTestRenderer(t, Options{Width: 300, Height: 200, Padding: 8, ShowDate: true})
	img, err := r.Render(Frame{Date: day("2023-06-30")})
	if err != nil {
		t.Fatal(err)
	}
	topRight := image.Rect(150, 0, 300, 60)
	if countNonWhite(img, topRight) == 0 {
		t.Error("date overlay not drawn in the top-right corner")
	}
	if countNonWhite(img, image.Rect(0, 100, 300, 200)) != 0 {
		t.Error("unexpected pixels outside the overlay")
	}
}

func TestRenderer_RenderInto_size_mismatch(t *testing.T) {
	r := newTestRenderer(t, Options{Width: 10, Height: 10})
	if err := r.RenderInto(image.NewRGBA(image.Rect(0, 0, 5, 5)), Frame{}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("RenderInto = %v, want ErrSizeMismatch", err)
	}
}

func TestParseStyle(t *testing.T) {
	for in, want := range map[string]Style{"": StyleLine, "line": StyleLine, "AREA": StyleArea} {
		got, err := ParseStyle(in)
		if err != nil || got != want {
			t.Errorf("ParseStyle(%q) = %q, %v", in, got, err)
		}
	}
}

func countNonWhite(img *image.RGBA, r image.Rectangle) int {
	n := 0
	white := color.RGBA{255, 255, 255, 255}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) != white {
				n++
			}
		}
	}
	return n
}
