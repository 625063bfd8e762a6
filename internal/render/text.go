package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawText draws s with its baseline at y, magnified by scale. x is the left
// edge, or the right edge when alignRight is set.
func drawText(dst *image.RGBA, s string, x, y, scale int, col color.Color, alignRight bool) {
	if s == "" || scale <= 0 {
		return
	}
	face := basicfont.Face7x13
	m := face.Metrics()
	ascent, height := m.Ascent.Ceil(), m.Height.Ceil()

	d := &font.Drawer{Face: face, Src: image.NewUniform(col)}
	w := d.MeasureString(s).Ceil()
	src := image.NewRGBA(image.Rect(0, 0, w, height))
	d.Dst = src
	d.Dot = fixed.P(0, ascent)
	d.DrawString(s)

	if alignRight {
		x -= w * scale
	}
	top := y - ascent*scale
	dr := image.Rect(x, top, x+w*scale, top+height*scale)
	draw.NearestNeighbor.Scale(dst, dr, src, src.Bounds(), draw.Over, nil)
}
