package recording

import (
	"bytes"
	"errors"
	"image"
	"image/color/palette"
	"image/gif"

	"golang.org/x/image/draw"
)

// GIFEncoder produces an animated GIF using the Plan 9 palette. Frames are
// held in memory until Stop.
type GIFEncoder struct {
	delay  int
	bounds image.Rectangle
	anim   *gif.GIF
}

// NewGIFEncoder returns a GIF encoder for the given frame rate.
func NewGIFEncoder(fps int) *GIFEncoder {
	delay := 100 / max(fps, 1)
	return &GIFEncoder{delay: max(delay, 2)}
}

func (e *GIFEncoder) Start(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	e.bounds = image.Rect(0, 0, width, height)
	e.anim = &gif.GIF{}
	return nil
}

func (e *GIFEncoder) AddFrame(img image.Image) error {
	if e.anim == nil {
		return ErrNotStarted
	}
	if img.Bounds().Size() != e.bounds.Size() {
		return errors.New("frame size does not match encoder")
	}
	p := image.NewPaletted(e.bounds, palette.Plan9)
	draw.Draw(p, e.bounds, img, img.Bounds().Min, draw.Src)
	e.anim.Image = append(e.anim.Image, p)
	e.anim.Delay = append(e.anim.Delay, e.delay)
	return nil
}

func (e *GIFEncoder) Stop() ([]byte, error) {
	if e.anim == nil {
		return nil, ErrNotStarted
	}
	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, e.anim)
	e.anim = nil
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *GIFEncoder) Abort() error {
	e.anim = nil
	return nil
}

func (e *GIFEncoder) ContentType() string { return "image/gif" }
func (e *GIFEncoder) Extension() string   { return ".gif" }
