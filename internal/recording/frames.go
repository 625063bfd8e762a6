package recording

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// FramesEncoder writes every frame as a numbered PNG into a zip archive.
// Entries carry no timestamps so identical frames give identical archives.
type FramesEncoder struct {
	buf *bytes.Buffer
	zw  *zip.Writer
	n   int
	png png.Encoder
}

// NewFramesEncoder returns a PNG sequence encoder.
func NewFramesEncoder() *FramesEncoder {
	return &FramesEncoder{png: png.Encoder{CompressionLevel: png.BestSpeed}}
}

func (e *FramesEncoder) Start(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	e.buf = new(bytes.Buffer)
	e.zw = zip.NewWriter(e.buf)
	e.n = 0
	return nil
}

func (e *FramesEncoder) AddFrame(img image.Image) error {
	if e.zw == nil {
		return ErrNotStarted
	}
	w, err := e.zw.CreateHeader(&zip.FileHeader{
		Name:   fmt.Sprintf("frame-%05d.png", e.n),
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	if err := e.png.Encode(w, img); err != nil {
		return err
	}
	e.n++
	return nil
}

func (e *FramesEncoder) Stop() ([]byte, error) {
	if e.zw == nil {
		return nil, ErrNotStarted
	}
	err := e.zw.Close()
	data := e.buf.Bytes()
	e.zw, e.buf = nil, nil
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (e *FramesEncoder) Abort() error {
	e.zw, e.buf = nil, nil
	return nil
}

func (e *FramesEncoder) ContentType() string { return "application/zip" }
func (e *FramesEncoder) Extension() string   { return ".zip" }
