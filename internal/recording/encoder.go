package recording

import (
	"fmt"
	"image"
	"strings"
)

// Encoder turns a sequence of equally sized frames into one output file.
// AddFrame must not retain img after it returns; the session reuses frame
// buffers.
type Encoder interface {
	Start(width, height int) error
	AddFrame(img image.Image) error
	Stop() ([]byte, error)
	// Abort releases resources and discards any partial output.
	Abort() error
}

// MediaTyper is implemented by encoders that know their output type.
type MediaTyper interface {
	ContentType() string
	Extension() string
}

// Format names an output encoder.
type Format string

const (
	FormatGIF    Format = "gif"
	FormatFrames Format = "frames"
	FormatMP4    Format = "mp4"
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatMP4, FormatGIF, FormatFrames}
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "gif":
		return FormatGIF, nil
	case "frames", "zip":
		return FormatFrames, nil
	case "mp4", "h264":
		return FormatMP4, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// EncoderOptions are the codec parameters shared by all encoders.
type EncoderOptions struct {
	FPS int
	// FFmpegPath is the ffmpeg binary; empty looks it up on PATH.
	FFmpegPath string
	Profile    string
	Level      string
}

// NewEncoder builds the encoder for format.
func NewEncoder(format Format, opts EncoderOptions) (Encoder, error) {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	switch format {
	case FormatGIF:
		return NewGIFEncoder(opts.FPS), nil
	case FormatFrames:
		return NewFramesEncoder(), nil
	case FormatMP4:
		return NewFFmpegEncoder(opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
