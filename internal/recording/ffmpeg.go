package recording

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg subprocess that encodes
// H.264 into a fragmented MP4 written to stdout.
type FFmpegEncoder struct {
	path    string
	fps     int
	profile string
	level   string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    bytes.Buffer
	stderr bytes.Buffer
	bounds image.Rectangle
	rgba   *image.RGBA
}

// NewFFmpegEncoder returns an H.264 encoder. Profile and level default to
// main and 5.2.
func NewFFmpegEncoder(opts EncoderOptions) *FFmpegEncoder {
	e := &FFmpegEncoder{
		path:    opts.FFmpegPath,
		fps:     opts.FPS,
		profile: strings.ToLower(opts.Profile),
		level:   opts.Level,
	}
	if e.path == "" {
		e.path = "ffmpeg"
	}
	if e.fps <= 0 {
		e.fps = 30
	}
	if e.profile == "" {
		e.profile = "main"
	}
	if e.level == "" {
		e.level = "5.2"
	}
	return e
}

// Args returns the ffmpeg command line for a width x height input.
func (e *FFmpegEncoder) Args(width, height int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(e.fps),
		"-i", "pipe:0",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264",
		"-profile:v", e.profile,
		"-level", e.level,
		"-pix_fmt", "yuv420p",
		"-threads", "1",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4", "pipe:1",
	}
}

func (e *FFmpegEncoder) Start(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	if e.cmd != nil {
		return errors.New("ffmpeg encoder already started")
	}
	path, err := exec.LookPath(e.path)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	cmd := exec.Command(path, e.Args(width, height)...)
	e.out.Reset()
	e.stderr.Reset()
	cmd.Stdout = &e.out
	cmd.Stderr = &e.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	e.cmd, e.stdin = cmd, stdin
	e.bounds = image.Rect(0, 0, width, height)
	return nil
}

func (e *FFmpegEncoder) AddFrame(img image.Image) error {
	if e.cmd == nil {
		return ErrNotStarted
	}
	if img.Bounds().Size() != e.bounds.Size() {
		return errors.New("frame size does not match encoder")
	}
	pix, ok := img.(*image.RGBA)
	if !ok || pix.Stride != 4*e.bounds.Dx() || pix.Rect.Min != (image.Point{}) {
		if e.rgba == nil {
			e.rgba = image.NewRGBA(e.bounds)
		}
		draw.Draw(e.rgba, e.bounds, img, img.Bounds().Min, draw.Src)
		pix = e.rgba
	}
	if _, err := e.stdin.Write(pix.Pix); err != nil {
		return fmt.Errorf("write frame: %w%s", err, e.stderrSuffix())
	}
	return nil
}

func (e *FFmpegEncoder) Stop() ([]byte, error) {
	if e.cmd == nil {
		return nil, ErrNotStarted
	}
	cmd := e.cmd
	e.cmd = nil
	if err := e.stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("close ffmpeg stdin: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w%s", err, e.stderrSuffix())
	}
	data := make([]byte, e.out.Len())
	copy(data, e.out.Bytes())
	return data, nil
}

func (e *FFmpegEncoder) Abort() error {
	if e.cmd == nil {
		return nil
	}
	cmd := e.cmd
	e.cmd = nil
	_ = e.stdin.Close()
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	e.out.Reset()
	return nil
}

func (e *FFmpegEncoder) stderrSuffix() string {
	if s := strings.TrimSpace(e.stderr.String()); s != "" {
		return ": " + s
	}
	return ""
}

func (e *FFmpegEncoder) ContentType() string { return "video/mp4" }
func (e *FFmpegEncoder) Extension() string   { return ".mp4" }
