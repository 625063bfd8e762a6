// Package recording captures a rendering surface frame by frame into a
// video encoder.
//
// A Session moves through Idle -> Initializing -> Recording -> Stopping ->
// Stopped and is never reused; every attempt builds a new one. Frames are
// encoded by a single worker goroutine in the order they were captured.
package recording

import (
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"chartrace/internal/platform/logger"
)

// Status is the session state.
type Status int

const (
	StatusIdle Status = iota
	StatusInitializing
	StatusRecording
	StatusStopping
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInitializing:
		return "initializing"
	case StatusRecording:
		return "recording"
	case StatusStopping:
		return "stopping"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Outcomes reported to the Observer.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Surface is the rendering surface being recorded.
type Surface interface {
	Bounds() image.Rectangle
	// Snapshot draws the current state of the surface into dst, which has
	// the surface's bounds.
	Snapshot(dst *image.RGBA) error
}

// Resetter returns the animation to its initial state.
type Resetter interface {
	Reset()
}

// Observer receives recording events.
type Observer interface {
	FrameEncoded()
	RecordingFinished(outcome string)
}

// Result is the finished recording.
type Result struct {
	Data        []byte
	Frames      int
	ContentType string
	Extension   string
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the animation reset on cancellation and failure.
func WithClock(r Resetter) Option {
	return func(s *Session) { s.clock = r }
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.obs = o }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithQueueSize bounds the number of captured frames waiting for the
// encoder. Step blocks while the queue is full.
func WithQueueSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithErrorHandler is called once when the session fails while recording.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Session) { s.onError = fn }
}

// Session is one recording attempt.
type Session struct {
	surface   Surface
	enc       Encoder
	clock     Resetter
	obs       Observer
	log       *slog.Logger
	queueSize int
	onError   func(error)

	// stepMu serialises capture and enqueueing with closing the queue.
	stepMu    sync.Mutex
	capture   *image.RGBA
	frames    chan *image.RGBA
	queueOnce sync.Once
	pool      sync.Pool

	failed     chan struct{}
	failOnce   sync.Once
	done       chan struct{}
	teardown   sync.Once
	discarding atomic.Bool
	encoded    atomic.Int64

	mu       sync.Mutex
	status   Status
	err      error
	result   *Result
	reported bool
}

// NewSession returns an idle session. surface and enc may be nil; Start then
// refuses with a precondition error.
func NewSession(surface Surface, enc Encoder, opts ...Option) *Session {
	s := &Session{
		surface:   surface,
		enc:       enc,
		log:       logger.Discard(),
		queueSize: 8,
		failed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the error that stopped the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Frames returns the number of frames the encoder has accepted.
func (s *Session) Frames() int {
	return int(s.encoded.Load())
}

// Start initialises the encoder and encodes frame 0 from the surface.
func (s *Session) Start() error {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	s.mu.Lock()
	switch {
	case s.surface == nil:
		s.mu.Unlock()
		return precondition("start", ErrNoSurface)
	case s.enc == nil:
		s.mu.Unlock()
		return precondition("start", ErrNoEncoder)
	case s.status == StatusStopped:
		s.mu.Unlock()
		return precondition("start", ErrSessionUsed)
	case s.status != StatusIdle:
		s.mu.Unlock()
		return precondition("start", ErrSessionActive)
	}
	b := s.surface.Bounds()
	if b.Empty() {
		s.mu.Unlock()
		return &Error{Op: "start", Kind: KindInput, Err: ErrInvalidSize}
	}
	s.status = StatusInitializing
	s.mu.Unlock()

	if err := s.enc.Start(b.Dx(), b.Dy()); err != nil {
		e := &Error{Op: "start", Kind: KindEncoder, Err: err}
		s.mu.Lock()
		s.status = StatusStopped
		s.err = e
		s.reported = true
		s.mu.Unlock()
		s.log.Error("encoder init failed", "error", err)
		if s.obs != nil {
			s.obs.RecordingFinished(OutcomeFailed)
		}
		return e
	}

	s.capture = image.NewRGBA(b)
	s.pool.New = func() any { return image.NewRGBA(b) }
	s.frames = make(chan *image.RGBA, s.queueSize)
	s.done = make(chan struct{})
	go s.encodeLoop(s.frames)

	s.mu.Lock()
	s.status = StatusRecording
	s.mu.Unlock()
	s.log.Info("recording started", "width", b.Dx(), "height", b.Dy())

	return s.stepLocked()
}

// Step captures the surface and queues one frame for encoding. It does
// nothing unless the session is recording.
func (s *Session) Step() error {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	return s.stepLocked()
}

func (s *Session) stepLocked() error {
	if s.Status() != StatusRecording {
		return nil
	}
	if err := s.surface.Snapshot(s.capture); err != nil {
		e := &Error{Op: "step", Kind: KindCapture, Err: err}
		s.fail(e)
		s.closeQueue()
		return e
	}
	f := s.pool.Get().(*image.RGBA)
	copy(f.Pix, s.capture.Pix)

	select {
	case s.frames <- f:
		return nil
	case <-s.failed:
		s.pool.Put(f)
		return s.Err()
	}
}

func (s *Session) encodeLoop(frames <-chan *image.RGBA) {
	defer close(s.done)
	for f := range frames {
		if s.isFailed() || s.discarding.Load() {
			s.pool.Put(f)
			continue
		}
		err := s.enc.AddFrame(f)
		s.pool.Put(f)
		if err != nil {
			s.fail(&Error{Op: "encode", Kind: KindEncoder, Err: err})
			s.stepMu.Lock()
			s.closeQueue()
			s.stepMu.Unlock()
			continue
		}
		s.encoded.Add(1)
		if s.obs != nil {
			s.obs.FrameEncoded()
		}
	}
	if s.isFailed() {
		if err := s.enc.Abort(); err != nil {
			s.log.Warn("encoder abort failed", "error", err)
		}
	}
}

func (s *Session) isFailed() bool {
	select {
	case <-s.failed:
		return true
	default:
		return false
	}
}

// fail records err. A session failing while recording stops immediately and
// returns the animation to its initial state; one failing while stopping
// leaves the rest to Stop.
func (s *Session) fail(err error) {
	s.failOnce.Do(func() { close(s.failed) })

	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	wasRecording := s.status == StatusRecording
	if wasRecording {
		s.status = StatusStopped
		s.reported = true
	}
	s.mu.Unlock()

	s.log.Error("recording failed", "error", err)
	if !wasRecording {
		return
	}
	if s.clock != nil {
		s.clock.Reset()
	}
	if s.obs != nil {
		s.obs.RecordingFinished(OutcomeFailed)
	}
	if s.onError != nil {
		s.onError(err)
	}
}

// closeQueue must be called with stepMu held.
func (s *Session) closeQueue() {
	if s.frames == nil {
		return
	}
	s.queueOnce.Do(func() { close(s.frames) })
}

// Stop drains queued frames, finalises the encoder and returns the output.
// Calling Stop again returns the same result.
func (s *Session) Stop() (*Result, error) {
	if s.Status() == StatusIdle {
		return nil, precondition("stop", ErrNotStarted)
	}
	s.teardown.Do(func() { s.finish(false) })

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// Cancel stops the session, discards any output and resets the animation.
// It is safe to call at any point, including after Stop.
func (s *Session) Cancel() {
	s.teardown.Do(func() { s.finish(true) })

	s.mu.Lock()
	s.result = nil
	if s.status == StatusIdle {
		s.status = StatusStopped
	}
	s.mu.Unlock()

	if s.clock != nil {
		s.clock.Reset()
	}
}

func (s *Session) finish(cancel bool) {
	s.stepMu.Lock()
	s.mu.Lock()
	if s.status == StatusIdle || s.done == nil {
		s.status = StatusStopped
		s.mu.Unlock()
		s.stepMu.Unlock()
		return
	}
	if s.status == StatusRecording {
		s.status = StatusStopping
	}
	s.mu.Unlock()
	if cancel {
		s.discarding.Store(true)
	}
	s.closeQueue()
	s.capture = nil
	s.stepMu.Unlock()

	<-s.done

	s.mu.Lock()
	err := s.err
	s.mu.Unlock()

	var data []byte
	if err == nil {
		if cancel {
			if aerr := s.enc.Abort(); aerr != nil {
				s.log.Warn("encoder abort failed", "error", aerr)
			}
		} else if out, serr := s.enc.Stop(); serr != nil {
			err = &Error{Op: "stop", Kind: KindEncoder, Err: serr}
		} else {
			data = out
		}
	}

	outcome := OutcomeCompleted
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case cancel:
		outcome = OutcomeCancelled
	}

	s.mu.Lock()
	s.status = StatusStopped
	if s.err == nil {
		s.err = err
	}
	if err == nil && !cancel {
		s.result = &Result{Data: data, Frames: s.Frames()}
		if mt, ok := s.enc.(MediaTyper); ok {
			s.result.ContentType = mt.ContentType()
			s.result.Extension = mt.Extension()
		}
	}
	report := !s.reported
	s.reported = true
	s.mu.Unlock()

	if err != nil && !cancel && s.clock != nil {
		s.clock.Reset()
	}
	if report && s.obs != nil {
		s.obs.RecordingFinished(outcome)
	}
	s.log.Info("recording finished", "outcome", outcome, "frames", s.Frames(), "bytes", len(data))
}
