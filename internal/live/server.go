package live

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"sync"

	"chartrace/internal/animation"
	"chartrace/internal/platform/logger"
	"chartrace/internal/platform/metrics"
	"chartrace/internal/race"
	"chartrace/internal/series"

	"github.com/go-chi/chi/v5"
)

var (
	// ErrRecordingActive is returned when a recording is requested while
	// another one is running.
	ErrRecordingActive = errors.New("a recording is already in progress")

	// ErrNoRecording is returned when cancelling with nothing to cancel.
	ErrNoRecording = errors.New("no recording in progress")

	// ErrRecordingDisabled is returned when the server has no Recorder.
	ErrRecordingDisabled = errors.New("recording is not enabled")

	// ErrUnknownAction is returned for unrecognised control actions.
	ErrUnknownAction = errors.New("unknown action")

	// ErrServerClosed is returned for recordings requested after Run's
	// context is done.
	ErrServerClosed = errors.New("preview server is shutting down")
)

// Recorder exports the race being previewed and returns where the output
// was written. It must stop and return ctx.Err() when ctx is cancelled.
type Recorder func(ctx context.Context, progress func(frame, total int)) (string, error)

// Server is the preview HTTP server.
type Server struct {
	player  *race.Player
	hub     *Hub
	record  Recorder
	log     *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	ctx       context.Context
	cancelRec context.CancelFunc
	recWG     sync.WaitGroup
}

// NewServer returns a preview server for player. record may be nil to
// disable recording; m may be nil to disable /metrics.
func NewServer(player *race.Player, record Recorder, log *slog.Logger, m *metrics.Metrics) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		player:  player,
		hub:     NewHub(log),
		record:  record,
		log:     log,
		metrics: m,
		ctx:     context.Background(),
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the preview routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(s.log))
	r.Use(metrics.RequestMiddleware(s.metrics))

	r.Get("/ws", s.hub.ServeWS(s.greet, s.Control))
	r.Get("/frame.png", s.frame)
	if s.metrics != nil {
		r.Get("/metrics", s.metrics.Handler(nil).ServeHTTP)
	}
	return r
}

// Run plays the race until ctx is done, broadcasting every state change.
// Recordings started afterwards are cancelled with ctx.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	unsubscribe := s.player.Subscribe(func(st animation.State) {
		s.hub.Broadcast(s.stateMsg(st))
	})
	defer unsubscribe()

	err := s.player.Run(ctx)
	s.recWG.Wait()
	return err
}

// Wait blocks until the running recording, if any, has finished.
func (s *Server) Wait() { s.recWG.Wait() }

// Control applies a client control message.
func (s *Server) Control(msg ControlMsg) error {
	switch msg.Action {
	case ActionPlay:
		// Play is refused both while ticking and after the end; only the
		// second is an error.
		if !s.player.Play() && s.player.State().Status != animation.StatusTicking {
			return fmt.Errorf("cannot play: animation finished, reset first")
		}
	case ActionPause:
		s.player.Pause()
	case ActionReset:
		s.player.Reset()
	case ActionScrub:
		s.player.ScrubTo(msg.Fraction)
	case ActionRecord:
		return s.startRecording()
	case ActionCancel:
		return s.cancelRecording()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}
	return nil
}

func (s *Server) startRecording() error {
	if s.record == nil {
		return ErrRecordingDisabled
	}
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return ErrServerClosed
	}
	if s.cancelRec != nil {
		s.mu.Unlock()
		return ErrRecordingActive
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelRec = cancel
	s.recWG.Add(1)
	s.mu.Unlock()

	s.hub.Broadcast(RecordingMsg{Type: TypeRecording, Phase: PhaseStarted})
	go func() {
		defer s.recWG.Done()

		file, err := s.record(ctx, func(frame, total int) {
			s.hub.Broadcast(RecordingMsg{Type: TypeRecording, Phase: PhaseProgress, Frame: frame, Total: total})
		})
		cancel()
		s.mu.Lock()
		s.cancelRec = nil
		s.mu.Unlock()

		switch {
		case errors.Is(err, context.Canceled):
			s.log.Info("preview recording cancelled")
			s.hub.Broadcast(RecordingMsg{Type: TypeRecording, Phase: PhaseCancelled})
		case err != nil:
			s.log.Error("preview recording failed", slog.String("error", err.Error()))
			s.hub.Broadcast(RecordingMsg{Type: TypeRecording, Phase: PhaseFailed, Error: err.Error()})
		default:
			s.log.Info("preview recording saved", slog.String("file", file))
			s.hub.Broadcast(RecordingMsg{Type: TypeRecording, Phase: PhaseFinished, File: file})
		}
	}()
	return nil
}

func (s *Server) cancelRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRec == nil {
		return ErrNoRecording
	}
	s.cancelRec()
	return nil
}

func (s *Server) greet() []any {
	return []any{
		StatusMsg{Type: TypeStatus, Level: "info", Text: "Connected"},
		s.stateMsg(s.player.State()),
	}
}

func (s *Server) stateMsg(st animation.State) StateMsg {
	return StateMsg{
		Type:       TypeState,
		ElapsedMs:  st.Elapsed.Milliseconds(),
		DurationMs: st.Duration.Milliseconds(),
		Playing:    st.Playing,
		Fraction:   st.Fraction,
		Date:       series.MaxVisibleDate(s.player.Race().Config().Range, st.Fraction).Format(series.DateLayout),
	}
}

func (s *Server) frame(w http.ResponseWriter, r *http.Request) {
	img, err := s.player.Render()
	if err != nil {
		s.log.Error("render frame failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		s.log.Debug("write frame failed", slog.String("error", err.Error()))
	}
}
