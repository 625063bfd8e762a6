package live

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chartrace/internal/race"
	"chartrace/internal/series"

	"github.com/gorilla/websocket"
)

var testRange = series.DateRange{
	Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
}

func newTestPlayer(t *testing.T) *race.Player {
	t.Helper()
	s := series.New("AAA", "", series.Color{Name: "blue", Hex: "#3b82f6"})
	var pts []series.Point
	for d := testRange.Start; !d.After(testRange.End); d = d.AddDate(0, 0, 1) {
		pts = append(pts, series.Point{Date: d, Value: float64(100 + len(pts))})
	}
	if err := s.Populate(pts); err != nil {
		t.Fatal(err)
	}
	cfg := race.DefaultConfig(testRange.End)
	cfg.Range = testRange
	cfg.Duration = 300 * time.Millisecond
	cfg.FPS = 50
	cfg.Width, cfg.Height, cfg.Padding = 240, 180, 8
	cfg.ShowDate = false
	p, err := race.NewPlayer(cfg, []*series.Series{s}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *testConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testConn{t: t, conn: conn}
}

func (c *testConn) send(action string, fraction float64) {
	c.t.Helper()
	if err := c.conn.WriteJSON(ControlMsg{Type: TypeControl, Action: action, Fraction: fraction}); err != nil {
		c.t.Fatalf("send %s: %v", action, err)
	}
}

// waitFor reads messages until match accepts one.
func (c *testConn) waitFor(what string, match func(typ string, raw []byte) bool) []byte {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = c.conn.SetReadDeadline(deadline)
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("waiting for %s: %v", what, err)
		}
		var head struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(data, &head)
		if match(head.Type, data) {
			return data
		}
	}
}

func (c *testConn) waitState(what string, ok func(StateMsg) bool) StateMsg {
	c.t.Helper()
	var st StateMsg
	c.waitFor(what, func(typ string, raw []byte) bool {
		if typ != TypeState {
			return false
		}
		_ = json.Unmarshal(raw, &st)
		return ok(st)
	})
	return st
}

func (c *testConn) waitRecording(phase string) RecordingMsg {
	c.t.Helper()
	var msg RecordingMsg
	c.waitFor("recording "+phase, func(typ string, raw []byte) bool {
		if typ != TypeRecording {
			return false
		}
		_ = json.Unmarshal(raw, &msg)
		return msg.Phase == phase
	})
	return msg
}

func (c *testConn) waitError(substr string) {
	c.t.Helper()
	c.waitFor("error status", func(typ string, raw []byte) bool {
		if typ != TypeStatus {
			return false
		}
		var st StatusMsg
		_ = json.Unmarshal(raw, &st)
		return st.Level == "error" && strings.Contains(st.Text, substr)
	})
}

func startServer(t *testing.T, rec Recorder) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(newTestPlayer(t), rec, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return s, srv
}

func TestServer_playback(t *testing.T) {
	_, srv := startServer(t, nil)
	c := dial(t, srv)

	c.waitFor("greeting", func(typ string, raw []byte) bool { return typ == TypeStatus })
	initial := c.waitState("initial state", func(StateMsg) bool { return true })
	if initial.Playing || initial.ElapsedMs != 0 || initial.DurationMs != 300 || initial.Date != "2023-01-01" {
		t.Errorf("initial state = %+v", initial)
	}

	c.send(ActionPlay, 0)
	c.waitState("playing", func(st StateMsg) bool { return st.Playing })
	end := c.waitState("finished", func(st StateMsg) bool { return !st.Playing && st.Fraction == 1 })
	if end.ElapsedMs != 300 || end.Date != "2023-02-01" {
		t.Errorf("end state = %+v", end)
	}

	c.send(ActionPlay, 0)
	c.waitError("reset first")

	c.send(ActionScrub, 0.5)
	mid := c.waitState("scrubbed", func(st StateMsg) bool { return st.Fraction == 0.5 })
	if mid.Playing || mid.ElapsedMs != 150 {
		t.Errorf("scrub state = %+v", mid)
	}

	c.send(ActionReset, 0)
	c.waitState("reset", func(st StateMsg) bool { return st.ElapsedMs == 0 })

	c.send("rewind", 0)
	c.waitError("unknown action")
}

func TestServer_recording(t *testing.T) {
	started := make(chan struct{}, 1)
	rec := func(ctx context.Context, progress func(frame, total int)) (string, error) {
		progress(1, 10)
		started <- struct{}{}
		<-ctx.Done()
		return "", ctx.Err()
	}
	_, srv := startServer(t, rec)
	c := dial(t, srv)

	c.send(ActionCancel, 0)
	c.waitError(ErrNoRecording.Error())

	c.send(ActionRecord, 0)
	c.waitRecording(PhaseStarted)
	p := c.waitRecording(PhaseProgress)
	if p.Frame != 1 || p.Total != 10 {
		t.Errorf("progress = %+v", p)
	}
	<-started

	c.send(ActionRecord, 0)
	c.waitError(ErrRecordingActive.Error())

	c.send(ActionCancel, 0)
	c.waitRecording(PhaseCancelled)

	// The slot is free again once the cancelled run has been reported.
	c.send(ActionRecord, 0)
	c.waitRecording(PhaseStarted)
	c.send(ActionCancel, 0)
	c.waitRecording(PhaseCancelled)
}

func TestServer_recording_outcomes(t *testing.T) {
	results := make(chan error, 1)
	rec := func(ctx context.Context, progress func(frame, total int)) (string, error) {
		if err := <-results; err != nil {
			return "", err
		}
		return "race.gif", nil
	}
	s, srv := startServer(t, rec)
	c := dial(t, srv)

	results <- nil
	c.send(ActionRecord, 0)
	if got := c.waitRecording(PhaseFinished); got.File != "race.gif" {
		t.Errorf("finished = %+v", got)
	}
	s.Wait()

	results <- errors.New("ffmpeg not found")
	c.send(ActionRecord, 0)
	if got := c.waitRecording(PhaseFailed); got.Error != "ffmpeg not found" {
		t.Errorf("failed = %+v", got)
	}
}

func TestServer_recording_disabled(t *testing.T) {
	s := NewServer(newTestPlayer(t), nil, nil, nil)
	if err := s.Control(ControlMsg{Action: ActionRecord}); !errors.Is(err, ErrRecordingDisabled) {
		t.Errorf("err = %v", err)
	}
}

func TestServer_frame(t *testing.T) {
	s := NewServer(newTestPlayer(t), nil, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/frame.png", nil))

	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status %d content-type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 240 || b.Dy() != 180 {
		t.Errorf("bounds = %v", b)
	}
}

func TestHub_broadcast_without_clients(t *testing.T) {
	h := NewHub(nil)
	h.Broadcast(StatusMsg{Type: TypeStatus})
	if h.Clients() != 0 {
		t.Errorf("Clients = %d", h.Clients())
	}
}

func TestServer_Control_play_while_playing(t *testing.T) {
	s := NewServer(newTestPlayer(t), nil, nil, nil)
	t.Cleanup(s.player.Pause)

	if err := s.Control(ControlMsg{Action: ActionPlay}); err != nil {
		t.Fatalf("first play: %v", err)
	}
	if err := s.Control(ControlMsg{Action: ActionPlay}); err != nil {
		t.Errorf("second play while ticking: %v", err)
	}
	if !s.player.State().Playing {
		t.Error("player stopped after second play")
	}

	if err := s.Control(ControlMsg{Action: ActionScrub, Fraction: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Control(ControlMsg{Action: ActionPlay}); err == nil || !strings.Contains(err.Error(), "reset first") {
		t.Errorf("play at end: err = %v", err)
	}
}

func TestServer_recording_after_shutdown(t *testing.T) {
	called := false
	rec := func(ctx context.Context, progress func(frame, total int)) (string, error) {
		called = true
		return "", nil
	}
	s := NewServer(newTestPlayer(t), rec, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	if err := s.Control(ControlMsg{Action: ActionRecord}); !errors.Is(err, ErrServerClosed) {
		t.Errorf("err = %v, want ErrServerClosed", err)
	}
	s.Wait()
	if called {
		t.Error("recorder ran after shutdown")
	}
}
