package animation

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, d time.Duration) (*Controller, *ManualHost, *ManualClock) {
	t.Helper()
	host := NewManualHost()
	clock := NewManualClock(t0)
	ctl, err := NewController(d, host, WithClock(clock))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctl, host, clock
}

// runToEnd advances host at start, start+step, ... until nothing is pending
// and returns the elapsed value observed after each tick.
func runToEnd(t *testing.T, ctl *Controller, host *ManualHost, start time.Time, step time.Duration) []time.Duration {
	t.Helper()
	var seen []time.Duration
	for k := 0; host.Pending() > 0; k++ {
		if k > 100000 {
			t.Fatal("animation did not complete")
		}
		host.Advance(start.Add(time.Duration(k) * step))
		seen = append(seen, ctl.Elapsed())
	}
	return seen
}

func TestNewController_invalid(t *testing.T) {
	if _, err := NewController(0, NewManualHost()); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("zero duration: got %v, want ErrInvalidDuration", err)
	}
	if _, err := NewController(-time.Second, NewManualHost()); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("negative duration: got %v, want ErrInvalidDuration", err)
	}
	if _, err := NewController(time.Second, nil); !errors.Is(err, ErrNoHost) {
		t.Errorf("nil host: got %v, want ErrNoHost", err)
	}
}

func TestController_Play(t *testing.T) {
	t.Run("first_tick_contributes_no_delta", func(t *testing.T) {
		ctl, host, _ := newTestController(t, time.Second)
		if !ctl.Play() {
			t.Fatal("Play returned false")
		}
		if host.Pending() != 1 {
			t.Fatalf("pending = %d, want 1", host.Pending())
		}
		host.Advance(t0.Add(5 * time.Second))
		if got := ctl.Elapsed(); got != 0 {
			t.Errorf("elapsed after first tick = %v, want 0", got)
		}
		host.Advance(t0.Add(5*time.Second + 100*time.Millisecond))
		if got := ctl.Elapsed(); got != 100*time.Millisecond {
			t.Errorf("elapsed after second tick = %v, want 100ms", got)
		}
	})

	t.Run("second_play_is_noop", func(t *testing.T) {
		ctl, host, _ := newTestController(t, time.Second)
		ctl.Play()
		if ctl.Play() {
			t.Error("second Play should report false")
		}
		if host.Pending() != 1 {
			t.Errorf("pending = %d, want exactly one outstanding tick", host.Pending())
		}
	})

	t.Run("complete_animation_is_noop", func(t *testing.T) {
		ctl, host, _ := newTestController(t, time.Second)
		ctl.ScrubTo(1)
		if ctl.Play() {
			t.Error("Play at end should report false")
		}
		if ctl.Playing() || host.Pending() != 0 {
			t.Errorf("playing=%v pending=%d, want false/0", ctl.Playing(), host.Pending())
		}
	})
}

func TestController_completion(t *testing.T) {
	ctl, host, _ := newTestController(t, time.Second)
	frames, completed := 0, 0
	ctl.Start(Hooks{
		OnFrame:    func() { frames++ },
		OnComplete: func() { completed++ },
	})

	runToEnd(t, ctl, host, t0, 250*time.Millisecond)

	if frames != 4 {
		t.Errorf("OnFrame calls = %d, want 4", frames)
	}
	if completed != 1 {
		t.Errorf("OnComplete calls = %d, want 1", completed)
	}
	if ctl.Elapsed() != time.Second {
		t.Errorf("elapsed = %v, want 1s", ctl.Elapsed())
	}
	if ctl.Playing() || ctl.Status() != StatusStopped {
		t.Errorf("playing=%v status=%v, want stopped", ctl.Playing(), ctl.Status())
	}
	if ctl.Play() {
		t.Error("Play after completion should report false")
	}
}

func TestController_completion_clamps_elapsed(t *testing.T) {
	ctl, host, _ := newTestController(t, time.Second)
	ctl.Play()
	host.Advance(t0)
	host.Advance(t0.Add(3 * time.Second))
	if got := ctl.Elapsed(); got != time.Second {
		t.Errorf("elapsed = %v, want clamped to 1s", got)
	}
	if got := ctl.Fraction(); got != 1 {
		t.Errorf("fraction = %v, want 1", got)
	}
}

func TestController_frame_count(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		step     time.Duration
	}{
		{"exact_multiple", time.Second, 100 * time.Millisecond},
		{"remainder", time.Second, 300 * time.Millisecond},
		{"thirty_fps", 10 * time.Second, time.Second / 30},
		{"sixty_fps", 3 * time.Second, time.Second / 60},
		{"step_longer_than_duration", 50 * time.Millisecond, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl, host, _ := newTestController(t, tt.duration)
			frames := 0
			ctl.Start(Hooks{OnFrame: func() { frames++ }})
			runToEnd(t, ctl, host, t0, tt.step)

			want := int((tt.duration + tt.step - 1) / tt.step)
			if frames != want {
				t.Errorf("OnFrame calls = %d, want ceil(D/step) = %d", frames, want)
			}
		})
	}
}

func TestController_reset_then_play_is_deterministic(t *testing.T) {
	ctl, host, clock := newTestController(t, time.Second)
	offsets := []time.Duration{0, 16 * time.Millisecond, 40 * time.Millisecond, 41 * time.Millisecond, 300 * time.Millisecond, 900 * time.Millisecond, 1200 * time.Millisecond}

	play := func(base time.Time) []time.Duration {
		clock.Set(base)
		ctl.Play()
		var seen []time.Duration
		for _, off := range offsets {
			host.Advance(base.Add(off))
			seen = append(seen, ctl.Elapsed())
		}
		return seen
	}

	first := play(t0)
	ctl.Reset()
	if ctl.Elapsed() != 0 || ctl.Playing() {
		t.Fatalf("after Reset: elapsed=%v playing=%v", ctl.Elapsed(), ctl.Playing())
	}
	second := play(t0.Add(time.Hour))

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("tick %d: first=%v second=%v", i, first[i], second[i])
		}
	}
}

func TestController_pause_is_absorbed(t *testing.T) {
	for _, pause := range []time.Duration{time.Millisecond, time.Second, time.Hour, 48 * time.Hour} {
		t.Run(pause.String(), func(t *testing.T) {
			ctl, host, clock := newTestController(t, 10*time.Second)
			ctl.Play()
			host.Advance(t0)
			host.Advance(t0.Add(100 * time.Millisecond))
			host.Advance(t0.Add(200 * time.Millisecond))

			clock.Set(t0.Add(200 * time.Millisecond))
			ctl.Pause()
			before := ctl.Elapsed()
			if before != 200*time.Millisecond {
				t.Fatalf("elapsed before pause = %v", before)
			}

			resume := t0.Add(200*time.Millisecond + pause)
			if n := host.Advance(resume.Add(-time.Millisecond)); n != 0 {
				t.Errorf("ticks while paused = %d, want 0", n)
			}
			clock.Set(resume)
			ctl.Play()
			host.Advance(resume)
			if got := ctl.Elapsed(); got != before {
				t.Errorf("elapsed after resume = %v, want %v", got, before)
			}
			host.Advance(resume.Add(50 * time.Millisecond))
			if got := ctl.Elapsed(); got != 250*time.Millisecond {
				t.Errorf("elapsed = %v, want 250ms", got)
			}
			if got := ctl.WallElapsed(resume.Add(50 * time.Millisecond)); got != 250*time.Millisecond {
				t.Errorf("wall elapsed = %v, want 250ms", got)
			}
		})
	}
}

func TestController_cancellation(t *testing.T) {
	t.Run("pause_cancels_pending_tick", func(t *testing.T) {
		ctl, host, _ := newTestController(t, time.Second)
		ctl.Play()
		ctl.Pause()
		if host.Pending() != 0 {
			t.Errorf("pending = %d, want 0", host.Pending())
		}
		if n := host.Advance(t0); n != 0 {
			t.Errorf("fired %d callbacks after pause", n)
		}
	})

	t.Run("reset_from_frame_hook_stops_loop", func(t *testing.T) {
		ctl, host, _ := newTestController(t, time.Second)
		ctl.Start(Hooks{OnFrame: func() { ctl.Reset() }})
		host.Advance(t0)
		if host.Pending() != 0 {
			t.Errorf("pending = %d, want 0 after reset inside hook", host.Pending())
		}
		if ctl.Playing() || ctl.Elapsed() != 0 {
			t.Errorf("playing=%v elapsed=%v", ctl.Playing(), ctl.Elapsed())
		}
	})

	t.Run("stale_callback_does_not_resurrect", func(t *testing.T) {
		host := NewManualHost()
		ctl, _ := NewController(time.Second, host, WithClock(NewManualClock(t0)))
		var stale func(time.Time)
		// Capture the registration through a host that remembers it.
		rec := &recordingHost{Host: host, last: &stale}
		ctl.host = rec
		ctl.Play()
		ctl.Reset()

		stale(t0.Add(time.Second))
		if ctl.Playing() || ctl.Status() != StatusStopped || ctl.Elapsed() != 0 {
			t.Errorf("stale tick changed state: %+v", ctl.State())
		}
		if host.Pending() != 0 {
			t.Errorf("stale tick scheduled another frame")
		}
	})

	t.Run("pause_then_play_replaces_registration", func(t *testing.T) {
		ctl, host, _ := newTestController(t, time.Second)
		ctl.Play()
		ctl.Pause()
		ctl.Play()
		if host.Pending() != 1 {
			t.Errorf("pending = %d, want 1", host.Pending())
		}
	})
}

type recordingHost struct {
	Host
	last *func(time.Time)
}

func (h *recordingHost) RequestFrame(fn func(time.Time)) FrameHandle {
	*h.last = fn
	return h.Host.RequestFrame(fn)
}

func TestController_ScrubTo(t *testing.T) {
	tests := []struct {
		fraction float64
		want     time.Duration
	}{
		{0, 0},
		{0.25, 2500 * time.Millisecond},
		{1, 10 * time.Second},
		{-3, 0},
		{7, 10 * time.Second},
	}
	for _, tt := range tests {
		ctl, host, _ := newTestController(t, 10*time.Second)
		ctl.Play()
		ctl.ScrubTo(tt.fraction)
		if got := ctl.Elapsed(); got != tt.want {
			t.Errorf("ScrubTo(%v) elapsed = %v, want %v", tt.fraction, got, tt.want)
		}
		if ctl.Playing() || host.Pending() != 0 {
			t.Errorf("ScrubTo(%v) should pause", tt.fraction)
		}
	}
}

func TestController_Tick(t *testing.T) {
	ctl, host, _ := newTestController(t, time.Second)
	if ctl.Tick(t0) {
		t.Error("Tick on stopped controller should report false")
	}
	ctl.Play()
	if !ctl.Tick(t0) {
		t.Fatal("Tick returned false while ticking")
	}
	if !ctl.Tick(t0.Add(200 * time.Millisecond)) {
		t.Fatal("Tick returned false while ticking")
	}
	if got := ctl.Elapsed(); got != 200*time.Millisecond {
		t.Errorf("elapsed = %v, want 200ms", got)
	}
	if host.Pending() != 1 {
		t.Errorf("pending = %d, want 1", host.Pending())
	}
}

func TestController_ignores_backwards_time(t *testing.T) {
	ctl, host, _ := newTestController(t, time.Second)
	ctl.Play()
	host.Advance(t0)
	host.Advance(t0.Add(100 * time.Millisecond))
	host.Advance(t0.Add(50 * time.Millisecond))
	if got := ctl.Elapsed(); got != 100*time.Millisecond {
		t.Errorf("elapsed = %v, want 100ms", got)
	}
}

func TestController_complete_hook_can_reenter(t *testing.T) {
	ctl, host, _ := newTestController(t, 100*time.Millisecond)
	ctl.Start(Hooks{OnComplete: func() {
		ctl.Reset()
		ctl.Play()
	}})
	host.Advance(t0)
	host.Advance(t0.Add(200 * time.Millisecond))
	if !ctl.Playing() || ctl.Elapsed() != 0 {
		t.Errorf("playing=%v elapsed=%v, want restarted", ctl.Playing(), ctl.Elapsed())
	}
}

func TestStatus_String(t *testing.T) {
	if StatusStopped.String() != "stopped" || StatusTicking.String() != "ticking" {
		t.Errorf("unexpected strings %q %q", StatusStopped, StatusTicking)
	}
}
