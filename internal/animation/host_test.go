package animation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManualHost(t *testing.T) {
	t.Run("fires_in_registration_order", func(t *testing.T) {
		h := NewManualHost()
		var order []int
		for i := 0; i < 5; i++ {
			h.RequestFrame(func(time.Time) { order = append(order, i) })
		}
		if n := h.Advance(t0); n != 5 {
			t.Fatalf("ran %d, want 5", n)
		}
		for i, v := range order {
			if v != i {
				t.Fatalf("order = %v", order)
			}
		}
	})

	t.Run("registration_during_frame_runs_next_frame", func(t *testing.T) {
		h := NewManualHost()
		calls := 0
		var fn func(time.Time)
		fn = func(time.Time) {
			calls++
			h.RequestFrame(fn)
		}
		h.RequestFrame(fn)
		h.Advance(t0)
		if calls != 1 || h.Pending() != 1 {
			t.Errorf("calls=%d pending=%d, want 1/1", calls, h.Pending())
		}
	})

	t.Run("cancel", func(t *testing.T) {
		h := NewManualHost()
		fired := false
		handle := h.RequestFrame(func(time.Time) { fired = true })
		h.CancelFrame(handle)
		h.Advance(t0)
		if fired {
			t.Error("cancelled frame fired")
		}
	})

	t.Run("cancel_within_same_frame", func(t *testing.T) {
		h := NewManualHost()
		var second FrameHandle
		fired := false
		h.RequestFrame(func(time.Time) { h.CancelFrame(second) })
		second = h.RequestFrame(func(time.Time) { fired = true })
		if n := h.Advance(t0); n != 1 {
			t.Errorf("ran %d, want 1", n)
		}
		if fired {
			t.Error("frame cancelled by earlier callback still fired")
		}
	})
}

func TestTickerHost_Run(t *testing.T) {
	h := NewTickerHost(1000, nil)
	if h.Interval() != time.Millisecond {
		t.Fatalf("interval = %v", h.Interval())
	}
	got := make(chan time.Time, 1)
	h.RequestFrame(func(now time.Time) { got <- now })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("frame did not fire")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestTickerHost_drives_controller(t *testing.T) {
	h := NewTickerHost(500, nil)
	ctl, err := NewController(20*time.Millisecond, h)
	if err != nil {
		t.Fatal(err)
	}
	complete := make(chan struct{})
	ctl.Start(Hooks{OnComplete: func() { close(complete) }})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	select {
	case <-complete:
	case <-time.After(5 * time.Second):
		t.Fatal("animation did not complete")
	}
	if ctl.Elapsed() != 20*time.Millisecond || ctl.Playing() {
		t.Errorf("state = %+v", ctl.State())
	}
}

func TestNewTickerHost_default_fps(t *testing.T) {
	if got := NewTickerHost(0, nil).Interval(); got != time.Second/60 {
		t.Errorf("interval = %v, want 1/60s", got)
	}
}
