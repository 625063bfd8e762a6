package animation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// FrameHandle identifies one pending frame registration.
type FrameHandle uint64

// Host is the display-refresh primitive the controller schedules ticks on.
// RequestFrame registers fn to run once on the next refresh opportunity;
// CancelFrame removes a registration that has not fired yet.
type Host interface {
	RequestFrame(fn func(now time.Time)) FrameHandle
	CancelFrame(h FrameHandle)
}

// frameQueue holds pending registrations. Callbacks registered while a frame
// is being flushed run on the following frame.
type frameQueue struct {
	mu      sync.Mutex
	next    FrameHandle
	pending map[FrameHandle]func(time.Time)
}

func (q *frameQueue) request(fn func(time.Time)) FrameHandle {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		q.pending = make(map[FrameHandle]func(time.Time))
	}
	q.next++
	q.pending[q.next] = fn
	return q.next
}

func (q *frameQueue) cancel(h FrameHandle) {
	q.mu.Lock()
	delete(q.pending, h)
	q.mu.Unlock()
}

func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// flush runs every callback pending at call time, in registration order,
// and returns how many ran. A callback cancelled by an earlier callback in
// the same flush is skipped.
func (q *frameQueue) flush(now time.Time) int {
	q.mu.Lock()
	handles := make([]FrameHandle, 0, len(q.pending))
	for h := range q.pending {
		handles = append(handles, h)
	}
	q.mu.Unlock()
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	ran := 0
	for _, h := range handles {
		q.mu.Lock()
		fn, ok := q.pending[h]
		delete(q.pending, h)
		q.mu.Unlock()
		if !ok {
			continue
		}
		fn(now)
		ran++
	}
	return ran
}

// ManualHost fires frames only when Advance is called. It makes playback
// deterministic: the same sequence of Advance timestamps always produces the
// same sequence of ticks.
type ManualHost struct {
	q frameQueue
}

// NewManualHost returns an empty ManualHost.
func NewManualHost() *ManualHost {
	return &ManualHost{}
}

// RequestFrame implements Host.
func (h *ManualHost) RequestFrame(fn func(now time.Time)) FrameHandle {
	return h.q.request(fn)
}

// CancelFrame implements Host.
func (h *ManualHost) CancelFrame(handle FrameHandle) {
	h.q.cancel(handle)
}

// Advance simulates one display refresh at now.
func (h *ManualHost) Advance(now time.Time) int {
	return h.q.flush(now)
}

// Pending returns the number of outstanding registrations.
func (h *ManualHost) Pending() int {
	return h.q.len()
}

// TickerHost fires frames from a time.Ticker at a fixed rate, standing in for
// a display refresh loop. Callbacks run on the goroutine that called Run.
type TickerHost struct {
	q        frameQueue
	interval time.Duration
	clock    Clock
}

// NewTickerHost returns a host refreshing fps times per second.
// fps <= 0 selects 60.
func NewTickerHost(fps int, clock Clock) *TickerHost {
	if fps <= 0 {
		fps = 60
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TickerHost{interval: time.Second / time.Duration(fps), clock: clock}
}

// RequestFrame implements Host.
func (h *TickerHost) RequestFrame(fn func(now time.Time)) FrameHandle {
	return h.q.request(fn)
}

// CancelFrame implements Host.
func (h *TickerHost) CancelFrame(handle FrameHandle) {
	h.q.cancel(handle)
}

// Interval returns the refresh period.
func (h *TickerHost) Interval() time.Duration {
	return h.interval
}

// Run drives the refresh loop until ctx is done.
func (h *TickerHost) Run(ctx context.Context) error {
	tk := time.NewTicker(h.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tk.C:
			h.q.flush(h.clock.Now())
		}
	}
}
