package race

import (
	"context"
	"log/slog"
	"time"

	"chartrace/internal/animation"
	"chartrace/internal/platform/logger"
	"chartrace/internal/recording"
	"chartrace/internal/series"
)

// DefaultEpoch is the simulated wall clock an export starts from.
var DefaultEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ExportOptions configures Export.
type ExportOptions struct {
	Logger   *slog.Logger
	Observer recording.Observer
	// Epoch overrides DefaultEpoch. It does not affect the output.
	Epoch time.Time
	// Progress is called after every captured frame with the number of
	// frames captured so far and the expected total.
	Progress func(frame, total int)
}

// Export records the race frame by frame on a simulated clock. The k-th
// scheduler frame is timestamped epoch + k/FPS, so the output depends only on
// cfg and the series data. Cancelling ctx cancels the recording and returns
// ctx.Err().
func Export(ctx context.Context, cfg Config, list []*series.Series, enc recording.Encoder, opts ExportOptions) (*recording.Result, error) {
	res, _, err := export(ctx, cfg, list, enc, opts)
	return res, err
}

func export(ctx context.Context, cfg Config, list []*series.Series, enc recording.Encoder, opts ExportOptions) (*recording.Result, *animation.Controller, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	epoch := opts.Epoch
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}

	clock := animation.NewManualClock(epoch)
	host := animation.NewManualHost()
	ctl, err := animation.NewController(cfg.Duration, host, animation.WithClock(clock))
	if err != nil {
		return nil, nil, invalid("duration", err)
	}
	r, err := New(cfg, list, ctl)
	if err != nil {
		return nil, ctl, err
	}

	sessOpts := []recording.Option{
		recording.WithClock(ctl),
		recording.WithLogger(log),
	}
	if opts.Observer != nil {
		sessOpts = append(sessOpts, recording.WithObserver(opts.Observer))
	}
	sess := recording.NewSession(r, enc, sessOpts...)

	total, captured := cfg.FrameCount(), 0
	progress := func() {
		captured++
		if opts.Progress != nil {
			opts.Progress(captured, total)
		}
	}
	if err := sess.Start(); err != nil {
		return nil, ctl, err
	}
	progress()

	var stepErr error
	ctl.Start(animation.Hooks{
		OnFrame: func() {
			if err := sess.Step(); err != nil {
				if stepErr == nil {
					stepErr = err
				}
				return
			}
			progress()
		},
	})

	step := cfg.FrameInterval()
	for k := 0; ctl.Playing(); k++ {
		if err := ctx.Err(); err != nil {
			sess.Cancel()
			log.Info("export cancelled", "frames", captured)
			return nil, ctl, err
		}
		now := epoch.Add(time.Duration(k) * step)
		clock.Set(now)
		if host.Advance(now) == 0 || stepErr != nil {
			break
		}
	}

	res, err := sess.Stop()
	if err != nil {
		return nil, ctl, err
	}
	if stepErr != nil {
		return nil, ctl, stepErr
	}
	log.Info("export finished",
		"frames", res.Frames,
		"bytes", len(res.Data),
		"duration", cfg.Duration.String(),
		"fps", cfg.FPS)
	return res, ctl, nil
}
