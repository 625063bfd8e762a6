package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"chartrace/internal/series"
)

// LoadSeries fetches every unpopulated series in list concurrently. A failed
// fetch leaves its series unpopulated; the failures are joined into the
// returned error and the rest of the batch still loads.
func LoadSeries(ctx context.Context, p Provider, list []*series.Series, r series.DateRange, log *slog.Logger) error {
	opts := OptionsFor(r)
	errs := make([]error, len(list))

	var wg sync.WaitGroup
	for i, s := range list {
		if s == nil || s.Populated() {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = loadOne(ctx, p, s, opts)
			if log == nil {
				return
			}
			if errs[i] != nil {
				log.Warn("series fetch failed", "symbol", s.Symbol, "error", errs[i])
				return
			}
			log.Debug("series loaded", "symbol", s.Symbol, "points", len(s.Points()))
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func loadOne(ctx context.Context, p Provider, s *series.Series, opts ChartOptions) error {
	res, err := p.Chart(ctx, s.Symbol, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Symbol, err)
	}
	pts, err := res.Points()
	if err != nil {
		return fmt.Errorf("%s: %w", s.Symbol, err)
	}
	if len(pts) == 0 {
		return fmt.Errorf("%s: %w", s.Symbol, ErrNoData)
	}
	return s.Populate(pts)
}
