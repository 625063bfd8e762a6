package proxy

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"chartrace/internal/marketdata"
	"chartrace/internal/platform/logger"
)

// MinQueryLength is the shortest accepted search query.
const MinQueryLength = 3

var (
	// ErrQueryMissing is returned when a request carries no query.
	ErrQueryMissing = errors.New("query not provided")

	// ErrQueryTooShort is returned for search queries under MinQueryLength.
	ErrQueryTooShort = errors.New("query too short")
)

// Service validates requests, consults the chart cache and delegates to the
// market-data provider.
type Service struct {
	provider marketdata.Provider
	cache    Cache
	log      *slog.Logger
}

// NewService returns a Service. cache may be nil to disable caching; log may
// be nil to discard cache warnings.
func NewService(p marketdata.Provider, cache Cache, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{provider: p, cache: cache, log: log}
}

// Search returns the provider's matches for query. The result is never nil.
func (s *Service) Search(ctx context.Context, query string) ([]marketdata.SymbolSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryMissing
	}
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}
	res, err := s.provider.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []marketdata.SymbolSearchResult{}
	}
	return res, nil
}

// Chart returns daily closes for symbol, from cache when possible. The bool
// return reports a cache hit. A failing cache is logged and bypassed.
func (s *Service) Chart(ctx context.Context, symbol string, opts marketdata.ChartOptions) (*marketdata.ChartResult, bool, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, false, ErrQueryMissing
	}
	opts = opts.WithDefaults()
	key := CacheKey(symbol, opts)

	if s.cache != nil {
		res, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("chart cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		} else if ok {
			return res, true, nil
		}
	}

	res, err := s.provider.Chart(ctx, symbol, opts)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, res); err != nil {
			s.log.Warn("chart cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return res, false, nil
}

// CachedCharts returns the number of cached charts when the cache can count
// them.
func (s *Service) CachedCharts() (int, bool) {
	l, ok := s.cache.(interface{ Len() int })
	if !ok {
		return 0, false
	}
	return l.Len(), true
}
