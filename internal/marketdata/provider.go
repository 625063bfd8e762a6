package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	// Name is one of "yahoo", "finnhub", "polygon" or "proxy".
	Name          string
	FinnhubAPIKey string
	PolygonAPIKey string
	YahooBaseURL  string
	ProxyURL      string
	Timeout       time.Duration
}

// NewProvider builds the configured provider.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", "yahoo":
		return NewYahoo(cfg.YahooBaseURL, hc), nil
	case "finnhub":
		f, err := NewFinnhub(cfg.FinnhubAPIKey, hc, "")
		if err != nil {
			return nil, err
		}
		return f, nil
	case "polygon":
		p, err := NewPolygon(cfg.PolygonAPIKey, hc)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "proxy":
		if cfg.ProxyURL == "" {
			return nil, fmt.Errorf("proxy provider: base URL is required")
		}
		return NewClient(cfg.ProxyURL, hc), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
}

// Observer records provider calls.
type Observer interface {
	ObserveProvider(provider, op string, took time.Duration, err error)
}

type instrumented struct {
	Provider
	obs Observer
}

// Instrument reports every call made through p to obs.
func Instrument(p Provider, obs Observer) Provider {
	if obs == nil {
		return p
	}
	return &instrumented{Provider: p, obs: obs}
}

func (i *instrumented) Search(ctx context.Context, query string) ([]SymbolSearchResult, error) {
	start := time.Now()
	res, err := i.Provider.Search(ctx, query)
	i.obs.ObserveProvider(i.Name(), "search", time.Since(start), err)
	return res, err
}

func (i *instrumented) Chart(ctx context.Context, symbol string, opts ChartOptions) (*ChartResult, error) {
	start := time.Now()
	res, err := i.Provider.Chart(ctx, symbol, opts)
	i.obs.ObserveProvider(i.Name(), "chart", time.Since(start), err)
	return res, err
}
