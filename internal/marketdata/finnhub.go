package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
)

// Finnhub reads symbol lookups and daily candles from finnhub.io.
type Finnhub struct {
	api *finnhub.DefaultApiService
}

// NewFinnhub returns a Finnhub provider. baseURL overrides the API host and
// is empty in production.
func NewFinnhub(apiKey string, hc *http.Client, baseURL string) (*Finnhub, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("finnhub: %w", ErrMissingAPIKey)
	}
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	if hc != nil {
		cfg.HTTPClient = hc
	}
	if baseURL != "" {
		cfg.Servers = finnhub.ServerConfigurations{{URL: strings.TrimRight(baseURL, "/")}}
	}
	return &Finnhub{api: finnhub.NewAPIClient(cfg).DefaultApi}, nil
}

func (f *Finnhub) Name() string { return "finnhub" }

// Search returns at most five matches.
func (f *Finnhub) Search(ctx context.Context, query string) ([]SymbolSearchResult, error) {
	res, _, err := f.api.SymbolSearch(ctx).Q(query).Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub search: %w", err)
	}
	out := []SymbolSearchResult{}
	for _, r := range res.GetResult() {
		if len(out) == 5 {
			break
		}
		out = append(out, SymbolSearchResult{
			Symbol:          r.GetSymbol(),
			Shortname:       r.GetDescription(),
			Exchange:        exchangeFromSymbol(r.GetDisplaySymbol()),
			QuoteType:       r.GetType(),
			IsExchangeValid: r.GetSymbol() != "",
		})
	}
	return out, nil
}

// Chart returns daily closes from the candle endpoint.
func (f *Finnhub) Chart(ctx context.Context, symbol string, opts ChartOptions) (*ChartResult, error) {
	r, err := opts.Range()
	if err != nil {
		return nil, err
	}
	candles, _, err := f.api.StockCandles(ctx).
		Symbol(symbol).
		Resolution("D").
		From(r.Start.Unix()).
		To(r.End.Unix()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub chart %s: %w", symbol, err)
	}
	if candles.GetS() != "ok" {
		return nil, fmt.Errorf("finnhub chart %s: %w", symbol, ErrNoData)
	}

	closes, stamps := candles.GetC(), candles.GetT()
	out := &ChartResult{
		Meta:   ChartMeta{Currency: "USD", ExchangeName: exchangeFromSymbol(symbol), InstrumentType: "EQUITY"},
		Quotes: make([]Quote, 0, len(stamps)),
	}
	for i, ts := range stamps {
		if i >= len(closes) {
			break
		}
		out.Quotes = append(out.Quotes, Quote{Date: unixDate(ts), Close: float64(closes[i])})
	}
	return out, nil
}

// exchangeFromSymbol returns the suffix of "SYM.EX" symbols.
func exchangeFromSymbol(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 && i < len(s)-1 {
		return s[i+1:]
	}
	return ""
}
