package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	polygonrest "github.com/polygon-io/client-go/rest"
	rmodels "github.com/polygon-io/client-go/rest/models"
)

// Polygon reads tickers and daily aggregates from polygon.io.
type Polygon struct {
	rest *polygonrest.Client
}

// NewPolygon returns a Polygon provider.
func NewPolygon(apiKey string, hc *http.Client) (*Polygon, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("polygon: %w", ErrMissingAPIKey)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Polygon{rest: polygonrest.NewWithClient(apiKey, hc)}, nil
}

func (p *Polygon) Name() string { return "polygon" }

// Search returns at most five active tickers matching query.
func (p *Polygon) Search(ctx context.Context, query string) ([]SymbolSearchResult, error) {
	search := query
	active := true
	limit := 5
	params := &rmodels.ListTickersParams{
		Search: &search,
		Active: &active,
		Limit:  &limit,
	}
	iter := p.rest.ListTickers(ctx, params)
	out := []SymbolSearchResult{}
	for len(out) < limit && iter.Next() {
		t := iter.Item()
		out = append(out, SymbolSearchResult{
			Symbol:          t.Ticker,
			Shortname:       t.Name,
			Exchange:        t.PrimaryExchange,
			QuoteType:       t.Type,
			IsExchangeValid: t.PrimaryExchange != "",
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("polygon search: %w", err)
	}
	return out, nil
}

// Chart returns adjusted daily closes in ascending order.
func (p *Polygon) Chart(ctx context.Context, symbol string, opts ChartOptions) (*ChartResult, error) {
	r, err := opts.Range()
	if err != nil {
		return nil, err
	}
	params := &rmodels.ListAggsParams{
		Ticker:     symbol,
		Timespan:   rmodels.Day,
		Multiplier: 1,
		From:       rmodels.Millis(r.Start),
		To:         rmodels.Millis(r.End),
	}
	lim := 50000
	asc := rmodels.Asc
	adj := true
	params.Limit = &lim
	params.Order = &asc
	params.Adjusted = &adj

	iter := p.rest.ListAggs(ctx, params)
	out := &ChartResult{
		Meta:   ChartMeta{Currency: "USD", InstrumentType: "EQUITY"},
		Quotes: []Quote{},
	}
	for iter.Next() {
		a := iter.Item()
		out.Quotes = append(out.Quotes, Quote{
			Date:  unixDate(time.Time(a.Timestamp).Unix()),
			Close: a.Close,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("polygon chart %s: %w", symbol, err)
	}
	if len(out.Quotes) == 0 {
		return nil, fmt.Errorf("polygon chart %s: %w", symbol, ErrNoData)
	}
	return out, nil
}
