// Package marketdata fetches symbol search results and daily closing prices
// from market-data providers.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"chartrace/internal/series"
)

// Default chart range used when a request leaves it open.
const (
	DefaultStartDate = "2022-03-01"
	DefaultEndDate   = "2024-03-01"
)

// SymbolSearchResult is one search hit.
type SymbolSearchResult struct {
	Symbol          string `json:"symbol"`
	Shortname       string `json:"shortname"`
	Exchange        string `json:"exchange"`
	QuoteType       string `json:"quoteType"`
	IsExchangeValid bool   `json:"isExchangeValid"`
}

// ChartOptions selects the date range of a chart request. Dates are
// YYYY-MM-DD; empty fields take the defaults.
type ChartOptions struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// WithDefaults fills empty dates.
func (o ChartOptions) WithDefaults() ChartOptions {
	if o.StartDate == "" {
		o.StartDate = DefaultStartDate
	}
	if o.EndDate == "" {
		o.EndDate = DefaultEndDate
	}
	return o
}

// Range parses the options into a validated date range.
func (o ChartOptions) Range() (series.DateRange, error) {
	o = o.WithDefaults()
	return series.ParseDateRange(o.StartDate, o.EndDate)
}

// OptionsFor returns the chart options covering r.
func OptionsFor(r series.DateRange) ChartOptions {
	return ChartOptions{
		StartDate: r.Start.Format(series.DateLayout),
		EndDate:   r.End.Format(series.DateLayout),
	}
}

// ChartMeta describes the instrument of a chart.
type ChartMeta struct {
	Currency       string `json:"currency"`
	ExchangeName   string `json:"exchangeName"`
	InstrumentType string `json:"instrumentType"`
}

// Quote is one daily close.
type Quote struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// ChartResult is a daily price history.
type ChartResult struct {
	Meta   ChartMeta `json:"meta"`
	Quotes []Quote   `json:"quotes"`
}

// Points converts the quotes into series points.
func (r *ChartResult) Points() ([]series.Point, error) {
	pts := make([]series.Point, 0, len(r.Quotes))
	for _, q := range r.Quotes {
		d, err := time.Parse(series.DateLayout, q.Date)
		if err != nil {
			return nil, fmt.Errorf("quote date %q: %w", q.Date, err)
		}
		pts = append(pts, series.Point{Date: d, Value: q.Close})
	}
	return pts, nil
}

// Provider is a source of market data.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]SymbolSearchResult, error)
	Chart(ctx context.Context, symbol string, opts ChartOptions) (*ChartResult, error)
}

func unixDate(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(series.DateLayout)
}
