package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"
)

// DefaultYahooBaseURL is the public Yahoo Finance API host.
const DefaultYahooBaseURL = "https://query2.finance.yahoo.com"

const yahooUserAgent = "Mozilla/5.0 (compatible; chartrace/1.0)"

// Yahoo reads the unofficial Yahoo Finance JSON API.
type Yahoo struct {
	baseURL string
	http    *http.Client
	parsers fastjson.ParserPool
}

// NewYahoo returns a Yahoo provider. An empty baseURL selects the public host.
func NewYahoo(baseURL string, hc *http.Client) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Yahoo{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (y *Yahoo) Name() string { return "yahoo" }

// Search returns up to five quotes, keeping only Yahoo Finance listings.
func (y *Yahoo) Search(ctx context.Context, query string) ([]SymbolSearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("quotesCount", "5")
	q.Set("newsCount", "0")
	body, err := y.get(ctx, "/v1/finance/search?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("yahoo search: %w", err)
	}

	p := y.parsers.Get()
	defer y.parsers.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("yahoo search: parse: %w", err)
	}

	out := []SymbolSearchResult{}
	for _, quote := range v.GetArray("quotes") {
		if !quote.GetBool("isYahooFinance") {
			continue
		}
		name := string(quote.GetStringBytes("shortname"))
		if name == "" {
			name = string(quote.GetStringBytes("longname"))
		}
		exchange := string(quote.GetStringBytes("exchange"))
		out = append(out, SymbolSearchResult{
			Symbol:          string(quote.GetStringBytes("symbol")),
			Shortname:       name,
			Exchange:        exchange,
			QuoteType:       string(quote.GetStringBytes("quoteType")),
			IsExchangeValid: exchange != "",
		})
	}
	return out, nil
}

// Chart returns daily closes. Days without a close are skipped.
func (y *Yahoo) Chart(ctx context.Context, symbol string, opts ChartOptions) (*ChartResult, error) {
	r, err := opts.Range()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(r.Start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(r.End.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	body, err := y.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol)+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	p := y.parsers.Get()
	defer y.parsers.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: parse: %w", symbol, err)
	}
	if msg := yahooError(v.Get("chart", "error")); msg != "" {
		return nil, fmt.Errorf("yahoo chart %s: %s", symbol, msg)
	}
	res := v.Get("chart", "result", "0")
	if res == nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, ErrNoData)
	}

	meta := res.Get("meta")
	out := &ChartResult{
		Meta: ChartMeta{
			Currency:       string(meta.GetStringBytes("currency")),
			ExchangeName:   string(meta.GetStringBytes("exchangeName")),
			InstrumentType: string(meta.GetStringBytes("instrumentType")),
		},
		Quotes: []Quote{},
	}
	offset := meta.GetInt64("gmtoffset")
	stamps := res.GetArray("timestamp")
	closes := res.GetArray("indicators", "quote", "0", "close")
	for i, ts := range stamps {
		if i >= len(closes) || closes[i].Type() != fastjson.TypeNumber {
			continue
		}
		out.Quotes = append(out.Quotes, Quote{
			Date:  unixDate(ts.GetInt64() + offset),
			Close: closes[i].GetFloat64(),
		})
	}
	return out, nil
}

func (y *Yahoo) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := y.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if v, perr := fastjson.ParseBytes(body); perr == nil {
			msg = yahooError(v.Get("chart", "error"))
			if msg == "" {
				msg = yahooError(v.Get("finance", "error"))
			}
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return body, nil
}

func yahooError(v *fastjson.Value) string {
	if v == nil || v.Type() == fastjson.TypeNull {
		return ""
	}
	if d := v.GetStringBytes("description"); len(d) > 0 {
		return string(d)
	}
	return string(v.GetStringBytes("code"))
}

