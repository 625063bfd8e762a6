package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client calls the chartrace proxy server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the proxy at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) Name() string { return "proxy" }

// Search calls GET /api/stocks/search.
func (c *Client) Search(ctx context.Context, query string) ([]SymbolSearchResult, error) {
	u := c.baseURL + "/api/stocks/search?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var out []SymbolSearchResult
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return out, nil
}

// Chart calls POST /api/stocks/chart.
func (c *Client) Chart(ctx context.Context, symbol string, opts ChartOptions) (*ChartResult, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	u := c.baseURL + "/api/stocks/chart?query=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var out ChartResult
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, v any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
