package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stocks/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "ab" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Query too short"}`))
			return
		}
		json.NewEncoder(w).Encode([]SymbolSearchResult{{Symbol: "AAPL", Shortname: "Apple Inc."}})
	})
	mux.HandleFunc("POST /api/stocks/chart", func(w http.ResponseWriter, r *http.Request) {
		var opts ChartOptions
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if r.URL.Query().Get("query") == "BAD" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":[{"path":"foo","message":"unknown field"}]}`))
			return
		}
		json.NewEncoder(w).Encode(ChartResult{
			Meta:   ChartMeta{Currency: "USD"},
			Quotes: []Quote{{Date: opts.StartDate, Close: 1}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(srv.URL+"/", srv.Client())
	ctx := context.Background()

	t.Run("search", func(t *testing.T) {
		got, err := c.Search(ctx, "apple")
		if err != nil || len(got) != 1 || got[0].Symbol != "AAPL" {
			t.Errorf("Search = %+v, %v", got, err)
		}
	})

	t.Run("search_error", func(t *testing.T) {
		_, err := c.Search(ctx, "ab")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != 400 || apiErr.Message != "Query too short" {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("chart", func(t *testing.T) {
		res, err := c.Chart(ctx, "AAPL", ChartOptions{StartDate: "2023-01-02"})
		if err != nil {
			t.Fatalf("Chart: %v", err)
		}
		if res.Meta.Currency != "USD" || len(res.Quotes) != 1 || res.Quotes[0].Date != "2023-01-02" {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("chart_validation_error", func(t *testing.T) {
		_, err := c.Chart(ctx, "BAD", ChartOptions{})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != `[{"path":"foo","message":"unknown field"}]` {
			t.Errorf("err = %v", err)
		}
	})
}
