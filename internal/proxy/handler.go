package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chartrace/internal/marketdata"
	"chartrace/internal/platform/metrics"
	"chartrace/internal/series"
)

const maxBodyBytes = 1 << 16

// Issue is one validation problem in a chart request body.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error any `json:"error"`
}

// Handler exposes the market-data proxy endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Search handles GET /api/stocks/search?query=q.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	res, err := h.svc.Search(r.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, ErrQueryMissing):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Query not provided"})
		case errors.Is(err, ErrQueryTooShort):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Query too short"})
		default:
			h.log.Error("symbol search failed", slog.String("query", query), slog.String("error", err.Error()))
			writeJSON(w, providerStatus(err), errorResponse{Error: "Error searching symbols"})
		}
		return
	}

	h.log.Debug("symbol search", slog.String("query", query), slog.Int("results", len(res)))
	writeJSON(w, http.StatusOK, res)
}

// Chart handles POST /api/stocks/chart?query=SYM.
// Body: { "startDate": "2023-01-01", "endDate": "2024-01-01" }, both optional.
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("query"))
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Query not provided"})
		return
	}

	opts, issues := decodeChartOptions(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if len(issues) > 0 {
		h.log.Debug("invalid chart body", slog.String("symbol", symbol), slog.Any("issues", issues))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: issues})
		return
	}

	res, hit, err := h.svc.Chart(r.Context(), symbol, opts)
	if err != nil {
		h.log.Error("Error fetching chart data", slog.String("symbol", symbol), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error fetching chart data"})
		return
	}

	if h.metrics != nil {
		if hit {
			h.metrics.IncCacheHit()
		} else {
			h.metrics.IncCacheMiss()
		}
	}
	h.log.Debug("chart served",
		slog.String("symbol", symbol),
		slog.Int("quotes", len(res.Quotes)),
		slog.Bool("cached", hit))
	writeJSON(w, http.StatusOK, res)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeChartOptions reads a strict chart body. An empty body is the default
// range.
func decodeChartOptions(body io.Reader) (marketdata.ChartOptions, []Issue) {
	var opts marketdata.ChartOptions
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return opts, []Issue{decodeIssue(err)}
	}

	var issues []Issue
	for _, f := range []struct{ path, value string }{
		{"startDate", opts.StartDate},
		{"endDate", opts.EndDate},
	} {
		if f.value == "" {
			continue
		}
		if _, err := time.Parse(series.DateLayout, f.value); err != nil {
			issues = append(issues, Issue{Path: f.path, Message: "Invalid date, expected YYYY-MM-DD"})
		}
	}
	if len(issues) > 0 {
		return opts, issues
	}
	if _, err := opts.Range(); err != nil {
		issues = append(issues, Issue{Path: "endDate", Message: "endDate must be after startDate"})
	}
	return opts, issues
}

func decodeIssue(err error) Issue {
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		return Issue{Path: typeErr.Field, Message: fmt.Sprintf("Expected string, received %s", typeErr.Value)}
	case errors.As(err, &maxErr):
		return Issue{Message: "Request body too large"}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return Issue{Path: field, Message: fmt.Sprintf("Unrecognized key(s) in object: '%s'", field)}
	}
	return Issue{Message: err.Error()}
}

// providerStatus maps upstream failures to 502 and everything else to 500.
func providerStatus(err error) int {
	var apiErr *marketdata.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
