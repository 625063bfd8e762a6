package proxy

import (
	"log/slog"
	"net/http"

	"chartrace/internal/platform/logger"
	"chartrace/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// NewRouter mounts the proxy routes with request logging and metrics.
// met may be nil, in which case /metrics is not served.
func NewRouter(h *Handler, log *slog.Logger, met *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))

	r.Get("/healthz", h.Healthz)
	if met != nil {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			met.Handler(func() {
				if n, ok := h.svc.CachedCharts(); ok {
					met.SetCachedCharts(n)
				}
			}).ServeHTTP(w, r)
		})
	}
	r.Route("/api/stocks", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Post("/chart", h.Chart)
	})
	return r
}
