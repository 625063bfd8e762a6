package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the proxy server and the
// chartrace client.
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    prometheus.Counter
	errorsTotal      prometheus.Counter
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cachedCharts     prometheus.Gauge
	framesEncoded    prometheus.Counter
	recordings       *prometheus.CounterVec
}

// New creates and registers the chartrace metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chartrace_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chartrace_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	providerRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chartrace_provider_requests_total",
		Help: "Market-data provider calls by provider, operation and outcome",
	}, []string{"provider", "op", "outcome"})
	providerLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chartrace_provider_latency_seconds",
		Help:    "Market-data provider call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "op"})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chartrace_chart_cache_hits_total",
		Help: "Chart requests served from cache",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chartrace_chart_cache_misses_total",
		Help: "Chart requests that reached the provider",
	})
	cachedCharts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chartrace_cached_charts",
		Help: "Number of chart results currently held by the in-memory cache",
	})
	framesEncoded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chartrace_frames_encoded_total",
		Help: "Video frames handed to an encoder",
	})
	recordings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chartrace_recordings_total",
		Help: "Finished recording sessions by outcome (completed, cancelled, failed)",
	}, []string{"outcome"})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		providerRequests,
		providerLatency,
		cacheHits,
		cacheMisses,
		cachedCharts,
		framesEncoded,
		recordings,
	)

	return &Metrics{
		registry:         registry,
		requestsTotal:    requestsTotal,
		errorsTotal:      errorsTotal,
		providerRequests: providerRequests,
		providerLatency:  providerLatency,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		cachedCharts:     cachedCharts,
		framesEncoded:    framesEncoded,
		recordings:       recordings,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveProvider records one provider call. outcome is "ok" or "error".
func (m *Metrics) ObserveProvider(provider, op string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerRequests.WithLabelValues(provider, op, outcome).Inc()
	m.providerLatency.WithLabelValues(provider, op).Observe(took.Seconds())
}

// IncCacheHit increments the chart cache hit counter.
func (m *Metrics) IncCacheHit() {
	m.cacheHits.Inc()
}

// IncCacheMiss increments the chart cache miss counter.
func (m *Metrics) IncCacheMiss() {
	m.cacheMisses.Inc()
}

// SetCachedCharts sets the cached charts gauge.
func (m *Metrics) SetCachedCharts(n int) {
	m.cachedCharts.Set(float64(n))
}

// FrameEncoded counts one frame accepted by an encoder.
func (m *Metrics) FrameEncoded() {
	m.framesEncoded.Inc()
}

// RecordingFinished counts a finished recording session.
func (m *Metrics) RecordingFinished(outcome string) {
	m.recordings.WithLabelValues(outcome).Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}
