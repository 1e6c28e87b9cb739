package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zenazn/goji/web/mutil"
)

// Fetch outcomes of the per-source fetch path.
const (
	OutcomeLive           = "live"
	OutcomeCache          = "cache"
	OutcomeRateLimit      = "rate_limit"
	OutcomeCircuitBreaker = "circuit_breaker"
	OutcomeErrorFallback  = "error_fallback"
	OutcomeMiss           = "miss"
)

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	fetches          *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	breakerTrips     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpInFlight     prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "p2pquotes",
			Name:      "source_fetch_total",
			Help:      "Per-source fetch results by outcome.",
		}, []string{"source", "outcome"}),
		upstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "p2pquotes",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of live upstream fetches.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "result"}),
		breakerTrips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "p2pquotes",
			Name:      "breaker_trips_total",
			Help:      "Times a per-key breaker went from closed to open.",
		}, []string{"source"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "p2pquotes",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "p2pquotes",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "p2pquotes",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}
}

func (m *Metrics) ObserveFetch(source, outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveUpstream(source string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.upstreamDuration.WithLabelValues(source, result).Observe(d.Seconds())
}

func (m *Metrics) BreakerTripped(source string) {
	if m == nil {
		return
	}
	m.breakerTrips.WithLabelValues(source).Inc()
}

// Middleware records request counts and latency labeled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		lw := mutil.WrapWriter(w)
		next.ServeHTTP(lw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := lw.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
