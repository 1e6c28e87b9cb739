package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"p2pquotes/internal/metrics"
	"p2pquotes/internal/middlewarex"
)

func newRouter(h *handlers, m *metrics.Metrics, gatherer prometheus.Gatherer, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(
		m.Middleware,
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.ResponseLogging,
		middlewarex.CORS,
		middleware.Compress(5),
		// Inside Compress so a recovered 500 goes through the compressing writer.
		middlewarex.Recovery,
		middlewarex.LimitBody,
		middleware.Timeout(requestTimeout),
	)

	r.Get("/healthz", healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/quotes", h.getQuotes)
	r.Get("/summary", h.getSummary)
	r.Route("/snapshots", func(r chi.Router) {
		r.Post("/", h.postSnapshot)
		r.Get("/latest", h.getLatestSnapshot)
	})

	return r
}
