// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ask outcome label values.
const (
	outcomeOK         = "ok"
	outcomeBlocked    = "blocked"
	outcomeError      = "error"
	outcomeBadRequest = "bad_request"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// askRequestsTotal counts completed /api/ask requests, partitioned by
	// outcome: "ok", "blocked", "error", or "bad_request".
	askRequestsTotal *prometheus.CounterVec

	// askDurationSeconds records the wall-clock duration of each /api/ask
	// request including retrieval and generation.
	askDurationSeconds *prometheus.HistogramVec

	// askDocumentsReturned records how many chunks each answer was grounded
	// on, after budget trimming.
	askDocumentsReturned prometheus.Histogram
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		askRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeros",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total number of /api/ask requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		askDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aeros",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/ask requests including retrieval and generation.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		askDocumentsReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aeros",
			Subsystem: "ask",
			Name:      "documents_returned",
			Help:      "Number of retrieved chunks grounding each answer, after budget trimming.",
			Buckets:   []float64{0, 1, 2, 3, 5, 7, 10, 15, 20},
		}),
	}
}
