// Package observability exposes Prometheus metrics for planning and scanning.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	plansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zindex_plans_total",
			Help: "Query plans built, by selected index kind.",
		},
		[]string{"index"},
	)

	planRanges = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zindex_plan_ranges",
			Help:    "Scan ranges emitted per query plan.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
		},
		[]string{"index"},
	)

	planDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zindex_plan_duration_seconds",
			Help:    "Time spent selecting a strategy and decomposing ranges.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"index"},
	)

	coarsenedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zindex_decompositions_coarsened_total",
			Help: "Decompositions that exhausted the range budget and widened coverage.",
		},
	)

	scanDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zindex_scan_duration_seconds",
			Help:    "Duration of backend range scans.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"index", "ok"},
	)

	storeOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zindex_store_op_duration_seconds",
			Help:    "Duration of storage backend operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "ok"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zindex_http_requests_total",
			Help: "HTTP requests to the debug surface.",
		},
		[]string{"route", "status"},
	)
)

func ObservePlan(kind string, ranges int, seconds float64) {
	plansTotal.WithLabelValues(kind).Inc()
	planRanges.WithLabelValues(kind).Observe(float64(ranges))
	planDurationSeconds.WithLabelValues(kind).Observe(seconds)
}

func AddCoarsened() { coarsenedTotal.Inc() }

func ObserveScan(kind string, err error, seconds float64) {
	scanDurationSeconds.WithLabelValues(kind, okLabel(err)).Observe(seconds)
}

func ObserveStoreOp(op string, err error, seconds float64) {
	storeOpDurationSeconds.WithLabelValues(op, okLabel(err)).Observe(seconds)
}

func ObserveHTTP(route string, status int) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func okLabel(err error) string {
	if err != nil {
		return "false"
	}
	return "true"
}
