package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FetchCounter counts row fetches per table and outcome (ok, error, cached).
	FetchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_row_fetches_total",
			Help: "Total number of row fetches issued against the menu source",
		},
		[]string{"table", "outcome"},
	)

	// SkippedRowsCounter counts rows dropped by the validating decode step.
	SkippedRowsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_rows_skipped_total",
			Help: "Total number of malformed rows skipped while decoding",
		},
		[]string{"table"},
	)

	// CacheLookupCounter counts cache reads by the tier that answered them.
	CacheLookupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_cache_lookups_total",
			Help: "Total number of cache lookups by answering tier (memory, durable, miss)",
		},
		[]string{"tier"},
	)

	// CacheDurableErrorCounter counts swallowed durable tier failures.
	CacheDurableErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menu_cache_durable_errors_total",
			Help: "Total number of durable cache tier failures degraded to memory-only",
		},
	)

	// CompositionDuration records the time spent composing one restaurant.
	CompositionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "menu_composition_duration_seconds",
			Help:    "Duration of restaurant compositions in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FetchCounter,
			SkippedRowsCounter,
			CacheLookupCounter,
			CacheDurableErrorCounter,
			CompositionDuration,
			RequestCounter,
			RequestDurationHistogram,
		)
	})
}

// Handler returns an HTTP handler for exposing Prometheus metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
