// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galerija_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "galerija_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	submitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galerija_submits_total",
			Help: "Reconciled submits by terminal state.",
		},
		[]string{"state"},
	)

	submitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "galerija_submit_duration_seconds",
		Help:    "Time from receiving a submit to its terminal state.",
		Buckets: prometheus.DefBuckets,
	})

	imagesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "galerija_images_written_total",
		Help: "Inline images decoded and written to storage.",
	})

	imagesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "galerija_images_removed_total",
		Help: "Persisted images dropped by committed submits.",
	})

	recoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galerija_recovered_transactions_total",
			Help: "Pending transactions resolved at startup, by outcome.",
		},
		[]string{"outcome"},
	)

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "galerija_listing_cache_hits_total",
		Help: "Product listing cache hits.",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "galerija_listing_cache_misses_total",
		Help: "Product listing cache misses.",
	})
)

// ObserveSubmit records a submit that reached state after d.
func ObserveSubmit(state string, d time.Duration) {
	submitsTotal.WithLabelValues(state).Inc()
	submitDuration.Observe(d.Seconds())
}

// AddImages records written and removed image counts of a committed submit.
func AddImages(written, removed int) {
	imagesWritten.Add(float64(written))
	imagesRemoved.Add(float64(removed))
}

// ObserveRecovery records how a pending transaction was resolved.
func ObserveRecovery(outcome string) {
	recoveredTotal.WithLabelValues(outcome).Inc()
}

// CacheHit and CacheMiss count listing cache lookups.
func CacheHit()  { cacheHitsTotal.Inc() }
func CacheMiss() { cacheMissesTotal.Inc() }

// Middleware counts requests and their duration per route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// normalizePath collapses product names and file paths so label
// cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/uploads/"):
		return "/uploads/{file}"
	case strings.HasPrefix(path, "/api/products/") && strings.HasSuffix(path, "/images"):
		return "/api/products/{product}/images"
	case path == "/upload", path == "/metrics", path == "/healthz":
		return path
	default:
		return "other"
	}
}
