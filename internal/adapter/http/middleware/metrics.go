package middleware

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
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Metrics middleware records HTTP metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses record and payment ids so metric label
// cardinality stays bounded.
//
//	/api/v1/records/transaction/01ABC -> /api/v1/records/transaction/:id
//	/api/v1/payments/bhd_123          -> /api/v1/payments/:id
//	/api/v1/sync/queue/01ABC/requeue  -> /api/v1/sync/queue/:id/requeue
func normalizePath(path string) string {
	for _, prefix := range []string{"/api/v1/records/", "/api/v1/payments/", "/api/v1/sync/queue/"} {
		if !strings.HasPrefix(path, prefix) {
			continue
		}

		rest := strings.TrimPrefix(path, prefix)
		parts := strings.Split(rest, "/")

		switch prefix {
		case "/api/v1/records/":
			// First segment is the entity type, second the record id.
			if len(parts) >= 2 && parts[1] != "" {
				parts[1] = ":id"
			}
		case "/api/v1/payments/":
			// Skip the fixed sub-resources.
			if len(parts) >= 1 && parts[0] != "" && parts[0] != "offline" && parts[0] != "replay" {
				parts[0] = ":id"
			}
		default:
			if len(parts) >= 1 && parts[0] != "" {
				parts[0] = ":id"
			}
		}

		return prefix + strings.Join(parts, "/")
	}

	return path
}
