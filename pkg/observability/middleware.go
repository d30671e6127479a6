package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// unmatchedRoute labels requests that no route pattern matched, keeping raw
// paths out of the label set.
const unmatchedRoute = "unmatched"

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - scribe_requests_total (counter): method, route pattern, and status class
//   - scribe_request_duration_seconds (histogram): method and route pattern
//   - scribe_requests_in_flight (gauge): incremented while the request is served
//
// The route label is the chi route pattern (e.g. "/blogs/{blogId}"), read
// after the router has matched.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := RoutePattern(r)
		statusStr := strconv.Itoa(sw.status/100) + "xx"

		RequestsTotal.WithLabelValues(r.Method, route, statusStr).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RoutePattern returns the matched chi route pattern for r, or "unmatched".
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}

// ObserveUpstream records the outcome and latency of one upstream call.
func ObserveUpstream(target, operation, outcome string, elapsed time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(target, operation, outcome).Inc()
	UpstreamLatency.WithLabelValues(target, operation).Observe(elapsed.Seconds())
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// and similar utilities to access the original writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
