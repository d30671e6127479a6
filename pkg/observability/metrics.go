// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the scribe service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// UpstreamBuckets covers identity-authority and store round trips, from 5ms
// up to the default upstream timeout.
var UpstreamBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts HTTP requests by method, route pattern, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RequestsInFlight tracks requests currently being served.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scribe_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// UpstreamRequestsTotal counts calls to the identity authority and the
	// store. outcome is one of ok, rejected, not_found, timeout, error.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_upstream_requests_total",
			Help: "Upstream calls",
		},
		[]string{"target", "operation", "outcome"},
	)

	// UpstreamLatency records upstream call latency in seconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_upstream_latency_seconds",
			Help:    "Upstream latency",
			Buckets: UpstreamBuckets,
		},
		[]string{"target", "operation"},
	)

	// AuthRejectedTotal counts requests refused by the auth middleware.
	AuthRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_auth_rejected_total",
			Help: "Authentication rejections",
		},
		[]string{"reason"},
	)

	// OwnershipDeniedTotal counts post mutations refused because the caller
	// is not the author.
	OwnershipDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_ownership_denied_total",
			Help: "Ownership check denials",
		},
		[]string{"operation"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		UpstreamRequestsTotal,
		UpstreamLatency,
		AuthRejectedTotal,
		OwnershipDeniedTotal,
		RateLimitRejectedTotal,
	)
}
