package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	// Vectors only appear after their first observation.
	RequestsTotal.WithLabelValues("GET", "/blogs", "2xx").Inc()
	RequestDuration.WithLabelValues("GET", "/blogs").Observe(0.1)
	ObserveUpstream("store", "list_posts", "ok", 10*time.Millisecond)
	AuthRejectedTotal.WithLabelValues("missing_credentials").Inc()
	OwnershipDeniedTotal.WithLabelValues("update_post").Inc()
	RateLimitRejectedTotal.WithLabelValues("default").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"scribe_requests_total":           false,
		"scribe_request_duration_seconds": false,
		"scribe_requests_in_flight":       false,
		"scribe_upstream_requests_total":  false,
		"scribe_upstream_latency_seconds": false,
		"scribe_auth_rejected_total":      false,
		"scribe_ownership_denied_total":   false,
		"scribe_ratelimit_rejected_total": false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

// TestMiddlewareUsesRoutePattern verifies that requests routed by chi are
// labelled with the route pattern, not the raw path.
func TestMiddlewareUsesRoutePattern(t *testing.T) {
	before := counterValue(t, RequestsTotal, "PUT", "/blogs/{blogId}", "2xx")

	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Put("/blogs/{blogId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("PUT", "/blogs/abc123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	after := counterValue(t, RequestsTotal, "PUT", "/blogs/{blogId}", "2xx")
	if after-before != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareUnmatched verifies the fallback label outside a router.
func TestMiddlewareUnmatched(t *testing.T) {
	before := counterValue(t, RequestsTotal, "GET", "unmatched", "2xx")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/whatever", nil))

	after := counterValue(t, RequestsTotal, "GET", "unmatched", "2xx")
	if after-before != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareRecordsDuration verifies that the middleware records
// a request duration observation.
func TestMiddlewareRecordsDuration(t *testing.T) {
	before := histogramCount(t, RequestDuration, "POST", "unmatched")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/blogs", nil))

	after := histogramCount(t, RequestDuration, "POST", "unmatched")
	if after-before != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", after-before)
	}
}

// TestMiddlewareInFlightGauge verifies the gauge is raised during the
// request and restored afterwards.
func TestMiddlewareInFlightGauge(t *testing.T) {
	baseline := gaugeValue(t, RequestsInFlight)

	inHandler := make(chan float64, 1)
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHandler <- gaugeValue(t, RequestsInFlight)
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/blogs", nil))

	if during := <-inHandler; during != baseline+1 {
		t.Errorf("expected in-flight gauge=%f during request, got %f", baseline+1, during)
	}
	if after := gaugeValue(t, RequestsInFlight); after != baseline {
		t.Errorf("expected in-flight gauge=%f after request, got %f", baseline, after)
	}
}

// TestMiddlewareCapturesStatusCode verifies that non-200 status codes are
// captured correctly in the status label.
func TestMiddlewareCapturesStatusCode(t *testing.T) {
	before := counterValue(t, RequestsTotal, "POST", "unmatched", "4xx")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/blogs", nil))

	after := counterValue(t, RequestsTotal, "POST", "unmatched", "4xx")
	if after-before != 1 {
		t.Errorf("expected 4xx count to increase by 1, got delta=%f", after-before)
	}
}

func TestObserveUpstream(t *testing.T) {
	before := counterValue(t, UpstreamRequestsTotal, "identity", "sign_in", "timeout")
	beforeHist := histogramCount(t, UpstreamLatency, "identity", "sign_in")

	ObserveUpstream("identity", "sign_in", "timeout", 10*time.Second)

	if d := counterValue(t, UpstreamRequestsTotal, "identity", "sign_in", "timeout") - before; d != 1 {
		t.Errorf("counter delta = %f, want 1", d)
	}
	if d := histogramCount(t, UpstreamLatency, "identity", "sign_in") - beforeHist; d != 1 {
		t.Errorf("histogram delta = %d, want 1", d)
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// gaugeValue reads the current value of a Gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
