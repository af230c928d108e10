package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// RouteUnmatched labels requests no route pattern accepted (404, 405, CORS
// preflight) so arbitrary paths collapse into a single series.
const RouteUnmatched = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querylens_http_requests_total",
			Help: "HTTP requests by matched route pattern.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querylens_http_request_duration_seconds",
			Help:    "HTTP request latency by matched route pattern. /api/query spans two LLM calls.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds)
}

func observeHTTPRequest(method, route string, status int, seconds float64) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, code).Observe(seconds)
}
