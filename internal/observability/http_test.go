package observability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/querylens/querylens/internal/config"
)

func TestTraceMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := TraceIDFromContext(r.Context()); got != "trace-1" {
			t.Fatalf("TraceIDFromContext() = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(traceHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(traceHeader); got != "trace-1" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestTraceMiddlewareGeneratesTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TraceIDFromContext(r.Context()) == "" {
			t.Fatal("expected generated trace id")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(rr.Header().Get(traceHeader)); err != nil {
		t.Fatalf("X-Trace-ID is not a uuid: %v", err)
	}
}

func TestTraceIDContextHelpers(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "abc123")
	if got := TraceIDFromContext(ctx); got != "abc123" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Fatalf("TraceIDFromContext(empty) = %q", got)
	}
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/query", nil))

	if !strings.Contains(buf.String(), `"status":202`) {
		t.Fatalf("log line = %s", buf.String())
	}
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Body.String() != "ok" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{
		Profile:       config.ProfileTest,
		Service:       config.ServiceConfig{Name: "querylens-api"},
		Observability: config.ObservabilityConfig{LogLevel: slog.LevelWarn, LogJSON: true},
	}
	logger := NewLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"service":"querylens-api"`) || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("log output = %s", out)
	}
}

func TestDomainMetricHelpersDoNotPanic(t *testing.T) {
	ObserveStage(StageExecute, nil, 10*time.Millisecond)
	ObserveStage(StageGenerate, errors.New("boom"), time.Second)
	ObserveLLMRequest("gemini", "sql", nil)
	IncrementSoftFailure(StageSummarize)
	ObserveResultRows(-1)
	ObserveResultRows(12)
	if LoggerOrDiscard(nil) == nil {
		t.Fatal("LoggerOrDiscard(nil) returned nil")
	}
}

func TestMetricsMiddlewareLabelsByRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/schema", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := MetricsMiddleware(mux)

	before := httpSeriesCount(t)
	for i := 0; i < 50; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, fmt.Sprintf("/junk-%d", i), nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/schema", nil))

	routes := httpRoutes(t)
	if routes["/junk-0"] || routes["/junk-49"] {
		t.Fatalf("raw paths leaked into route label: %v", routes)
	}
	if !routes[RouteUnmatched] || !routes["GET /api/schema"] {
		t.Fatalf("routes = %v", routes)
	}
	if grown := httpSeriesCount(t) - before; grown > 2 {
		t.Fatalf("series grew by %d for 50 unmatched paths", grown)
	}
}

func TestRouteLabelFallsBackToUnmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := RouteLabel(req); got != RouteUnmatched {
		t.Fatalf("RouteLabel() = %q", got)
	}
	req.Pattern = "POST /api/query"
	if got := RouteLabel(req); got != "POST /api/query" {
		t.Fatalf("RouteLabel() = %q", got)
	}
}

func gatherRequestsTotal(t *testing.T) []map[string]string {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	series := make([]map[string]string, 0)
	for _, family := range families {
		if family.GetName() != "querylens_http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := make(map[string]string)
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			series = append(series, labels)
		}
	}
	return series
}

func httpSeriesCount(t *testing.T) int {
	t.Helper()
	return len(gatherRequestsTotal(t))
}

func httpRoutes(t *testing.T) map[string]bool {
	t.Helper()
	routes := make(map[string]bool)
	for _, labels := range gatherRequestsTotal(t) {
		routes[labels["route"]] = true
	}
	return routes
}
