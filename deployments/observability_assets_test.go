package deployments

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "querylens_rules.yaml")

	requiredAlerts := []string{
		"QueryLensHTTPErrorRateHigh",
		"QueryLensSQLGenerationFailing",
		"QueryLensSchemaIntrospectionDegraded",
		"QueryLensSummaryFallbacks",
		"QueryLensStageLatencyHigh",
	}
	for _, alertName := range requiredAlerts {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Fatalf("rules missing alert %q", alertName)
		}
	}

	requiredRecords := []string{
		"querylens:http_error_rate_5m",
		"querylens:stage_latency_seconds_p95",
		"querylens:llm_failure_ratio_15m",
		"querylens:soft_failures_15m",
	}
	for _, recordName := range requiredRecords {
		if !strings.Contains(text, "record: "+recordName) {
			t.Fatalf("rules missing record %q", recordName)
		}
	}
}

func TestPrometheusRulesOnlyReferenceExportedMetrics(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "querylens_rules.yaml")

	exported := map[string]bool{
		"querylens_http_requests_total":           true,
		"querylens_http_request_duration_seconds": true,
		"querylens_stage_duration_seconds":        true,
		"querylens_llm_requests_total":            true,
		"querylens_soft_failures_total":           true,
		"querylens_result_rows":                   true,
	}
	for _, match := range regexp.MustCompile(`querylens_[a-z_]+`).FindAllString(text, -1) {
		name := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(match, "_bucket"), "_sum"), "_count")
		if !exported[name] {
			t.Fatalf("rules reference unknown metric %q", match)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "prometheus-scrape.example.yaml")

	for _, token := range []string{
		"metrics_path: /metrics",
		"querylens_rules.yaml",
		"job_name: querylens-api",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing %q", token)
		}
	}
}

func readAsset(t *testing.T, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{repoRoot(t), "deployments"}, parts...)...)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(content)
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
