package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stages, used as metric labels and as the "stage" log attribute.
const (
	StageIntrospect = "introspect"
	StageGenerate   = "generate_sql"
	StageExecute    = "execute"
	StageSummarize  = "summarize"
)

var (
	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querylens_stage_duration_seconds",
			Help:    "Duration of each question pipeline stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage", "outcome"},
	)
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querylens_llm_requests_total",
			Help: "Total number of LLM generation requests.",
		},
		[]string{"provider", "purpose", "outcome"},
	)
	softFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querylens_soft_failures_total",
			Help: "Failures absorbed into a degraded result (empty schema, fallback summary).",
		},
		[]string{"stage"},
	)
	resultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querylens_result_rows",
			Help:    "Number of rows returned by executed statements.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		stageDurationSeconds,
		llmRequestsTotal,
		softFailuresTotal,
		resultRows,
	)
}

func ObserveStage(stage string, err error, elapsed time.Duration) {
	stageDurationSeconds.WithLabelValues(stage, outcome(err)).Observe(elapsed.Seconds())
}

func ObserveLLMRequest(provider, purpose string, err error) {
	llmRequestsTotal.WithLabelValues(provider, purpose, outcome(err)).Inc()
}

func IncrementSoftFailure(stage string) {
	softFailuresTotal.WithLabelValues(stage).Inc()
}

func ObserveResultRows(rows int) {
	if rows < 0 {
		rows = 0
	}
	resultRows.Observe(float64(rows))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
