package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/querylens/querylens/internal/llm"
	"github.com/querylens/querylens/internal/observability"
	"github.com/querylens/querylens/internal/query"
)

// FallbackSummary is returned in place of a summary whenever the model cannot
// produce one.
const FallbackSummary = "Failed to generate a human-readable summary."

const summarizePromptTemplate = `You are a financial analyst. Your task is to provide a concise, single-paragraph summary of the key findings from a data query.

Original User Question: "%s"

Query Results:
%s

Analyze the data provided and write a short, professional summary.
Do not include the raw data or column names in your final response.
Focus on interpreting the numbers and providing actionable insights.`

type Summarizer struct {
	client      llm.Client
	temperature float64
	logger      *slog.Logger
}

func NewSummarizer(client llm.Client, temperature float64, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		client:      client,
		temperature: temperature,
		logger:      observability.LoggerOrDiscard(logger),
	}
}

// Summarize never fails; errors are logged and FallbackSummary is returned.
func (s *Summarizer) Summarize(ctx context.Context, question string, rows query.ResultSet) string {
	start := time.Now()
	summary, err := s.summarize(ctx, question, rows)
	observability.ObserveStage(observability.StageSummarize, err, time.Since(start))
	if err != nil {
		observability.IncrementSoftFailure(observability.StageSummarize)
		s.logger.ErrorContext(ctx, "summary generation failed",
			slog.String("stage", observability.StageSummarize),
			slog.String("provider", s.client.Provider()),
			slog.Any("error", err),
		)
		return FallbackSummary
	}
	return summary
}

func (s *Summarizer) summarize(ctx context.Context, question string, rows query.ResultSet) (string, error) {
	prompt, err := BuildSummarizePrompt(question, rows)
	if err != nil {
		return "", err
	}
	text, err := s.client.Generate(ctx, llm.Prompt{Text: prompt, Temperature: s.temperature})
	observability.ObserveLLMRequest(s.client.Provider(), purposeSummarize, err)
	return text, err
}

func BuildSummarizePrompt(question string, rows query.ResultSet) (string, error) {
	payload, err := query.MarshalRows(rows)
	if err != nil {
		return "", fmt.Errorf("encode query results: %w", err)
	}
	return fmt.Sprintf(summarizePromptTemplate, question, string(payload)), nil
}
