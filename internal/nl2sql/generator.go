package nl2sql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/querylens/querylens/internal/llm"
	"github.com/querylens/querylens/internal/observability"
	"github.com/querylens/querylens/internal/schema"
)

const generatePromptTemplate = `You are a SQL expert. Your task is to write a %s query based on a user's natural language question.

Database Schema:
%s

Analyze the user's question and determine the relevant tables and columns.

User's question: %s

Provide only the SQL query as your response. Do not include any other text, explanations, or backticks.`

type GeneratorConfig struct {
	// Flavour names the SQL dialect in the prompt, e.g. "MySQL".
	Flavour     string
	Temperature float64
}

type Generator struct {
	client      llm.Client
	flavour     string
	temperature float64
	logger      *slog.Logger
}

func NewGenerator(client llm.Client, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	flavour := strings.TrimSpace(cfg.Flavour)
	if flavour == "" {
		flavour = "MySQL"
	}
	return &Generator{
		client:      client,
		flavour:     flavour,
		temperature: cfg.Temperature,
		logger:      observability.LoggerOrDiscard(logger),
	}
}

// GenerateSQL asks the model for one statement answering question against
// tables. Every failure is returned as *GenerationError.
func (g *Generator) GenerateSQL(ctx context.Context, question string, tables schema.Map) (string, error) {
	start := time.Now()
	sqlText, err := g.generate(ctx, question, tables)
	observability.ObserveStage(observability.StageGenerate, err, time.Since(start))
	if err != nil {
		g.logger.ErrorContext(ctx, "sql generation failed",
			slog.String("stage", observability.StageGenerate),
			slog.String("provider", g.client.Provider()),
			slog.Any("error", err),
		)
		return "", &GenerationError{Err: err}
	}
	g.logger.InfoContext(ctx, "sql generated",
		slog.String("stage", observability.StageGenerate),
		slog.String("sql", sqlText),
	)
	return sqlText, nil
}

func (g *Generator) generate(ctx context.Context, question string, tables schema.Map) (string, error) {
	prompt, err := BuildGeneratePrompt(g.flavour, question, tables)
	if err != nil {
		return "", err
	}
	text, err := g.client.Generate(ctx, llm.Prompt{Text: prompt, Temperature: g.temperature})
	observability.ObserveLLMRequest(g.client.Provider(), purposeGenerate, err)
	if err != nil {
		return "", err
	}
	sqlText := CleanSQL(text)
	if sqlText == "" {
		return "", ErrEmptySQL
	}
	return sqlText, nil
}

func BuildGeneratePrompt(flavour, question string, tables schema.Map) (string, error) {
	if tables == nil {
		tables = schema.Map{}
	}
	schemaJSON, err := json.Marshal(tables)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	return fmt.Sprintf(generatePromptTemplate, flavour, string(schemaJSON), question), nil
}

var fenceMarker = regexp.MustCompile("(?i)```(sql\\b)?")

// CleanSQL drops every markdown fence marker, wherever it appears and in any
// case, and trims surrounding whitespace.
func CleanSQL(value string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(value, ""))
}
