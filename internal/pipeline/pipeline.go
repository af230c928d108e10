// Package pipeline runs one question through introspection, SQL generation,
// execution and summarization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querylens/querylens/internal/observability"
	"github.com/querylens/querylens/internal/query"
	"github.com/querylens/querylens/internal/schema"
)

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrGeneration    = errors.New("sql generation failed")
)

type SchemaSource interface {
	Introspect(ctx context.Context) schema.Map
}

type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question string, tables schema.Map) (string, error)
}

type SQLExecutor interface {
	Execute(ctx context.Context, sqlText string) (query.ResultSet, error)
}

type ResultSummarizer interface {
	Summarize(ctx context.Context, question string, rows query.ResultSet) string
}

type Dependencies struct {
	Schema     SchemaSource
	Generator  SQLGenerator
	Executor   SQLExecutor
	Summarizer ResultSummarizer
	Logger     *slog.Logger
}

// Response is the body of a successful answer. Data is never nil.
type Response struct {
	SQLQuery string           `json:"sql_query"`
	Data     []map[string]any `json:"data"`
	Summary  string           `json:"summary"`
}

type Service struct {
	deps   Dependencies
	logger *slog.Logger
}

func NewService(deps Dependencies) (*Service, error) {
	if deps.Schema == nil || deps.Generator == nil || deps.Executor == nil || deps.Summarizer == nil {
		return nil, fmt.Errorf("schema, generator, executor and summarizer are required")
	}
	return &Service{deps: deps, logger: observability.LoggerOrDiscard(deps.Logger)}, nil
}

// Run answers question. Errors wrap ErrEmptyQuestion or ErrGeneration, or are a
// *query.DatabaseError from execution. Schema and summary failures degrade
// rather than fail.
func (s *Service) Run(ctx context.Context, question string) (Response, error) {
	if question == "" {
		return Response{}, ErrEmptyQuestion
	}
	start := time.Now()

	tables := s.deps.Schema.Introspect(ctx)

	sqlText, err := s.deps.Generator.GenerateSQL(ctx, question, tables)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if strings.TrimSpace(sqlText) == "" {
		return Response{}, ErrGeneration
	}

	rows, err := s.deps.Executor.Execute(ctx, sqlText)
	if err != nil {
		return Response{}, err
	}

	summary := s.deps.Summarizer.Summarize(ctx, question, rows)

	s.logger.InfoContext(ctx, "question answered",
		slog.Int("tables", len(tables)),
		slog.Int("rows", len(rows)),
		slog.Duration("duration", time.Since(start)),
	)
	return Response{
		SQLQuery: sqlText,
		Data:     query.JSONRows(rows),
		Summary:  summary,
	}, nil
}
