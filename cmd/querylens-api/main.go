package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querylens/querylens/internal/api"
	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/database"
	"github.com/querylens/querylens/internal/llm"
	"github.com/querylens/querylens/internal/nl2sql"
	"github.com/querylens/querylens/internal/observability"
	"github.com/querylens/querylens/internal/pipeline"
	"github.com/querylens/querylens/internal/query"
	"github.com/querylens/querylens/internal/schema"
)

func main() {
	cfg, err := config.LoadFromEnv("querylens-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	dialect, err := database.LookupDialect(cfg.Database.Driver)
	if err != nil {
		logger.Error("unsupported database driver", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm api key is not set; /api/query will fail until it is",
			slog.String("variable", cfg.LLM.APIKeyEnvVar()),
		)
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		logger.Error("failed to initialize llm client", slog.Any("error", err))
		os.Exit(1)
	}

	open := database.NewOpener(cfg.Database)
	introspector := schema.NewIntrospector(open, dialect, logger)
	service, err := pipeline.NewService(pipeline.Dependencies{
		Schema: introspector,
		Generator: nl2sql.NewGenerator(client, nl2sql.GeneratorConfig{
			Flavour:     dialect.PromptName,
			Temperature: cfg.LLM.Temperature,
		}, logger),
		Executor:   query.NewExecutor(open, logger),
		Summarizer: nl2sql.NewSummarizer(client, cfg.LLM.Temperature, logger),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to build query pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:   logger,
		Pipeline: service,
		Schema:   introspector,
		Readiness: api.CombineReadinessChecks(func(ctx context.Context) error {
			return database.Ping(ctx, open)
		}),
		DependencyTimeout: cfg.Database.ConnectTimeout,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("dialect", dialect.Name),
			slog.String("llm_provider", client.Provider()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
