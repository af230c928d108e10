package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/observability"
	"github.com/querylens/querylens/internal/pipeline"
	"github.com/querylens/querylens/internal/query"
	"github.com/querylens/querylens/internal/schema"
)

const (
	msgNoQuery          = "No query provided"
	msgGenerationFailed = "Failed to generate SQL query from LLM"
	msgUnexpectedPrefix = "An unexpected error occurred: "
	maxQueryBodyBytes   = 1 << 20
)

type queryRequest struct {
	Query string `json:"query"`
}

func handleQuery(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		writeError(w, http.StatusInternalServerError, cfg.LLM.APIKeyEnvVar()+" environment variable not set.")
		return
	}

	var request queryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxQueryBodyBytes)).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, msgNoQuery)
		return
	}
	question := request.Query
	if question == "" {
		writeError(w, http.StatusBadRequest, msgNoQuery)
		return
	}

	if deps.Pipeline == nil {
		writeError(w, http.StatusInternalServerError, msgUnexpectedPrefix+"query pipeline is not configured")
		return
	}

	response, err := deps.Pipeline.Run(r.Context(), question)
	if err != nil {
		status, message := classifyPipelineError(err)
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "question failed",
				slog.Int("status", status),
				slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
				slog.Any("error", err),
			)
		}
		writeError(w, status, message)
		return
	}
	if response.Data == nil {
		response.Data = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, response)
}

func classifyPipelineError(err error) (int, string) {
	var dbErr *query.DatabaseError
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		return http.StatusBadRequest, msgNoQuery
	case errors.Is(err, pipeline.ErrGeneration):
		return http.StatusInternalServerError, msgGenerationFailed
	case errors.As(err, &dbErr):
		return http.StatusInternalServerError, dbErr.Error()
	default:
		return http.StatusInternalServerError, msgUnexpectedPrefix + err.Error()
	}
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeJSON(w, http.StatusOK, schema.Map{})
		return
	}
	tables := deps.Schema.Introspect(r.Context())
	if tables == nil {
		tables = schema.Map{}
	}
	writeJSON(w, http.StatusOK, tables)
}
