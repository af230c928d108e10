// Package nl2sql turns questions into SQL and query results into prose using
// an llm.Client.
package nl2sql

import (
	"errors"
	"fmt"
)

// ErrEmptySQL is returned when the model answer is blank once fences are removed.
var ErrEmptySQL = errors.New("model returned empty SQL")

// GenerationError means no usable SQL statement came back from the model.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate sql: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

const (
	purposeGenerate  = "generate_sql"
	purposeSummarize = "summarize"
)
