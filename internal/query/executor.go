package query

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/querylens/querylens/internal/database"
	"github.com/querylens/querylens/internal/observability"
)

type Executor struct {
	open   database.OpenFunc
	logger *slog.Logger
}

func NewExecutor(open database.OpenFunc, logger *slog.Logger) *Executor {
	return &Executor{open: open, logger: observability.LoggerOrDiscard(logger)}
}

// Execute runs sqlText once on a fresh connection and materializes every row.
// Any failure is returned as *DatabaseError.
func (e *Executor) Execute(ctx context.Context, sqlText string) (ResultSet, error) {
	start := time.Now()
	rows, err := e.run(ctx, sqlText)
	observability.ObserveStage(observability.StageExecute, err, time.Since(start))
	if err != nil {
		e.logger.ErrorContext(ctx, "sql execution failed",
			slog.String("stage", observability.StageExecute),
			slog.String("sql", sqlText),
			slog.Any("error", err),
		)
		return nil, &DatabaseError{Err: err}
	}
	observability.ObserveResultRows(len(rows))
	e.logger.DebugContext(ctx, "sql executed",
		slog.String("stage", observability.StageExecute),
		slog.Int("rows", len(rows)),
		slog.Duration("duration", time.Since(start)),
	)
	return rows, nil
}

func (e *Executor) run(ctx context.Context, sqlText string) (ResultSet, error) {
	db, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) (ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	decimal := make([]bool, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			decimal[i] = IsDecimalType(ct.DatabaseTypeName())
		}
	}

	result := make(ResultSet, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i], decimal[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func normalizeValue(value any, decimal bool) any {
	switch typed := value.(type) {
	case []byte:
		if decimal {
			return Decimal(typed)
		}
		return string(typed)
	case string:
		if decimal {
			return Decimal(typed)
		}
		return typed
	default:
		return typed
	}
}

var decimalTypePrefixes = []string{"DECIMAL", "NUMERIC", "NEWDECIMAL", "SMALLDECIMAL", "MONEY", "SMALLMONEY"}

// IsDecimalType reports whether a driver type name denotes a fixed-point column.
func IsDecimalType(name string) bool {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return false
	}
	for _, prefix := range decimalTypePrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}
