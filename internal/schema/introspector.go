package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/querylens/querylens/internal/database"
	"github.com/querylens/querylens/internal/observability"
)

// Map is table name -> column names in the order the database reports them.
type Map map[string][]string

type Introspector struct {
	open    database.OpenFunc
	dialect database.Dialect
	logger  *slog.Logger
}

func NewIntrospector(open database.OpenFunc, dialect database.Dialect, logger *slog.Logger) *Introspector {
	return &Introspector{
		open:    open,
		dialect: dialect,
		logger:  observability.LoggerOrDiscard(logger),
	}
}

// Introspect never fails: any database error is logged and an empty map is
// returned so generation can proceed without schema context.
func (i *Introspector) Introspect(ctx context.Context) Map {
	start := time.Now()
	result, err := i.load(ctx)
	observability.ObserveStage(observability.StageIntrospect, err, time.Since(start))
	if err != nil {
		observability.IncrementSoftFailure(observability.StageIntrospect)
		i.logger.ErrorContext(ctx, "schema introspection failed",
			slog.String("stage", observability.StageIntrospect),
			slog.String("dialect", i.dialect.Name),
			slog.Any("error", err),
		)
		return Map{}
	}
	i.logger.DebugContext(ctx, "schema introspected",
		slog.String("stage", observability.StageIntrospect),
		slog.Int("tables", len(result)),
	)
	return result
}

func (i *Introspector) load(ctx context.Context) (Map, error) {
	db, err := i.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := queryNames(ctx, db, i.dialect.TablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	result := make(Map, len(tables))
	for _, table := range tables {
		query, args := i.dialect.ColumnsQuery(table)
		columns, err := queryNames(ctx, db, query, args...)
		if err != nil {
			return nil, fmt.Errorf("list columns of %q: %w", table, err)
		}
		result[table] = columns
	}
	return result, nil
}

// queryNames collects the first column of every row as text. Extra columns
// (SHOW COLUMNS returns six) are scanned and discarded.
func queryNames(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("query returned no columns")
	}

	names := make([]string, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for idx := range values {
			targets[idx] = &values[idx]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		names = append(names, nameString(values[0]))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func nameString(value any) string {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case string:
		return typed
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}
