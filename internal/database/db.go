package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/SAP/go-hdb/driver"
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/querylens/querylens/internal/config"
)

// OpenFunc opens a fresh connection. Callers own the returned handle and must
// close it when their call completes.
type OpenFunc func(ctx context.Context) (*sql.DB, error)

// NewOpener binds Open to a configuration.
func NewOpener(cfg config.DatabaseConfig) OpenFunc {
	return func(ctx context.Context) (*sql.DB, error) {
		return Open(ctx, cfg)
	}
}

// Open returns a single-connection handle that has been pinged. Connections
// are never reused across calls.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	dialect, err := LookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, dialect.DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect.Name, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect.Name, err)
	}

	return db, nil
}

// Ping opens and immediately closes a connection; used by readiness checks.
func Ping(ctx context.Context, open OpenFunc) error {
	db, err := open(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}
