package database

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/querylens/querylens/internal/config"
)

// Dialect describes how to reach one database engine and how to list its
// tables and columns. Both introspection queries return the name in their
// first result column.
type Dialect struct {
	Name        string
	Driver      string
	PromptName  string
	DefaultPort int
	TablesQuery string
	buildDSN    func(cfg config.DatabaseConfig, port int) string
	columnsSQL  func(table string) (string, []any)
}

func (d Dialect) DSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port <= 0 {
		port = d.DefaultPort
	}
	return d.buildDSN(cfg, port)
}

func (d Dialect) ColumnsQuery(table string) (string, []any) {
	return d.columnsSQL(table)
}

var dialects = map[string]Dialect{
	"mysql": {
		Name:        "mysql",
		Driver:      "mysql",
		PromptName:  "MySQL",
		DefaultPort: 3306,
		TablesQuery: "SHOW TABLES",
		buildDSN: func(cfg config.DatabaseConfig, port int) string {
			mc := mysql.NewConfig()
			mc.User = cfg.User
			mc.Passwd = cfg.Password
			mc.Net = "tcp"
			mc.Addr = hostPort(cfg.Host, port)
			mc.DBName = cfg.Name
			mc.ParseTime = true
			mc.Timeout = cfg.ConnectTimeout
			return mc.FormatDSN()
		},
		columnsSQL: func(table string) (string, []any) {
			return "SHOW COLUMNS FROM " + quoteBacktick(table), nil
		},
	},
	"postgres": {
		Name:        "postgres",
		Driver:      "pgx",
		PromptName:  "PostgreSQL",
		DefaultPort: 5432,
		TablesQuery: `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		buildDSN: func(cfg config.DatabaseConfig, port int) string {
			u := &url.URL{
				Scheme: "postgres",
				User:   url.UserPassword(cfg.User, cfg.Password),
				Host:   hostPort(cfg.Host, port),
				Path:   "/" + cfg.Name,
			}
			q := url.Values{}
			if secs := int(cfg.ConnectTimeout.Seconds()); secs > 0 {
				q.Set("connect_timeout", strconv.Itoa(secs))
			}
			u.RawQuery = q.Encode()
			return u.String()
		},
		columnsSQL: func(table string) (string, []any) {
			return `
SELECT column_name
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`, []any{table}
		},
	},
	"sqlserver": {
		Name:        "sqlserver",
		Driver:      "sqlserver",
		PromptName:  "Microsoft SQL Server (T-SQL)",
		DefaultPort: 1433,
		TablesQuery: `
SELECT TABLE_NAME
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`,
		buildDSN: func(cfg config.DatabaseConfig, port int) string {
			u := &url.URL{
				Scheme: "sqlserver",
				User:   url.UserPassword(cfg.User, cfg.Password),
				Host:   hostPort(cfg.Host, port),
			}
			q := url.Values{}
			q.Set("database", cfg.Name)
			q.Set("encrypt", "disable")
			if secs := int(cfg.ConnectTimeout.Seconds()); secs > 0 {
				q.Set("dial timeout", strconv.Itoa(secs))
			}
			u.RawQuery = q.Encode()
			return u.String()
		},
		columnsSQL: func(table string) (string, []any) {
			return `
SELECT COLUMN_NAME
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_NAME = @p1
ORDER BY ORDINAL_POSITION`, []any{table}
		},
	},
	"hana": {
		Name:        "hana",
		Driver:      "hdb",
		PromptName:  "SAP HANA",
		DefaultPort: 30015,
		TablesQuery: `
SELECT TABLE_NAME
FROM SYS.TABLES
WHERE SCHEMA_NAME = CURRENT_SCHEMA
ORDER BY TABLE_NAME`,
		buildDSN: func(cfg config.DatabaseConfig, port int) string {
			u := &url.URL{
				Scheme: "hdb",
				User:   url.UserPassword(cfg.User, cfg.Password),
				Host:   hostPort(cfg.Host, port),
			}
			q := url.Values{}
			if cfg.Name != "" {
				q.Set("databaseName", cfg.Name)
			}
			if cfg.ConnectTimeout > 0 {
				q.Set("timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
			}
			u.RawQuery = q.Encode()
			return u.String()
		},
		columnsSQL: func(table string) (string, []any) {
			return `
SELECT COLUMN_NAME
FROM SYS.TABLE_COLUMNS
WHERE SCHEMA_NAME = CURRENT_SCHEMA AND TABLE_NAME = ?
ORDER BY POSITION`, []any{table}
		},
	},
	"duckdb": {
		Name:       "duckdb",
		Driver:     "duckdb",
		PromptName: "DuckDB (PostgreSQL-like syntax)",
		TablesQuery: `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		buildDSN: func(cfg config.DatabaseConfig, _ int) string {
			return cfg.Name
		},
		columnsSQL: func(table string) (string, []any) {
			return `
SELECT column_name
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = ?
ORDER BY ordinal_position`, []any{table}
		},
	},
	"sqlite": {
		Name:        "sqlite",
		Driver:      "sqlite3",
		PromptName:  "SQLite",
		TablesQuery: `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		buildDSN: func(cfg config.DatabaseConfig, _ int) string {
			if cfg.Name == "" {
				return ":memory:"
			}
			return cfg.Name
		},
		columnsSQL: func(table string) (string, []any) {
			return `SELECT name FROM pragma_table_info(?) ORDER BY cid`, []any{table}
		},
	},
}

func LookupDialect(name string) (Dialect, error) {
	dialect, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported database driver %q (supported: %s)", name, strings.Join(DialectNames(), ", "))
	}
	return dialect, nil
}

func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func hostPort(host string, port int) string {
	if host == "" {
		host = "localhost"
	}
	if port <= 0 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func quoteBacktick(value string) string {
	return "`" + strings.ReplaceAll(value, "`", "``") + "`"
}
