package schema

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/querylens/querylens/internal/database"
)

func TestIntrospectMySQLSchema(t *testing.T) {
	db, mock := newSQLMock(t)
	dialect := mustDialect(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta("SHOW TABLES")).
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_sales"}).AddRow([]byte("customers")).AddRow("orders"))
	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `customers`")).
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
			AddRow("id", "int", "NO", "PRI", nil, "auto_increment").
			AddRow("name", "varchar(64)", "YES", "", nil, ""))
	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `orders`")).
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
			AddRow("id", "int", "NO", "PRI", nil, "").
			AddRow("customer_id", "int", "NO", "", nil, "").
			AddRow("total", "decimal(10,2)", "NO", "", nil, ""))
	mock.ExpectClose()

	got := NewIntrospector(staticOpener(db), dialect, nil).Introspect(context.Background())

	if len(got) != 2 {
		t.Fatalf("tables = %#v", got)
	}
	if cols := got["customers"]; len(cols) != 2 || cols[0] != "id" || cols[1] != "name" {
		t.Fatalf("customers = %#v", cols)
	}
	if cols := got["orders"]; len(cols) != 3 || cols[2] != "total" {
		t.Fatalf("orders = %#v", cols)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectPostgresPassesTableName(t *testing.T) {
	db, mock := newSQLMock(t)
	dialect := mustDialect(t, "postgres")

	mock.ExpectQuery(regexp.QuoteMeta(dialect.TablesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("invoices"))
	columnsQuery, _ := dialect.ColumnsQuery("invoices")
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WithArgs("invoices").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("amount"))
	mock.ExpectClose()

	got := NewIntrospector(staticOpener(db), dialect, nil).Introspect(context.Background())
	if cols := got["invoices"]; len(cols) != 2 || cols[1] != "amount" {
		t.Fatalf("invoices = %#v", got)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectReturnsEmptyMapWhenOpenFails(t *testing.T) {
	open := func(context.Context) (*sql.DB, error) { return nil, errors.New("access denied") }
	got := NewIntrospector(open, mustDialect(t, "mysql"), nil).Introspect(context.Background())
	if got == nil || len(got) != 0 {
		t.Fatalf("Introspect() = %#v, want empty non-nil map", got)
	}
}

func TestIntrospectReturnsEmptyMapWhenColumnQueryFails(t *testing.T) {
	db, mock := newSQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SHOW TABLES")).
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_sales"}).AddRow("orders"))
	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `orders`")).
		WillReturnError(errors.New("lost connection"))
	mock.ExpectClose()

	got := NewIntrospector(staticOpener(db), mustDialect(t, "mysql"), nil).Introspect(context.Background())
	if len(got) != 0 {
		t.Fatalf("Introspect() = %#v, want empty", got)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectEmptyDatabase(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SHOW TABLES")).
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_sales"}))
	mock.ExpectClose()

	got := NewIntrospector(staticOpener(db), mustDialect(t, "mysql"), nil).Introspect(context.Background())
	if got == nil || len(got) != 0 {
		t.Fatalf("Introspect() = %#v", got)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func staticOpener(db *sql.DB) database.OpenFunc {
	return func(context.Context) (*sql.DB, error) { return db, nil }
}

func mustDialect(t *testing.T, name string) database.Dialect {
	t.Helper()
	dialect, err := database.LookupDialect(name)
	if err != nil {
		t.Fatalf("LookupDialect(%q) error = %v", name, err)
	}
	return dialect
}
