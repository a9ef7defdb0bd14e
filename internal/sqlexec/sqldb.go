package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "modernc.org/sqlite"

	"github.com/jonathan/askdb/internal/types"
)

// SQLExecutor runs queries through database/sql. It serves SQLite and ClickHouse.
type SQLExecutor struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewSQLExecutor wraps an open database handle
func NewSQLExecutor(db *sql.DB, driver string, logger *slog.Logger) *SQLExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLExecutor{db: db, driver: driver, logger: logger}
}

// OpenSQLite opens a SQLite database file
func OpenSQLite(path string, logger *slog.Logger) (*SQLExecutor, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", path, err)
	}
	return NewSQLExecutor(db, DriverSQLite, logger), nil
}

// OpenClickHouse opens a ClickHouse database from a clickhouse:// DSN
func OpenClickHouse(dsn string, logger *slog.Logger) (*SQLExecutor, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid clickhouse DSN: %w", err)
	}
	return NewSQLExecutor(clickhouse.OpenDB(opts), DriverClickHouse, logger), nil
}

// Execute takes a dedicated connection from the pool, runs sql and returns the
// connection. A failed acquisition has nothing to return.
func (s *SQLExecutor) Execute(ctx context.Context, query string) types.ExecutionOutcome {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		cerr := &ConnectError{Driver: s.driver, Cause: err}
		s.logger.Error("connect failed", "error", cerr)
		return types.ExecutionError(cerr.Error())
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return types.ExecutionError(err.Error())
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return types.ExecutionError(err.Error())
	}
	result := &types.ResultSet{Columns: columns, Rows: [][]any{}}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return types.ExecutionError(err.Error())
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return types.ExecutionError(err.Error())
	}
	return types.Rows(result)
}

// Stats exposes pool statistics
func (s *SQLExecutor) Stats() sql.DBStats {
	return s.db.Stats()
}

// Close closes the database handle
func (s *SQLExecutor) Close() error {
	return s.db.Close()
}
