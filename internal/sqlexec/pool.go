package sqlexec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/askdb/internal/types"
)

// PoolExecutor runs queries on PostgreSQL through a pgx connection pool
type PoolExecutor struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPoolExecutor creates the pool. Only a malformed URL fails here: connections
// are opened on first use, so an unreachable server surfaces as a ConnectError
// outcome of the query that needed it.
func NewPoolExecutor(ctx context.Context, databaseURL string, logger *slog.Logger) (*PoolExecutor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	return &PoolExecutor{pool: pool, logger: logger}, nil
}

// Execute acquires a connection, runs sql and releases the connection
func (p *PoolExecutor) Execute(ctx context.Context, sql string) types.ExecutionOutcome {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		cerr := &ConnectError{Driver: DriverPostgres, Cause: err}
		p.logger.Error("acquire failed", "error", cerr)
		return types.ExecutionError(cerr.Error())
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return types.ExecutionError(err.Error())
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &types.ResultSet{Columns: make([]string, len(fields)), Rows: [][]any{}}
	for i, f := range fields {
		result.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return types.ExecutionError(err.Error())
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return types.ExecutionError(err.Error())
	}
	return types.Rows(result)
}

// Close closes the pool
func (p *PoolExecutor) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
