// Package sqlexec runs generated queries against the relational engine. Every query
// gets its own connection, released on every exit path once acquired.
package sqlexec

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jonathan/askdb/internal/types"
)

// Driver names accepted by Open
const (
	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DriverClickHouse = "clickhouse"
)

// Executor runs one query and reports either rows or the engine's error message.
// It never returns a Go error: every failure is an ExecutionOutcome.
type Executor interface {
	Execute(ctx context.Context, sql string) types.ExecutionOutcome
	Close() error
}

// ConnectError is reported when no connection could be acquired for a query
type ConnectError struct {
	Driver string
	Cause  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Driver, e.Cause)
}

func (e *ConnectError) Unwrap() error {
	return e.Cause
}

// Config selects and configures the engine
type Config struct {
	Driver string
	DSN    string
}

// Open connects to the configured engine
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Executor, error) {
	switch cfg.Driver {
	case DriverPostgres, "pgx", "":
		return NewPoolExecutor(ctx, cfg.DSN, logger)
	case DriverSQLite:
		return OpenSQLite(cfg.DSN, logger)
	case DriverClickHouse:
		return OpenClickHouse(cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// normalizeValue converts driver-specific values into the plain types ResultSet holds
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil, string, int64, float64, bool, time.Time:
		return x
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return normalizeValue(uint64(x))
	case uint64:
		if x > math.MaxInt64 {
			return strconv.FormatUint(x, 10)
		}
		return int64(x)
	case float32:
		return float64(x)
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.String()
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
