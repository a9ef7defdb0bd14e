package chart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/askdb/internal/types"
)

// Frame is the read-only view of a query result handed to chart code
type Frame struct {
	rs *types.ResultSet
}

// NewFrame wraps a result set
func NewFrame(rs *types.ResultSet) *Frame {
	if rs == nil {
		rs = &types.ResultSet{}
	}
	return &Frame{rs: rs}
}

// Columns returns the column names
func (f *Frame) Columns() []string {
	return append([]string(nil), f.rs.Columns...)
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return f.rs.Len()
}

func (f *Frame) column(name string) int {
	idx := f.rs.ColumnIndex(name)
	if idx < 0 {
		panic(fmt.Sprintf("unknown column %q, available columns: %s", name, strings.Join(f.rs.Columns, ", ")))
	}
	return idx
}

// Strings returns a column as text. Nulls become empty strings.
func (f *Frame) Strings(column string) []string {
	idx := f.column(column)
	rows := f.rs.StringRows()
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row[idx]
	}
	return out
}

// Floats returns a numeric column. Nulls become 0; any other non-numeric value panics.
func (f *Frame) Floats(column string) []float64 {
	idx := f.column(column)
	out := make([]float64, len(f.rs.Rows))
	for i, row := range f.rs.Rows {
		v, err := toFloat(row[idx])
		if err != nil {
			panic(fmt.Sprintf("column %q row %d: %v", column, i, err))
		}
		out[i] = v
	}
	return out
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}
