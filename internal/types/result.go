package types

import "fmt"

// ResultSet is a tabular query result. Rows hold driver values normalized to
// strings, int64, float64, bool, time.Time, []byte or nil.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of rows
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether the result has no rows
func (r *ResultSet) Empty() bool {
	return r.Len() == 0
}

// ColumnIndex returns the index of a column by name, or -1
func (r *ResultSet) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// StringRows renders every cell with fmt, nil as an empty string
func (r *ResultSet) StringRows() [][]string {
	out := make([][]string, 0, r.Len())
	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				if b, ok := v.([]byte); ok {
					cells[i] = string(b)
				} else {
					cells[i] = fmt.Sprint(v)
				}
			}
		}
		out = append(out, cells)
	}
	return out
}

// ExecutionOutcome is either a result set (possibly empty) or an engine error message.
type ExecutionOutcome struct {
	Result *ResultSet `json:"result,omitempty"`
	Err    string     `json:"error,omitempty"`
}

// Rows builds a successful outcome
func Rows(result *ResultSet) ExecutionOutcome {
	return ExecutionOutcome{Result: result}
}

// ExecutionError builds a failed outcome
func ExecutionError(message string) ExecutionOutcome {
	return ExecutionOutcome{Err: message}
}

// Failed reports whether the engine reported an error
func (o ExecutionOutcome) Failed() bool {
	return o.Result == nil
}
