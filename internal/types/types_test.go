package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_Validate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{"valid", Question{Text: "Show total sales this year", UserName: "ana"}, false},
		{"no user", Question{Text: "How many customers?"}, false},
		{"blank text", Question{Text: "   ", UserName: "ana"}, true},
		{"too long", Question{Text: strings.Repeat("x", 2001)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuestion_ValidateTrims(t *testing.T) {
	q := Question{Text: "  top products \n"}
	require.NoError(t, q.Validate())
	assert.Equal(t, "top products", q.Text)
}

func TestParsedResult_Constructors(t *testing.T) {
	assert.True(t, SQLCandidate("SELECT 1").IsSQL())
	assert.Equal(t, ParseError, ErrorExplanation("no table").Kind)
	m := Malformed("no valid JSON content found")
	assert.Equal(t, ParseMalformed, m.Kind)
	assert.Equal(t, "no valid JSON content found", m.Text)
	assert.False(t, m.IsSQL())
}

func TestResultSet_Helpers(t *testing.T) {
	var nilSet *ResultSet
	assert.Equal(t, 0, nilSet.Len())
	assert.True(t, nilSet.Empty())

	rs := &ResultSet{
		Columns: []string{"name", "total", "note"},
		Rows: [][]any{
			{"Bikes", int64(12), nil},
			{[]byte("Helmets"), 3.5, true},
		},
	}
	assert.Equal(t, 2, rs.Len())
	assert.False(t, rs.Empty())
	assert.Equal(t, 1, rs.ColumnIndex("total"))
	assert.Equal(t, -1, rs.ColumnIndex("missing"))
	assert.Equal(t, [][]string{
		{"Bikes", "12", ""},
		{"Helmets", "3.5", "true"},
	}, rs.StringRows())
}

func TestExecutionOutcome(t *testing.T) {
	assert.True(t, ExecutionError("table not found").Failed())
	assert.False(t, Rows(&ResultSet{}).Failed())
}

func TestAnswerAndChart(t *testing.T) {
	var a *Answer
	assert.False(t, a.Succeeded())
	assert.True(t, (&Answer{Result: &ResultSet{}}).Succeeded())
	assert.False(t, (&Answer{Result: &ResultSet{}, Failure: "exhausted"}).Succeeded())

	var c *ChartArtifact
	assert.False(t, c.Rendered())
	assert.True(t, (&ChartArtifact{HTML: "<div/>"}).Rendered())
	assert.False(t, (&ChartArtifact{HTML: "<div/>", Err: "boom"}).Rendered())
}
