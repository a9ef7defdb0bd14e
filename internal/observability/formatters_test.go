package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonathan/askdb/internal/pipeline"
	"github.com/jonathan/askdb/internal/pipeline/steps"
	"github.com/jonathan/askdb/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintRetrievedContext(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRetrievedContext(&types.RetrievedContext{
		SchemaIDs:  []string{"sales", "regions"},
		ExampleIDs: []string{"ex-7"},
	})
	output := buf.String()

	assert.Contains(t, output, "RETRIEVED CONTEXT")
	assert.Contains(t, output, "• sales")
	assert.Contains(t, output, "• regions")
	assert.Contains(t, output, "• ex-7")
}

func TestPrintRetrievedContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRetrievedContext(&types.RetrievedContext{})

	assert.Equal(t, 2, strings.Count(buf.String(), "(none)"))
}

func TestPrintRetrievedContext_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRetrievedContext(nil)

	assert.Empty(t, buf.String())
}

func TestPrintQuery(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintQuery("query succeeded after 2 attempt(s)", "select a from t where b = 1")
	output := buf.String()

	assert.Contains(t, output, "QUERY SUCCEEDED AFTER 2 ATTEMPT(S)")
	assert.Contains(t, output, "SELECT")
	assert.Contains(t, output, "WHERE")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 200))

	assert.Contains(t, buf.String(), "...")
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
}

func TestPrintEvent(t *testing.T) {
	t.Run("retrieved context", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf).PrintEvent(pipeline.ProgressEvent{
			Step:    steps.Retrieve,
			Message: "retrieved context",
			Content: types.RetrievedContext{SchemaIDs: []string{"orders"}},
		})
		assert.Contains(t, buf.String(), "RETRIEVED CONTEXT")
		assert.Contains(t, buf.String(), "orders")
	})

	t.Run("summary", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf).PrintEvent(pipeline.ProgressEvent{
			Step:    steps.Summary,
			Message: "summary generated",
			Content: "Revenue grew in every region.",
		})
		assert.Contains(t, buf.String(), "SUMMARY GENERATED")
		assert.Contains(t, buf.String(), "Revenue grew in every region.")
	})

	t.Run("exhaustion is a plain line", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf).PrintEvent(pipeline.ProgressEvent{
			Step:    steps.Query,
			Message: "query attempts exhausted",
			Content: "Sorry",
		})
		assert.Equal(t, "[query_loop] query attempts exhausted\n", buf.String())
	})

	t.Run("other events", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf).PrintEvent(pipeline.ProgressEvent{Step: steps.Chart, Message: "chart failed", Content: "boom"})
		assert.Equal(t, "[chart_loop] chart failed\n", buf.String())
	})
}

func TestWrap(t *testing.T) {
	out := wrap("one two three four", 9)
	assert.Equal(t, "one two\nthree\nfour", out)
}
