package querying

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/askdb/internal/llm"
	"github.com/jonathan/askdb/internal/prompts"
	"github.com/jonathan/askdb/internal/repair"
	"github.com/jonathan/askdb/internal/types"
)

type fakeClient struct {
	responses []string
	prompts   []string
	tiers     []llm.ModelTier
	err       error
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.tiers = append(f.tiers, tier)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next, nil
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateContent(ctx, prompt, tier)
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeClient) Close() error                  { return nil }

type fakeExecutor struct {
	outcomes map[string]types.ExecutionOutcome
	queries  []string
}

func (f *fakeExecutor) Execute(_ context.Context, sql string) types.ExecutionOutcome {
	f.queries = append(f.queries, sql)
	if out, ok := f.outcomes[sql]; ok {
		return out
	}
	return types.ExecutionError("unexpected query: " + sql)
}

func (f *fakeExecutor) Close() error { return nil }

var salesRows = &types.ResultSet{Columns: []string{"total_sales"}, Rows: [][]any{{1234.5}}}

const (
	goodSQL        = "SELECT sum(soh.TotalDue) AS total_sales\nFROM SalesOrderHeader soh\nWHERE soh.OrderDate >= dateadd(year, -1, getdate())"
	goodResponse   = `{"sql": "select sum(soh.TotalDue) as total_sales from SalesOrderHeader soh where soh.OrderDate >= dateadd(year, -1, getdate())"}`
	missingTable   = "Invalid object name 'Orders'."
	ordersSQL      = "SELECT *\nFROM Orders"
	ordersResponse = `{"sql": "SELECT * FROM Orders"}`
)

func TestLoop_DoneOnFirstAttempt(t *testing.T) {
	exec := &fakeExecutor{outcomes: map[string]types.ExecutionOutcome{goodSQL: types.Rows(salesRows)}}
	client := &fakeClient{}

	out, err := New(client, exec).RunFrom(context.Background(), "prompt", nil, goodResponse)
	require.NoError(t, err)
	assert.Equal(t, goodSQL, out.SQL)
	assert.Equal(t, salesRows, out.Result)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, client.prompts)
	assert.Contains(t, out.SQL, "dateadd")
	assert.Contains(t, out.SQL, "soh")
}

func TestLoop_ExecutionFaultFeedsRepairPrompt(t *testing.T) {
	exec := &fakeExecutor{outcomes: map[string]types.ExecutionOutcome{
		ordersSQL: types.ExecutionError(missingTable),
		goodSQL:   types.Rows(salesRows),
	}}
	client := &fakeClient{responses: []string{goodResponse}}
	original := prompts.BuildQueryPrompt("Show total sales this year", []string{"Table: SalesOrderHeader"}, nil, prompts.DialectTSQL)

	out, err := New(client, exec).RunFrom(context.Background(), original, []string{"SalesOrderHeader"}, ordersResponse)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, goodSQL, out.SQL)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], original)
	assert.Contains(t, client.prompts[0], missingTable)
	assert.Contains(t, client.prompts[0], "'SalesOrderHeader'")
	assert.Equal(t, []llm.ModelTier{llm.TierAdvanced}, client.tiers)
}

func TestLoop_ProseThreeTimesExhausts(t *testing.T) {
	client := &fakeClient{responses: []string{"I cannot help", "Still prose"}}
	exec := &fakeExecutor{}

	_, err := New(client, exec).RunFrom(context.Background(), "p", nil, "Sure! Here is the answer.")
	require.Error(t, err)

	var exhausted *repair.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, repair.FaultMalformed, exhausted.Last.Kind)
	assert.Equal(t, "no valid JSON content found", exhausted.Last.Message)
	assert.Len(t, client.prompts, 2)
	assert.Empty(t, exec.queries)
}

func TestLoop_EmptyResultIsAFault(t *testing.T) {
	empty := &types.ResultSet{Columns: []string{"total_sales"}, Rows: [][]any{}}
	exec := &fakeExecutor{outcomes: map[string]types.ExecutionOutcome{
		ordersSQL: types.Rows(empty),
		goodSQL:   types.Rows(salesRows),
	}}
	client := &fakeClient{responses: []string{goodResponse}}

	out, err := New(client, exec).RunFrom(context.Background(), "p", nil, ordersResponse)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)
	assert.Contains(t, client.prompts[0], EmptyResultFault)
}

func TestLoop_SemanticRejectionIsRetried(t *testing.T) {
	exec := &fakeExecutor{outcomes: map[string]types.ExecutionOutcome{goodSQL: types.Rows(salesRows)}}
	client := &fakeClient{responses: []string{goodResponse}}

	out, err := New(client, exec).RunFrom(context.Background(), "p", nil, `{"error": "no table holds weather data"}`)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)
	assert.Contains(t, client.prompts[0], "no table holds weather data")
}

func TestLoop_WrongShapeIsRetried(t *testing.T) {
	client := &fakeClient{responses: []string{`{"query": "x"}`, `{"answer": 1}`}}

	_, err := New(client, &fakeExecutor{}).RunFrom(context.Background(), "p", nil, `{"foo": "bar"}`)

	var exhausted *repair.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "response format incorrect", exhausted.Last.Message)
}

func TestLoop_RunGeneratesFirstResponse(t *testing.T) {
	exec := &fakeExecutor{outcomes: map[string]types.ExecutionOutcome{goodSQL: types.Rows(salesRows)}}
	client := &fakeClient{responses: []string{goodResponse}}

	out, err := New(client, exec).Run(context.Background(), "the prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, []string{"the prompt"}, client.prompts)
	assert.Equal(t, []llm.ModelTier{llm.TierStandard}, client.tiers)
}

func TestLoop_GenerationFailureIsTerminal(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}

	_, err := New(client, &fakeExecutor{}).RunFrom(context.Background(), "p", nil, "prose")
	require.Error(t, err)

	var genErr *repair.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, 2, genErr.Attempt)
	assert.Len(t, client.prompts, 1)
}

func TestLoop_MaxAttemptsOption(t *testing.T) {
	client := &fakeClient{responses: []string{"a", "b", "c", "d"}}

	_, err := New(client, &fakeExecutor{}, WithMaxAttempts(5)).RunFrom(context.Background(), "p", nil, "prose")

	var exhausted *repair.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 5, exhausted.Attempts)
}

func TestLoop_DialectInRepairPrompt(t *testing.T) {
	client := &fakeClient{responses: []string{goodResponse}}
	exec := &fakeExecutor{outcomes: map[string]types.ExecutionOutcome{goodSQL: types.Rows(salesRows)}}

	_, err := New(client, exec, WithDialect(prompts.DialectPostgres)).RunFrom(context.Background(), "p", nil, "prose")
	require.NoError(t, err)
	assert.True(t, strings.Contains(client.prompts[0], "PostgreSQL"))
}
