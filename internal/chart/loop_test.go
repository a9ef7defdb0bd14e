package chart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/askdb/internal/llm"
	"github.com/jonathan/askdb/internal/repair"
)

type fakeClient struct {
	responses []string
	prompts   []string
	err       error
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
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

func fenced(code string) string {
	return "Here is the chart:\n```go\n" + code + "\n```\n"
}

func TestLoop_RendersFirstAttempt(t *testing.T) {
	client := &fakeClient{responses: []string{fenced(barCode)}}

	artifact, err := NewLoop(client, nil, nil).Run(context.Background(), "Revenue by product?", "SELECT ...", "Table: Product", revenue)
	require.NoError(t, err)
	assert.True(t, artifact.Rendered())
	assert.Equal(t, barCode, artifact.Code)
	assert.Equal(t, 1, artifact.Attempts)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "columns: name, revenue")
	assert.Contains(t, client.prompts[0], "Given the following SQL query:\nSELECT ...")
}

func TestLoop_RepairsFromFault(t *testing.T) {
	client := &fakeClient{responses: []string{
		fenced(`render(chart.NewBar("x").AddSeries("s", results_df.Floats("profit")))`),
		barCode,
	}}

	artifact, err := NewLoop(client, nil, nil).Run(context.Background(), "Revenue by product?", "SELECT 1", "", revenue)
	require.NoError(t, err)
	assert.True(t, artifact.Rendered())
	assert.Equal(t, 2, artifact.Attempts)

	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[1], `unknown column "profit"`)
	assert.Contains(t, client.prompts[1], "Question: Revenue by product?")
}

func TestLoop_ExhaustionKeepsLastCode(t *testing.T) {
	client := &fakeClient{responses: []string{"import os", "os.Exit(1)", "```python\nplt.show()\n```"}}

	artifact, err := NewLoop(client, nil, nil).Run(context.Background(), "q", "SELECT 1", "", revenue)
	require.Error(t, err)

	var exhausted *repair.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, repair.FaultVisualization, exhausted.Last.Kind)

	require.NotNil(t, artifact)
	assert.False(t, artifact.Rendered())
	assert.Equal(t, "plt.show()", artifact.Code)
	assert.Equal(t, 3, artifact.Attempts)
	assert.Equal(t, err.Error(), artifact.Err)
}

func TestLoop_GenerationFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("quota exceeded")}

	artifact, err := NewLoop(client, nil, nil).Run(context.Background(), "q", "SELECT 1", "", revenue)
	require.Error(t, err)

	var genErr *repair.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Contains(t, artifact.Err, "quota exceeded")
}

func TestExtractCode(t *testing.T) {
	assert.Equal(t, "render(x)", ExtractCode("```go\nrender(x)\n```"))
	assert.Equal(t, "render(x)", ExtractCode("```python\nrender(x)\n```"))
	assert.Equal(t, "render(x)", ExtractCode("```\nrender(x)\n```"))
	assert.Equal(t, "render(x)", ExtractCode("  render(x)  "))
}
