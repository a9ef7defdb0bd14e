package chart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonathan/askdb/internal/llm"
	"github.com/jonathan/askdb/internal/prompts"
	"github.com/jonathan/askdb/internal/repair"
	"github.com/jonathan/askdb/internal/types"
)

// LoopName labels logs and metrics of the chart loop
const LoopName = "chart"

// ExtractCode returns the first fenced code block of a response, or the whole
// response when it has none
func ExtractCode(raw string) string {
	return llm.ExtractCodeBlock(raw, "go", "golang", "python", "py")
}

// Loop is the visualization reflection loop
type Loop struct {
	client      llm.Client
	sandbox     *Sandbox
	maxAttempts int
	logger      *slog.Logger
}

// NewLoop creates a chart loop. A nil sandbox uses NewSandbox.
func NewLoop(client llm.Client, sandbox *Sandbox, logger *slog.Logger) *Loop {
	if sandbox == nil {
		sandbox = NewSandbox()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{client: client, sandbox: sandbox, maxAttempts: repair.DefaultMaxAttempts, logger: logger}
}

// WithMaxAttempts overrides the attempt budget
func (l *Loop) WithMaxAttempts(n int) *Loop {
	l.maxAttempts = n
	return l
}

// Run asks for chart code and executes it, repairing from sandbox faults. The
// returned artifact is never nil: on failure it carries the last code and the
// error text, and the error is returned as well.
func (l *Loop) Run(ctx context.Context, question, sql, schemaText string, result *types.ResultSet) (*types.ChartArtifact, error) {
	frame := NewFrame(result)
	columns := frame.Columns()
	var lastCode string

	loop := &repair.Loop[string]{
		Name:        LoopName,
		MaxAttempts: l.maxAttempts,
		Logger:      l.logger,
		Generate: func(ctx context.Context, prompt string) (string, error) {
			return l.client.GenerateContent(ctx, prompt, llm.TierStandard)
		},
		Attempt: func(ctx context.Context, raw string) (string, error) {
			lastCode = ExtractCode(raw)
			html, err := l.sandbox.Render(ctx, lastCode, frame)
			var sbErr *SandboxError
			if errors.As(err, &sbErr) {
				return "", &repair.Fault{Kind: repair.FaultVisualization, Message: sbErr.Message, Cause: sbErr}
			}
			return html, err
		},
		Repair: func(fault *repair.Fault, _ repair.State) string {
			return prompts.BuildChartReflectionPrompt(question, fault.Message, columns)
		},
	}

	html, state, err := loop.Run(ctx, prompts.BuildChartPrompt(sql, question, schemaText, columns))
	artifact := &types.ChartArtifact{Code: lastCode, Attempts: state.Attempts}
	if err != nil {
		artifact.Err = err.Error()
		return artifact, err
	}
	artifact.HTML = html
	return artifact, nil
}
