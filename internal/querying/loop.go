// Package querying turns a query prompt into an executed SQL result, repairing the
// query from parser, model and engine feedback within a fixed attempt budget.
package querying

import (
	"context"
	"log/slog"

	"github.com/jonathan/askdb/internal/llm"
	"github.com/jonathan/askdb/internal/parsing"
	"github.com/jonathan/askdb/internal/prompts"
	"github.com/jonathan/askdb/internal/repair"
	"github.com/jonathan/askdb/internal/sqlexec"
	"github.com/jonathan/askdb/internal/types"
)

// LoopName labels logs and metrics of the query loop
const LoopName = "query"

// EmptyResultFault is the fault text used when a query runs but returns nothing
const EmptyResultFault = "query returned no rows"

// Outcome is the terminal success of the loop
type Outcome struct {
	SQL      string
	Result   *types.ResultSet
	Attempts int
}

// Loop is the query reflection loop
type Loop struct {
	client      llm.Client
	executor    sqlexec.Executor
	dialect     prompts.Dialect
	maxAttempts int
	logger      *slog.Logger
}

// Option configures a Loop
type Option func(*Loop)

// WithDialect sets the SQL dialect named in repair prompts
func WithDialect(d prompts.Dialect) Option {
	return func(l *Loop) { l.dialect = d }
}

// WithMaxAttempts overrides the attempt budget
func WithMaxAttempts(n int) Option {
	return func(l *Loop) { l.maxAttempts = n }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// New creates a query loop
func New(client llm.Client, executor sqlexec.Executor, opts ...Option) *Loop {
	l := &Loop{
		client:      client,
		executor:    executor,
		dialect:     prompts.DialectTSQL,
		maxAttempts: repair.DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run generates the first response for prompt and continues with RunFrom
func (l *Loop) Run(ctx context.Context, prompt string, tables []string) (Outcome, error) {
	raw, err := l.client.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return Outcome{Attempts: 1}, &repair.GenerationError{Loop: LoopName, Attempt: 1, Cause: err}
	}
	return l.RunFrom(ctx, prompt, tables, raw)
}

// RunFrom drives the loop from a first raw response. Every repair prompt carries the
// original prompt and the exact text of the latest fault. It returns a
// *repair.ExhaustedError when all attempts fail.
func (l *Loop) RunFrom(ctx context.Context, prompt string, tables []string, firstResponse string) (Outcome, error) {
	var sql string
	loop := &repair.Loop[*types.ResultSet]{
		Name:        LoopName,
		MaxAttempts: l.maxAttempts,
		Logger:      l.logger,
		Generate: func(ctx context.Context, p string) (string, error) {
			return l.client.GenerateContent(ctx, p, llm.TierAdvanced)
		},
		Attempt: func(ctx context.Context, raw string) (*types.ResultSet, error) {
			candidate, result, err := l.attempt(ctx, raw)
			sql = candidate
			return result, err
		},
		Repair: func(fault *repair.Fault, _ repair.State) string {
			return prompts.BuildQueryReflectionPrompt(prompt, fault.Message, tables, l.dialect)
		},
	}

	result, state, err := loop.RunFrom(ctx, firstResponse)
	if err != nil {
		return Outcome{Attempts: state.Attempts}, err
	}
	return Outcome{SQL: sql, Result: result, Attempts: state.Attempts}, nil
}

// attempt classifies one response and, for a SQL candidate, executes it
func (l *Loop) attempt(ctx context.Context, raw string) (string, *types.ResultSet, error) {
	parsed := parsing.ParseResponse(raw)
	switch parsed.Kind {
	case types.ParseMalformed:
		return "", nil, repair.NewFault(repair.FaultMalformed, parsed.Text)
	case types.ParseError:
		return "", nil, repair.NewFault(repair.FaultSemantic, parsed.Text)
	}

	l.logger.Debug("executing candidate", "sql", parsed.Text)
	out := l.executor.Execute(ctx, parsed.Text)
	if out.Failed() {
		return parsed.Text, nil, repair.NewFault(repair.FaultExecution, out.Err)
	}
	if out.Result.Empty() {
		return parsed.Text, nil, repair.NewFault(repair.FaultExecution, EmptyResultFault)
	}
	return parsed.Text, out.Result, nil
}
