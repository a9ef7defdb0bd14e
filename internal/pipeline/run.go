// Package pipeline provides the high-level orchestration of one question: context
// retrieval, query generation and repair, then summary and chart.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/askdb/internal/chart"
	"github.com/jonathan/askdb/internal/metrics"
	"github.com/jonathan/askdb/internal/pipeline/steps"
	"github.com/jonathan/askdb/internal/prompts"
	"github.com/jonathan/askdb/internal/querying"
	"github.com/jonathan/askdb/internal/repair"
	"github.com/jonathan/askdb/internal/summary"
	"github.com/jonathan/askdb/internal/types"
)

// Run results recorded in metrics
const (
	resultSuccess      = "success"
	resultExhausted    = "exhausted"
	resultError        = "error"
	resultSummaryError = "summary_error"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Retriever finds the corpus entries relevant to a question
type Retriever interface {
	RetrieveContext(ctx context.Context, question string) (types.RetrievedContext, error)
}

// ContextStore resolves identifiers to reference text, dropping unknown ones
type ContextStore interface {
	Lookup(ids []string) []string
}

// Deps holds the collaborators of a Pipeline
type Deps struct {
	Retriever  Retriever
	Examples   ContextStore
	Schema     ContextStore
	Query      *querying.Loop
	Summarizer *summary.Summarizer
	Charts     *chart.Loop
	Logger     *slog.Logger
}

// Options holds per-pipeline settings
type Options struct {
	Dialect     prompts.Dialect
	SummaryHint string
	SkipSummary bool
	SkipChart   bool
	OnProgress  ProgressCallback
}

// Pipeline answers questions one at a time
type Pipeline struct {
	deps Deps
	opts Options

	mu sync.Mutex
}

// New creates a Pipeline
func New(deps Deps, opts Options) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Dialect == "" {
		opts.Dialect = prompts.DialectTSQL
	}
	return &Pipeline{deps: deps, opts: opts}
}

// FailureMessage turns a query loop exhaustion into the message shown to the user
func FailureMessage(err *repair.ExhaustedError) string {
	msg := fmt.Sprintf("Sorry, I could not produce a working query for this question after %d attempts.", err.Attempts)
	if err.Last != nil {
		msg += " Last error: " + err.Last.Message
	}
	return msg
}

func (cb ProgressCallback) emit(step, message string, content any) {
	if cb == nil {
		return
	}
	cb(ProgressEvent{
		Step:     step,
		Category: steps.StepRegistry[step].Category,
		Message:  message,
		Content:  content,
	})
}

// Run answers one question. Runs are serialized.
//
// An exhausted query loop is not an error: the answer carries Failure. A failed
// summary returns the answer (SQL, rows, chart) together with the error. A failed
// chart only sets Answer.Chart.Err.
func (p *Pipeline) Run(ctx context.Context, question types.Question) (*types.Answer, error) {
	return p.RunWithProgress(ctx, question, p.opts.OnProgress)
}

// RunWithProgress is Run with a per-call progress callback in place of Options.OnProgress
func (p *Pipeline) RunWithProgress(ctx context.Context, question types.Question, onProgress ProgressCallback) (*types.Answer, error) {
	if err := question.Validate(); err != nil {
		return nil, fmt.Errorf("invalid question: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	defer func() { metrics.PipelineDuration.Observe(time.Since(start).Seconds()) }()

	log := p.deps.Logger.With("user", question.UserName)
	tracker := steps.NewTracker()
	answer := &types.Answer{Question: question}

	// Retrieval
	rc, err := p.deps.Retriever.RetrieveContext(ctx, question.Text)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues(resultError).Inc()
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	answer.Context = rc
	tracker.Complete(steps.Retrieve)
	onProgress.emit(steps.Retrieve, "retrieved context", rc)

	// Prompt
	if err := tracker.ValidateDependencies(steps.Prompt); err != nil {
		return nil, err
	}
	schemaTexts := p.deps.Schema.Lookup(rc.SchemaIDs)
	exampleTexts := p.deps.Examples.Lookup(rc.ExampleIDs)
	prompt := prompts.BuildQueryPrompt(question.Text, schemaTexts, exampleTexts, p.opts.Dialect)
	tables := prompts.TablesFromSchema(schemaTexts)
	tracker.Complete(steps.Prompt)
	onProgress.emit(steps.Prompt, "built query prompt", map[string]any{"schema": len(schemaTexts), "examples": len(exampleTexts), "tables": tables})

	// Query loop
	if err := tracker.ValidateDependencies(steps.Query); err != nil {
		return nil, err
	}
	out, err := p.deps.Query.Run(ctx, prompt, tables)
	answer.Attempts = out.Attempts
	if err != nil {
		var exhausted *repair.ExhaustedError
		if errors.As(err, &exhausted) {
			answer.Failure = FailureMessage(exhausted)
			log.Warn("query loop exhausted", "attempts", exhausted.Attempts, "error", exhausted)
			metrics.PipelineRunsTotal.WithLabelValues(resultExhausted).Inc()
			onProgress.emit(steps.Query, "query attempts exhausted", answer.Failure)
			return answer, nil
		}
		metrics.PipelineRunsTotal.WithLabelValues(resultError).Inc()
		return answer, fmt.Errorf("query generation failed: %w", err)
	}
	answer.SQL = out.SQL
	answer.Result = out.Result
	tracker.Complete(steps.Query)
	onProgress.emit(steps.Query, fmt.Sprintf("query succeeded after %d attempt(s)", out.Attempts), out.SQL)

	// Summary (side A)
	var summaryErr error
	if !p.opts.SkipSummary && p.deps.Summarizer != nil {
		if err := tracker.ValidateDependencies(steps.Summary); err != nil {
			return answer, err
		}
		text, err := p.deps.Summarizer.Summarize(ctx, question.Text, out.Result, p.opts.SummaryHint)
		if err != nil {
			summaryErr = err
			log.Error("summary failed", "error", err)
		} else {
			answer.Summary = text
			tracker.Complete(steps.Summary)
			onProgress.emit(steps.Summary, "summary generated", text)
		}
	}

	// Chart (side B)
	if !p.opts.SkipChart && p.deps.Charts != nil {
		if err := tracker.ValidateDependencies(steps.Chart); err != nil {
			return answer, err
		}
		artifact, err := p.deps.Charts.Run(ctx, question.Text, out.SQL, strings.Join(schemaTexts, "\n\n"), out.Result)
		answer.Chart = artifact
		if err != nil {
			log.Warn("chart failed", "attempts", artifact.Attempts, "error", err)
			onProgress.emit(steps.Chart, "chart failed", artifact.Err)
		} else {
			tracker.Complete(steps.Chart)
			onProgress.emit(steps.Chart, fmt.Sprintf("chart rendered after %d attempt(s)", artifact.Attempts), nil)
		}
	}

	if summaryErr != nil {
		metrics.PipelineRunsTotal.WithLabelValues(resultSummaryError).Inc()
		return answer, fmt.Errorf("summarization failed: %w", summaryErr)
	}
	metrics.PipelineRunsTotal.WithLabelValues(resultSuccess).Inc()
	return answer, nil
}
