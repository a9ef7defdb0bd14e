// Package repair provides the bounded reflection loop shared by query generation and
// chart generation: attempt, classify the fault, build a repair prompt, regenerate.
package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/askdb/internal/metrics"
)

// DefaultMaxAttempts is the attempt budget of every reflection loop
const DefaultMaxAttempts = 3

// State is the per-run bookkeeping of a loop. It is created at entry and discarded
// at exit; two loops never share one.
type State struct {
	Attempts  int
	Max       int
	LastError *Fault
}

// Remaining returns how many attempts are left
func (s State) Remaining() int {
	return s.Max - s.Attempts
}

// Loop drives generate -> attempt -> (done | repair -> regenerate) for at most
// MaxAttempts generation attempts.
type Loop[T any] struct {
	// Name labels logs and metrics
	Name        string
	MaxAttempts int
	// Generate calls the generation service
	Generate func(ctx context.Context, prompt string) (string, error)
	// Attempt consumes one raw response. A *Fault error is retried; any other error
	// ends the loop.
	Attempt func(ctx context.Context, raw string) (T, error)
	// Repair builds the next prompt from the fault of the previous attempt
	Repair func(fault *Fault, state State) string
	Logger *slog.Logger
}

func (l *Loop[T]) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loop[T]) maxAttempts() int {
	if l.MaxAttempts > 0 {
		return l.MaxAttempts
	}
	return DefaultMaxAttempts
}

// Run generates the first response from prompt and continues with RunFrom
func (l *Loop[T]) Run(ctx context.Context, prompt string) (T, State, error) {
	state := State{Max: l.maxAttempts()}
	var zero T

	raw, err := l.Generate(ctx, prompt)
	if err != nil {
		metrics.LoopOutcomesTotal.WithLabelValues(l.Name, metrics.OutcomeError).Inc()
		return zero, State{Attempts: 1, Max: state.Max}, &GenerationError{Loop: l.Name, Attempt: 1, Cause: err}
	}
	return l.RunFrom(ctx, raw)
}

// RunFrom starts the loop with a response already obtained for the first attempt
func (l *Loop[T]) RunFrom(ctx context.Context, raw string) (T, State, error) {
	state := State{Max: l.maxAttempts()}
	log := l.logger().With("loop", l.Name)
	var zero T

	for {
		state.Attempts++
		metrics.LoopAttemptsTotal.WithLabelValues(l.Name).Inc()

		value, err := l.Attempt(ctx, raw)
		if err == nil {
			log.Info("attempt succeeded", "attempt", state.Attempts, "max", state.Max)
			metrics.LoopOutcomesTotal.WithLabelValues(l.Name, metrics.OutcomeSuccess).Inc()
			return value, state, nil
		}

		var fault *Fault
		if !errors.As(err, &fault) {
			metrics.LoopOutcomesTotal.WithLabelValues(l.Name, metrics.OutcomeError).Inc()
			return zero, state, fmt.Errorf("%s attempt %d: %w", l.Name, state.Attempts, err)
		}

		state.LastError = fault
		metrics.LoopFaultsTotal.WithLabelValues(l.Name, string(fault.Kind)).Inc()
		log.Warn("attempt failed", "attempt", state.Attempts, "max", state.Max, "kind", fault.Kind, "error", fault.Message)

		if state.Remaining() <= 0 {
			metrics.LoopOutcomesTotal.WithLabelValues(l.Name, metrics.OutcomeExhausted).Inc()
			return zero, state, &ExhaustedError{Loop: l.Name, Attempts: state.Attempts, Last: fault}
		}

		if err := ctx.Err(); err != nil {
			metrics.LoopOutcomesTotal.WithLabelValues(l.Name, metrics.OutcomeError).Inc()
			return zero, state, err
		}

		next := l.Repair(fault, state)
		raw, err = l.Generate(ctx, next)
		if err != nil {
			metrics.LoopOutcomesTotal.WithLabelValues(l.Name, metrics.OutcomeError).Inc()
			return zero, state, &GenerationError{Loop: l.Name, Attempt: state.Attempts + 1, Cause: err}
		}
	}
}
