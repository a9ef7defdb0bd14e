package repair

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	responses []string
	prompts   []string
	err       error
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", errors.New("script exhausted")
	}
	next := g.responses[0]
	g.responses = g.responses[1:]
	return next, nil
}

func intLoop(gen *scriptedGenerator) *Loop[int] {
	return &Loop[int]{
		Name:     "test",
		Generate: gen.Generate,
		Attempt: func(_ context.Context, raw string) (int, error) {
			var n int
			if _, err := fmt.Sscanf(raw, "ok %d", &n); err != nil {
				return 0, NewFault(FaultMalformed, "bad: "+raw)
			}
			return n, nil
		},
		Repair: func(fault *Fault, state State) string {
			return fmt.Sprintf("fix attempt %d: %s", state.Attempts, fault.Message)
		},
	}
}

func TestLoop_SucceedsFirstAttempt(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"ok 7"}}

	value, state, err := intLoop(gen).Run(context.Background(), "start")
	require.NoError(t, err)
	assert.Equal(t, 7, value)
	assert.Equal(t, 1, state.Attempts)
	assert.Nil(t, state.LastError)
	assert.Equal(t, []string{"start"}, gen.prompts)
}

func TestLoop_RepairsThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"ok 3"}}

	value, state, err := intLoop(gen).RunFrom(context.Background(), "garbage")
	require.NoError(t, err)
	assert.Equal(t, 3, value)
	assert.Equal(t, 2, state.Attempts)
	require.NotNil(t, state.LastError)
	assert.Equal(t, "bad: garbage", state.LastError.Message)
	assert.Equal(t, []string{"fix attempt 1: bad: garbage"}, gen.prompts)
}

func TestLoop_ExhaustsAfterMaxAttempts(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"two", "three", "four"}}

	_, state, err := intLoop(gen).RunFrom(context.Background(), "one")
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "bad: three", exhausted.Last.Message)
	assert.Equal(t, 3, state.Attempts)
	assert.Len(t, gen.prompts, 2, "only two regenerations after the first response")
	assert.Equal(t, []string{"four"}, gen.responses, "no fourth attempt")

	var fault *Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, FaultMalformed, fault.Kind)
	assert.Contains(t, err.Error(), "test failed after 3 attempts")
}

func TestLoop_RunNeverExceedsBudget(t *testing.T) {
	for _, budget := range []int{1, 2, 3, 5} {
		gen := &scriptedGenerator{responses: []string{"a", "b", "c", "d", "e", "f"}}
		loop := intLoop(gen)
		loop.MaxAttempts = budget

		_, state, err := loop.Run(context.Background(), "start")
		require.Error(t, err)
		assert.Equal(t, budget, state.Attempts)
		assert.Len(t, gen.prompts, budget)
	}
}

func TestLoop_DefaultBudgetIsThree(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"a", "b", "c", "d"}}

	_, state, err := intLoop(gen).Run(context.Background(), "start")
	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, state.Max)
	assert.Equal(t, 3, state.Attempts)
}

func TestLoop_GenerationErrorIsTerminal(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("503 from provider")}

	_, state, err := intLoop(gen).RunFrom(context.Background(), "garbage")
	require.Error(t, err)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, 2, genErr.Attempt)
	assert.Equal(t, 1, state.Attempts)
	assert.Contains(t, err.Error(), "503 from provider")
}

func TestLoop_FirstGenerationError(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("no credentials")}

	_, _, err := intLoop(gen).Run(context.Background(), "start")
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, 1, genErr.Attempt)
}

func TestLoop_NonFaultErrorIsTerminal(t *testing.T) {
	boom := errors.New("sandbox crashed")
	loop := &Loop[int]{
		Name:     "test",
		Generate: (&scriptedGenerator{}).Generate,
		Attempt: func(context.Context, string) (int, error) {
			return 0, boom
		},
		Repair: func(*Fault, State) string { return "" },
	}

	_, state, err := loop.RunFrom(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, state.Attempts)
}

func TestLoop_StopsOnCancelledContext(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"ok 1"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := intLoop(gen).RunFrom(ctx, "garbage")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gen.prompts)
}

func TestErrors(t *testing.T) {
	cause := errors.New("driver: bad connection")
	f := &Fault{Kind: FaultExecution, Message: "bad connection", Cause: cause}
	assert.Equal(t, "bad connection", f.Error())
	assert.ErrorIs(t, f, cause)

	e := &ExhaustedError{Loop: "chart", Attempts: 3}
	assert.Equal(t, "chart failed after 3 attempts", e.Error())
	assert.Nil(t, e.Unwrap())
}
