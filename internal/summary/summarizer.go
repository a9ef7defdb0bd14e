// Package summary describes a query result in natural language.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/askdb/internal/llm"
	"github.com/jonathan/askdb/internal/prompts"
	"github.com/jonathan/askdb/internal/types"
)

// APICallError wraps a failed summarization call. Summaries are attempted once.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// Summarizer produces a short description of a result set
type Summarizer struct {
	client llm.Client
	logger *slog.Logger
}

// New creates a Summarizer
func New(client llm.Client, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{client: client, logger: logger}
}

// Summarize makes a single generation call. An empty hint uses the default
// instruction.
func (s *Summarizer) Summarize(ctx context.Context, question string, result *types.ResultSet, hint string) (string, error) {
	prompt := prompts.BuildSummaryPrompt(question, RenderTable(result), hint)

	text, err := s.client.GenerateContent(ctx, prompt, llm.TierLite)
	if err != nil {
		return "", &APICallError{Message: "summary generation failed", Cause: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &APICallError{Message: "summary generation returned no text"}
	}
	s.logger.Debug("summary generated", "chars", len(text))
	return text, nil
}
