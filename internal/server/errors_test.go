package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/askdb/internal/llm"
	"github.com/jonathan/askdb/internal/repair"
	"github.com/jonathan/askdb/internal/schemas"
	"github.com/jonathan/askdb/internal/sqlexec"
	"github.com/jonathan/askdb/internal/summary"
	"github.com/jonathan/askdb/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	invalidQuestion := (&types.Question{}).Validate()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "request validation", err: &ErrValidation{Field: "question", Message: "required"}, want: http.StatusBadRequest},
		{name: "schema violation", err: &schemas.ValidationError{}, want: http.StatusBadRequest},
		{name: "struct validation wrapped", err: fmt.Errorf("invalid question: %w", invalidQuestion), want: http.StatusBadRequest},
		{name: "cancelled", err: &ErrCancelled{Cause: context.Canceled}, want: http.StatusServiceUnavailable},
		{name: "generation service", err: fmt.Errorf("query generation failed: %w", &repair.GenerationError{Loop: "query", Attempt: 1, Cause: errors.New("quota")}), want: http.StatusBadGateway},
		{name: "summary call", err: &summary.APICallError{Message: "boom"}, want: http.StatusBadGateway},
		{name: "provider", err: fmt.Errorf("retrieval failed: %w", &llm.ProviderError{Provider: llm.ProviderGroq, Message: "no choices in response"}), want: http.StatusBadGateway},
		{name: "engine unreachable", err: &sqlexec.ConnectError{Driver: "postgres", Cause: errors.New("refused")}, want: http.StatusServiceUnavailable},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrValidation_Error(t *testing.T) {
	err := &ErrValidation{Field: "question", Message: "is required"}
	assert.Equal(t, "validation error: question - is required", err.Error())
}
