package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/askdb/internal/llm"
	"github.com/jonathan/askdb/internal/repair"
	"github.com/jonathan/askdb/internal/schemas"
	"github.com/jonathan/askdb/internal/sqlexec"
	"github.com/jonathan/askdb/internal/summary"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrCancelled indicates the client went away or the request was cancelled mid-run
type ErrCancelled struct {
	Cause error
}

func (e *ErrCancelled) Error() string {
	return fmt.Sprintf("request cancelled: %v", e.Cause)
}

func (e *ErrCancelled) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		schemaErr     *schemas.ValidationError
		fieldErrs     validator.ValidationErrors
		cancelErr     *ErrCancelled
		generationErr *repair.GenerationError
		apiErr        *summary.APICallError
		providerErr   *llm.ProviderError
		connectErr    *sqlexec.ConnectError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &schemaErr), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.As(err, &cancelErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &generationErr), errors.As(err, &apiErr), errors.As(err, &providerErr):
		return http.StatusBadGateway
	case errors.As(err, &connectErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
