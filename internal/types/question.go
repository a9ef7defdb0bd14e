// Package types provides type definitions for structured data used throughout the askdb system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Question is the immutable input of one pipeline run
type Question struct {
	Text     string `json:"question" validate:"required,max=2000"`
	UserName string `json:"user_name" validate:"max=200"`
}

// Validate validates the Question using the validator.
func (q *Question) Validate() error {
	q.Text = strings.TrimSpace(q.Text)
	validate := validator.New()
	return validate.Struct(q)
}

// RetrievedContext holds the identifiers returned by similarity search for one question.
// Each list is ordered by similarity and holds at most k entries.
type RetrievedContext struct {
	ExampleIDs []string `json:"example_ids"`
	SchemaIDs  []string `json:"schema_ids"`
}
