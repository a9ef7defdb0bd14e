package parsing

import "fmt"

// Malformed reasons reported by ParseResponse
const (
	ReasonNoJSON      = "no valid JSON content found"
	ReasonWrongFormat = "response format incorrect"
)

// ParseError represents an error extracting the JSON payload from a response
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
