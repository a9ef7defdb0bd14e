package repair

import "fmt"

// FaultKind classifies a retryable failure of one loop attempt
type FaultKind string

// Fault kinds fed back into a reflection loop
const (
	FaultMalformed     FaultKind = "malformed_response"
	FaultSemantic      FaultKind = "semantic_rejection"
	FaultExecution     FaultKind = "execution_fault"
	FaultVisualization FaultKind = "visualization_fault"
)

// Fault is a retryable failure of one attempt. Message is fed verbatim into the
// next repair prompt.
type Fault struct {
	Kind    FaultKind
	Message string
	Cause   error
}

func (e *Fault) Error() string {
	return e.Message
}

func (e *Fault) Unwrap() error {
	return e.Cause
}

// NewFault creates a Fault of the given kind
func NewFault(kind FaultKind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// ExhaustedError is returned when a loop consumed its attempt budget without success
type ExhaustedError struct {
	Loop     string
	Attempts int
	Last     *Fault
}

func (e *ExhaustedError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("%s failed after %d attempts: %s", e.Loop, e.Attempts, e.Last.Message)
	}
	return fmt.Sprintf("%s failed after %d attempts", e.Loop, e.Attempts)
}

func (e *ExhaustedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// GenerationError represents a failed call to the generation service. It ends the
// loop immediately; it is not a retryable fault.
type GenerationError struct {
	Loop    string
	Attempt int
	Cause   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generation failed at attempt %d: %v", e.Loop, e.Attempt, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
