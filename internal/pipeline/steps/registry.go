// Package steps defines the pipeline steps, their categories and the dependencies
// between them.
package steps

import (
	"fmt"
	"sort"
)

// Step names
const (
	Retrieve = "retrieve_context"
	Prompt   = "build_prompt"
	Query    = "query_loop"
	Summary  = "summarize"
	Chart    = "chart_loop"
)

// Step categories
const (
	CategoryContext = "context"
	CategoryQuery   = "query"
	CategoryOutput  = "output"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
}

// StepRegistry holds all step definitions. Summary and Chart both depend only on
// Query, so neither can block the other.
var StepRegistry = map[string]StepDefinition{
	Retrieve: {
		Name:         Retrieve,
		Category:     CategoryContext,
		Dependencies: []string{},
	},
	Prompt: {
		Name:         Prompt,
		Category:     CategoryContext,
		Dependencies: []string{Retrieve},
	},
	Query: {
		Name:         Query,
		Category:     CategoryQuery,
		Dependencies: []string{Prompt},
	},
	Summary: {
		Name:         Summary,
		Category:     CategoryOutput,
		Dependencies: []string{Query},
	},
	Chart: {
		Name:         Chart,
		Category:     CategoryOutput,
		Dependencies: []string{Query},
	},
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// Tracker records the steps completed in one run
type Tracker struct {
	completed map[string]bool
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{completed: make(map[string]bool)}
}

// Complete marks a step as done
func (t *Tracker) Complete(step string) {
	t.completed[step] = true
}

// Completed reports whether a step is done
func (t *Tracker) Completed(step string) bool {
	return t.completed[step]
}

// ValidateDependencies checks if all required dependencies for a step are completed
func (t *Tracker) ValidateDependencies(stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !t.completed[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Step: stepName, MissingDependencies: missing}
	}
	return nil
}

// Available returns the steps not yet completed whose dependencies are met, sorted
func (t *Tracker) Available() []string {
	var available []string
	for name := range StepRegistry {
		if t.completed[name] {
			continue
		}
		if err := t.ValidateDependencies(name); err != nil {
			continue
		}
		available = append(available, name)
	}
	sort.Strings(available)
	return available
}
