// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/askdb/internal/pipeline"
	"github.com/jonathan/askdb/internal/pipeline/steps"
	"github.com/jonathan/askdb/internal/sqlformat"
	"github.com/jonathan/askdb/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func writeList(sb *strings.Builder, label string, items []string) {
	sb.WriteString(label + ":\n")
	if len(items) == 0 {
		sb.WriteString("  (none)\n")
		return
	}
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// PrintRetrievedContext outputs the identifiers similarity search returned
func (p *Printer) PrintRetrievedContext(rc *types.RetrievedContext) {
	if rc == nil {
		return
	}

	var sb strings.Builder
	writeList(&sb, "Schema", rc.SchemaIDs)
	sb.WriteString("\n")
	writeList(&sb, "Examples", rc.ExampleIDs)

	p.printBox("RETRIEVED CONTEXT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQuery outputs the accepted SQL in canonical layout
func (p *Printer) PrintQuery(message, sql string) {
	if sql == "" {
		return
	}
	p.printBox(strings.ToUpper(message), sqlformat.Format(sql))
}

// PrintText outputs free text wrapped to the box width
func (p *Printer) PrintText(title, text string) {
	if text == "" {
		return
	}
	p.printBox(strings.ToUpper(title), wrap(text, boxWidth-4))
}

// PrintEvent renders one pipeline progress event. Events without a dedicated
// rendition are printed as a single line.
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) PrintEvent(e pipeline.ProgressEvent) {
	switch content := e.Content.(type) {
	case types.RetrievedContext:
		p.PrintRetrievedContext(&content)
		return
	case string:
		switch e.Step {
		case steps.Query:
			if !strings.Contains(e.Message, "exhausted") {
				p.PrintQuery(e.Message, content)
				return
			}
		case steps.Summary:
			p.PrintText(e.Message, content)
			return
		}
	}
	fmt.Fprintf(p.out, "[%s] %s\n", e.Step, e.Message)
}

// wrap breaks text on spaces so no line exceeds width, except single words longer than width
func wrap(text string, width int) string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
