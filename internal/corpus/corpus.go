// Package corpus loads the reference corpora (example queries and schema descriptions)
// from CSV files and serves identifier lookups for prompt construction.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jonathan/askdb/internal/metrics"
)

// Corpus names
const (
	Examples = "examples"
	Schema   = "schema"
)

// Column layout of a corpus CSV file
const (
	colID        = 0
	colDocument  = 1
	colReference = 2
)

// Entry is one indexable row: Document is the text that gets embedded.
type Entry struct {
	ID       string
	Document string
}

// Corpus is a loaded reference corpus. It is read-only after loading.
type Corpus struct {
	name    string
	entries []Entry
	refs    map[string]string
	logger  *slog.Logger
}

// LoadCSV loads a corpus file. The first row is a header.
func LoadCSV(name, path string, logger *slog.Logger) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	return ParseCSV(name, f, logger)
}

// ParseCSV reads a corpus from CSV with columns [identifier, referenceText, foreignId].
// Rows with fewer than two columns are skipped. Rows with exactly two columns are
// indexed but have no reference text, so lookups for them miss.
func ParseCSV(name string, r io.Reader, logger *slog.Logger) (*Corpus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	c := &Corpus{
		name:   name,
		refs:   make(map[string]string),
		logger: logger.With("corpus", name),
	}
	seen := make(map[string]bool)

	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus %s: %w", name, err)
		}
		line++
		if line == 1 {
			continue
		}

		if len(record) <= colDocument {
			c.logger.Warn("skipping row with insufficient columns", "line", line, "columns", len(record))
			continue
		}
		id := record[colID]
		if !seen[id] {
			seen[id] = true
			c.entries = append(c.entries, Entry{ID: id, Document: record[colDocument]})
		}
		if len(record) > colReference {
			c.refs[id] = record[colReference]
		}
	}

	c.logger.Debug("corpus loaded", "entries", len(c.entries), "references", len(c.refs))
	return c, nil
}

// Name returns the corpus name
func (c *Corpus) Name() string {
	return c.name
}

// Entries returns the indexable rows in file order
func (c *Corpus) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of indexable rows
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Has reports whether id has reference text
func (c *Corpus) Has(id string) bool {
	_, ok := c.refs[id]
	return ok
}

// Lookup returns the reference texts for ids in input order. Unknown ids are logged
// and dropped.
func (c *Corpus) Lookup(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		ref, ok := c.refs[id]
		if !ok {
			c.logger.Warn("identifier missing from context store", "id", id)
			metrics.RetrievalMissesTotal.WithLabelValues(c.name).Inc()
			continue
		}
		out = append(out, ref)
	}
	return out
}
