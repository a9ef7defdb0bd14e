// Package index stores corpus embeddings and answers nearest-neighbour queries.
// Backends persist across restarts, and writing an entry that is already present
// with the same text is a no-op, so re-running initialization never duplicates
// identifiers.
package index

import (
	"context"
	"fmt"
	"sort"
)

// Backend names accepted by Open
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Document is one embedded corpus entry
type Document struct {
	ID     string
	Text   string
	Vector []float32
}

// Match is a search hit. Higher scores are more similar.
type Match struct {
	ID    string
	Score float64
}

// Index is a persistent per-corpus vector index
type Index interface {
	// Missing returns the ids of docs that are not indexed in corpus or whose stored
	// text differs, in input order. Vectors are ignored.
	Missing(ctx context.Context, corpus string, docs []Document) ([]string, error)
	// Upsert writes documents. A document already present with the same text is
	// left untouched; a changed text replaces the stored document.
	Upsert(ctx context.Context, corpus string, docs []Document) error
	// Prune deletes every document of corpus whose id is not in keep and returns
	// how many were removed
	Prune(ctx context.Context, corpus string, keep []string) (int, error)
	// Search returns up to k matches ordered by descending score, ties by ascending id
	Search(ctx context.Context, corpus string, vector []float32, k int) ([]Match, error)
	// Count returns the number of indexed documents in corpus
	Count(ctx context.Context, corpus string) (int, error)
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Backend    string
	Path       string
	QdrantHost string
	QdrantPort int
}

// Open opens the configured backend
func Open(ctx context.Context, cfg Config) (Index, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return OpenSQLite(ctx, cfg.Path)
	case BackendQdrant:
		return OpenQdrant(ctx, cfg.QdrantHost, cfg.QdrantPort)
	default:
		return nil, fmt.Errorf("unsupported index backend %q", cfg.Backend)
	}
}

// stale returns the ids of docs absent from known or whose text differs
func stale(docs []Document, known map[string]string) []string {
	var out []string
	for _, d := range docs {
		if text, ok := known[d.ID]; !ok || text != d.Text {
			out = append(out, d.ID)
		}
	}
	return out
}

// rank orders matches by score, breaking ties by id, and keeps the first k
func rank(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if k >= 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
