// Package retrieval finds the reference entries most similar to a question.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/askdb/internal/corpus"
	"github.com/jonathan/askdb/internal/embedding"
	"github.com/jonathan/askdb/internal/index"
	"github.com/jonathan/askdb/internal/types"
)

// DefaultK is the number of entries retrieved per corpus
const DefaultK = 2

const (
	buildConcurrency = 4
	embedMaxTries    = 4
)

// Retriever runs nearest-neighbour lookups over the indexed corpora. It holds no
// mutable state after Build, so one Retriever serves every question.
type Retriever struct {
	embedder embedding.Embedder
	index    index.Index
	corpora  map[string]*corpus.Corpus
	members  map[string]map[string]bool
	k        int
	logger   *slog.Logger
}

// New creates a Retriever over the given corpora
func New(embedder embedding.Embedder, idx index.Index, logger *slog.Logger, corpora ...*corpus.Corpus) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]*corpus.Corpus, len(corpora))
	members := make(map[string]map[string]bool, len(corpora))
	for _, c := range corpora {
		byName[c.Name()] = c
		ids := make(map[string]bool, c.Len())
		for _, e := range c.Entries() {
			ids[e.ID] = true
		}
		members[c.Name()] = ids
	}
	return &Retriever{
		embedder: embedder,
		index:    idx,
		corpora:  byName,
		members:  members,
		k:        DefaultK,
		logger:   logger,
	}
}

// BuildStats reports what Build did for one corpus
type BuildStats struct {
	Corpus  string
	Total   int
	Added   int
	Skipped int
	Removed int
}

// Build embeds and indexes every corpus entry that is not in the index or whose
// text changed, and removes indexed entries no longer in the corpus. Running it
// again against the same index and files changes nothing.
func (r *Retriever) Build(ctx context.Context) ([]BuildStats, error) {
	var stats []BuildStats
	for _, name := range []string{corpus.Examples, corpus.Schema} {
		c, ok := r.corpora[name]
		if !ok {
			continue
		}
		s, err := r.buildCorpus(ctx, c)
		if err != nil {
			return stats, err
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func (r *Retriever) buildCorpus(ctx context.Context, c *corpus.Corpus) (BuildStats, error) {
	entries := c.Entries()
	ids := make([]string, len(entries))
	current := make([]index.Document, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		current[i] = index.Document{ID: e.ID, Text: e.Document}
	}

	stats := BuildStats{Corpus: c.Name(), Total: len(entries)}
	removed, err := r.index.Prune(ctx, c.Name(), ids)
	if err != nil {
		return stats, fmt.Errorf("failed to prune index for %s: %w", c.Name(), err)
	}
	stats.Removed = removed
	if removed > 0 {
		r.logger.Info("removed stale entries", "corpus", c.Name(), "removed", removed)
	}

	missing, err := r.index.Missing(ctx, c.Name(), current)
	if err != nil {
		return stats, fmt.Errorf("failed to check index for %s: %w", c.Name(), err)
	}
	stats.Skipped = len(entries) - len(missing)
	if len(missing) == 0 {
		r.logger.Info("index up to date", "corpus", c.Name(), "entries", len(entries))
		return stats, nil
	}

	want := make(map[string]bool, len(missing))
	for _, id := range missing {
		want[id] = true
	}
	var todo []corpus.Entry
	for _, e := range entries {
		if want[e.ID] {
			todo = append(todo, e)
		}
	}

	docs := make([]index.Document, len(todo))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(buildConcurrency)
	for i, e := range todo {
		g.Go(func() error {
			vec, err := r.embedWithRetry(gCtx, e.Document)
			if err != nil {
				return fmt.Errorf("failed to embed %s/%s: %w", c.Name(), e.ID, err)
			}
			docs[i] = index.Document{ID: e.ID, Text: e.Document, Vector: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if err := r.index.Upsert(ctx, c.Name(), docs); err != nil {
		return stats, fmt.Errorf("failed to index %s: %w", c.Name(), err)
	}
	stats.Added = len(docs)
	r.logger.Info("indexed corpus", "corpus", c.Name(), "added", stats.Added, "skipped", stats.Skipped)
	return stats, nil
}

func (r *Retriever) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	attempt := 0
	return backoff.Retry(ctx, func() ([]float32, error) {
		if attempt > 0 {
			r.logger.Warn("embedding failed, retrying", "attempt", attempt)
		}
		attempt++
		return r.embedder.Embed(ctx, text)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(embedMaxTries))
}

// Retrieve returns the ids of the min(k, corpus size) entries of corpusName most
// similar to text. An empty or unknown corpus yields an empty result. Indexed ids
// that are not in the loaded corpus are skipped, widening the search until enough
// current entries are found.
func (r *Retriever) Retrieve(ctx context.Context, corpusName, text string) ([]string, error) {
	c, ok := r.corpora[corpusName]
	if !ok || c.Len() == 0 {
		return []string{}, nil
	}

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	want := min(r.k, c.Len())
	members := r.members[corpusName]
	ids := make([]string, 0, want)
	stale := 0
	for limit := r.k; ; limit *= 2 {
		matches, err := r.index.Search(ctx, corpusName, vec, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", corpusName, err)
		}
		ids, stale = ids[:0], 0
		for _, m := range matches {
			switch {
			case !members[m.ID]:
				stale++
			case len(ids) < want:
				ids = append(ids, m.ID)
			}
		}
		if len(ids) == want || len(matches) < limit {
			break
		}
	}
	if stale > 0 {
		r.logger.Warn("index holds entries missing from the corpus, run the index command", "corpus", corpusName, "stale", stale)
	}
	r.logger.Debug("retrieved", "corpus", corpusName, "ids", ids)
	return ids, nil
}

// RetrieveContext retrieves from both corpora for one question
func (r *Retriever) RetrieveContext(ctx context.Context, question string) (types.RetrievedContext, error) {
	examples, err := r.Retrieve(ctx, corpus.Examples, question)
	if err != nil {
		return types.RetrievedContext{}, err
	}
	schema, err := r.Retrieve(ctx, corpus.Schema, question)
	if err != nil {
		return types.RetrievedContext{}, err
	}
	return types.RetrievedContext{ExampleIDs: examples, SchemaIDs: schema}, nil
}

// Corpus returns the named corpus, or nil
func (r *Retriever) Corpus(name string) *corpus.Corpus {
	return r.corpora[name]
}
