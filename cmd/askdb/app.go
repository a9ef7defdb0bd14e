package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonathan/askdb/internal/chart"
	"github.com/jonathan/askdb/internal/config"
	"github.com/jonathan/askdb/internal/corpus"
	"github.com/jonathan/askdb/internal/embedding"
	"github.com/jonathan/askdb/internal/index"
	"github.com/jonathan/askdb/internal/llm"
	"github.com/jonathan/askdb/internal/pipeline"
	"github.com/jonathan/askdb/internal/querying"
	"github.com/jonathan/askdb/internal/retrieval"
	"github.com/jonathan/askdb/internal/sqlexec"
	"github.com/jonathan/askdb/internal/summary"
)

// embeddingCacheTTL bounds how long a question embedding is reused
const embeddingCacheTTL = time.Hour

// app holds the wired components for one command invocation
type app struct {
	cfg    config.Config
	logger *slog.Logger

	retriever *retrieval.Retriever
	examples  *corpus.Corpus
	schema    *corpus.Corpus
	pipeline  *pipeline.Pipeline

	closers []func()
}

// Close releases everything the app opened, newest first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, func() {
		if err := fn(); err != nil {
			a.logger.Warn("close failed", "component", name, "error", err)
		}
	})
}

// newRetrievalApp wires the corpora, the embedder and the similarity index
func newRetrievalApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var err error
	if a.examples, err = corpus.LoadCSV(corpus.Examples, cfg.ExamplesCSV, logger); err != nil {
		return nil, err
	}
	if a.schema, err = corpus.LoadCSV(corpus.Schema, cfg.SchemaCSV, logger); err != nil {
		return nil, err
	}

	embedder, err := embedding.New(ctx, embedding.Config{
		Provider: cfg.EmbeddingProvider,
		Model:    cfg.EmbeddingModel,
		APIKey:   cfg.GeminiAPIKey,
		Endpoint: cfg.OllamaURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if closer, ok := embedder.(interface{ Close() error }); ok {
		a.onClose("embedder", closer.Close)
	}
	if cfg.EmbeddingCacheSize > 0 {
		cached := embedding.NewCached(embedder, embeddingCacheTTL, uint64(cfg.EmbeddingCacheSize))
		a.closers = append(a.closers, cached.Close)
		embedder = cached
	}

	idx, err := index.Open(ctx, index.Config{
		Backend:    cfg.IndexBackend,
		Path:       cfg.IndexPath,
		QdrantHost: cfg.QdrantHost,
		QdrantPort: cfg.QdrantPort,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open similarity index: %w", err)
	}
	a.onClose("index", idx.Close)

	a.retriever = retrieval.New(embedder, idx, logger, a.examples, a.schema)
	return a, nil
}

// buildIndex adds missing corpus entries to the index and logs what happened
func (a *app) buildIndex(ctx context.Context) ([]retrieval.BuildStats, error) {
	stats, err := a.retriever.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build similarity index: %w", err)
	}
	for _, s := range stats {
		a.logger.Debug("index ready", "corpus", s.Corpus, "total", s.Total, "added", s.Added, "skipped", s.Skipped)
	}
	return stats, nil
}

// newApp wires the whole question pipeline. The similarity index is brought up
// to date before the pipeline is returned.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts pipeline.Options) (*app, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}

	a, err := newRetrievalApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if _, err := a.buildIndex(ctx); err != nil {
		a.Close()
		return nil, err
	}

	client, err := llm.NewClient(ctx, llmConfigFor(cfg), cfg.LLMAPIKey())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.onClose("llm", client.Close)

	executor, err := sqlexec.Open(ctx, sqlexec.Config{Driver: cfg.DBDriver, DSN: cfg.DSN()}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.onClose("executor", executor.Close)

	if opts.Dialect == "" {
		opts.Dialect = dialectFor(cfg)
	}
	if opts.SummaryHint == "" {
		opts.SummaryHint = cfg.SummaryHint
	}

	sandbox := chart.NewSandbox()
	if exe, err := os.Executable(); err == nil {
		sandbox = chart.NewIsolatedSandbox(exe)
	} else {
		logger.Warn("chart code will run in process", "error", err)
	}

	a.pipeline = pipeline.New(pipeline.Deps{
		Retriever:  a.retriever,
		Examples:   a.examples,
		Schema:     a.schema,
		Query:      querying.New(client, executor, querying.WithDialect(opts.Dialect), querying.WithLogger(logger)),
		Summarizer: summary.New(client, logger),
		Charts:     chart.NewLoop(client, sandbox, logger),
		Logger:     logger,
	}, opts)
	return a, nil
}
