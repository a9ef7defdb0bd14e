// Package embedding turns text into vectors for similarity search.
package embedding

import (
	"context"
	"fmt"
	"math"
)

// Embedder generates an embedding for a single text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Name identifies the engine and model, e.g. "ollama:nomic-embed-text"
	Name() string
}

// Provider names accepted by New
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config selects and configures an embedding engine
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// Endpoint is the Ollama base URL
	Endpoint string
}

// New builds the configured embedder
func New(ctx context.Context, cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model)
	case ProviderOllama:
		return NewOllamaEmbedder(cfg.Endpoint, cfg.Model, nil), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}

// CosineSimilarity returns the cosine of the angle between a and b. A zero vector
// has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		aMag += x * x
		bMag += y * y
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}
