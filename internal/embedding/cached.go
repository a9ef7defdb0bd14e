package embedding

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cached memoizes embeddings per text for a fixed TTL. Question embeddings repeat
// across retrievals of the two corpora and across repeated questions.
type Cached struct {
	inner Embedder
	cache *ttlcache.Cache[string, []float32]
}

// NewCached wraps inner with a TTL cache holding at most capacity entries
func NewCached(inner Embedder, ttl time.Duration, capacity uint64) *Cached {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []float32](ttl),
		ttlcache.WithCapacity[string, []float32](capacity),
	)
	go cache.Start()
	return &Cached{inner: inner, cache: cache}
}

// Embed returns the cached embedding or computes and stores it
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if item := c.cache.Get(text); item != nil {
		return item.Value(), nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, ttlcache.DefaultTTL)
	return vec, nil
}

// Name returns the wrapped engine name
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Len returns the number of cached embeddings
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Close stops the expiry goroutine
func (c *Cached) Close() {
	c.cache.Stop()
}
