package embedding

import (
	"context"
	"errors"
	"sync"

	"github.com/smallnest/raggate/retrieval"
)

// Cached decorates an embedder with an in-process vector cache keyed by
// (identity, text). Batch calls embed only the misses and preserve input
// order. Reads take a shared lock, so concurrent queries hit the cache
// without serializing.
type Cached struct {
	inner retrieval.Embedder

	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewCached wraps the inner embedder.
func NewCached(inner retrieval.Embedder) (*Cached, error) {
	if inner == nil {
		return nil, errors.New("embedding: inner embedder is required")
	}
	return &Cached{inner: inner, vectors: make(map[string][]float32)}, nil
}

func (c *Cached) key(text string) string {
	return c.inner.Identity() + "\x00" + text
}

// EmbedQuery returns the cached vector or embeds and stores it.
func (c *Cached) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	c.mu.RLock()
	vec, ok := c.vectors[key]
	c.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.vectors[key] = vec
	c.mu.Unlock()
	return vec, nil
}

// EmbedBatch fills from the cache and embeds only the missing texts.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	c.mu.RLock()
	for i, t := range texts {
		if vec, ok := c.vectors[c.key(t)]; ok {
			out[i] = vec
		} else {
			missing = append(missing, t)
			missingIdx = append(missingIdx, i)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	for i, vec := range vecs {
		out[missingIdx[i]] = vec
		c.vectors[c.key(missing[i])] = vec
	}
	c.mu.Unlock()
	return out, nil
}

// Identity reports the inner embedder's identity so cache keys stay
// consistent across decoration.
func (c *Cached) Identity() string { return c.inner.Identity() }

var _ retrieval.Embedder = (*Cached)(nil)
