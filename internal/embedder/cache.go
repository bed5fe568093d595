package embedder

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aerostream/aeros/internal/rag"
)

// DefaultCacheSize is the default number of query embeddings kept in memory.
// Queries are short and vectors small (768–1536 float32s), so a few thousand
// entries cost single-digit megabytes.
const DefaultCacheSize = 2048

// CachedEmbedder wraps a rag.Embedder with an LRU cache keyed by input text.
// Repeated queries (the common case for the bot and the evaluation harness)
// skip the embedding round-trip entirely. Safe for concurrent use.
type CachedEmbedder struct {
	inner rag.Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU cache of the given size.
// size <= 0 selects DefaultCacheSize.
func NewCachedEmbedder(inner rag.Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedder: failed to create cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed returns cached vectors where available and embeds only the misses,
// preserving input order in the returned slice.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	embedded, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(missTexts) {
		return nil, fmt.Errorf("embedder: expected %d embeddings, got %d", len(missTexts), len(embedded))
	}

	for j, v := range embedded {
		out[missIdx[j]] = v
		c.cache.Add(missTexts[j], v)
	}

	return out, nil
}
