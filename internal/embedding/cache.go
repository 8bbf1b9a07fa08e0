package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey [sha256.Size]byte

// EmbeddingCache is a concurrency-safe LRU of embeddings keyed by the SHA-256 of the
// text, so long chunks do not stay resident as map keys.
type EmbeddingCache struct {
	entries *lru.Cache[cacheKey, []float32]
}

// NewEmbeddingCache creates a cache holding up to capacity embeddings (at least one).
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 1
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[cacheKey, []float32](capacity)
	return &EmbeddingCache{entries: entries}
}

// Get returns the cached embedding for text. A hit marks the entry most recently used.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	return c.entries.Get(sha256.Sum256([]byte(text)))
}

// Set stores the embedding for text, evicting the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, value []float32) {
	c.entries.Add(sha256.Sum256([]byte(text)), value)
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	return c.entries.Len()
}

// CachedEmbedder wraps an Embedder with an LRU cache. Batch calls only send cache misses
// to the wrapped embedder.
type CachedEmbedder struct {
	Embedder
	cache *EmbeddingCache
}

// WithCache wraps e with a cache of the given capacity.
func WithCache(e Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{Embedder: e, cache: NewEmbeddingCache(capacity)}
}

// Embed returns the cached embedding or computes and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, v)
	return v, nil
}

// EmbedBatch embeds texts, batching only the cache misses.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vecs, err := c.Embedder.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Set(texts[i], vecs[j])
	}
	return out, nil
}
