package vector

import (
	"sort"
	"sync"

	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/pkg/utils"
)

// Catalogue is the local, authoritative record of every stored chunk in insertion order.
// It is append-only except on Reset. Scans take the read lock so searches never block each other.
type Catalogue struct {
	mu    sync.RWMutex
	items []models.Chunk
	byID  map[string]int
}

// NewCatalogue returns an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{byID: make(map[string]int)}
}

// Append adds chunks to the end of the catalogue.
func (c *Catalogue) Append(chunks ...models.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range chunks {
		c.byID[ch.ID] = len(c.items)
		c.items = append(c.items, ch)
	}
}

// Reset removes every chunk.
func (c *Catalogue) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.byID = make(map[string]int)
}

// Len returns the number of stored chunks.
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the chunk with the given id.
func (c *Catalogue) Get(id string) (models.Chunk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return models.Chunk{}, false
	}
	return c.items[i], true
}

// Resolve maps remote matches to scored copies of catalogue chunks, keeping match order.
// Unknown and repeated ids are dropped; at most k results are returned.
func (c *Catalogue) Resolve(matches []Match, k int) []models.ScoredChunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ScoredChunk, 0, min(len(matches), k))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if len(out) >= k {
			break
		}
		i, ok := c.byID[m.ID]
		if !ok {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, scored(c.items[i], m.Score))
	}
	return out
}

// Nearest scores every chunk by cosine similarity against query and returns the top k,
// highest first. Ties keep insertion order.
func (c *Catalogue) Nearest(query []float32, k int) []models.ScoredChunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.items) == 0 || k <= 0 {
		return []models.ScoredChunk{}
	}

	type hit struct {
		idx   int
		score float64
	}
	hits := make([]hit, len(c.items))
	for i := range c.items {
		hits[i] = hit{idx: i, score: utils.Cosine(query, c.items[i].Vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]models.ScoredChunk, k)
	for i := 0; i < k; i++ {
		out[i] = scored(c.items[hits[i].idx], hits[i].score)
	}
	return out
}

// scored copies a chunk so callers never alias catalogue state.
func scored(ch models.Chunk, score float64) models.ScoredChunk {
	ch.Metadata = models.CopyMetadata(ch.Metadata)
	ch.Vector = append([]float32(nil), ch.Vector...)
	return models.ScoredChunk{Chunk: ch, Score: score}
}
