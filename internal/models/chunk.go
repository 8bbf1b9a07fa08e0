package models

// Chunk is a unit of text with its metadata and embedding. ID is assigned by the vector store.
type Chunk struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Vector   []float32              `json:"-"`
}

// Source returns the chunk's provenance, or "Unknown".
func (c *Chunk) Source() string {
	return sourceOf(c.Metadata)
}

// ScoredChunk is a search hit: a snapshot of a stored chunk plus its similarity score.
// The score lives only on this copy, never on the stored chunk.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
