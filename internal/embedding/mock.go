package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/hyperjump/lumina/pkg/utils"
)

// signatureWeight scales the whole-text component relative to the word buckets.
const signatureWeight = 0.25

// MockEmbedder is a deterministic embedder for tests and offline use. Words are hashed
// into signed buckets, so texts sharing vocabulary land near each other, and a small
// whole-text signature keeps every vector non-zero and distinct per text.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic unit-length embedding for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := HashString(w)
		sign := float32(1)
		if h&1 == 1 {
			sign = -1
		}
		emb[(h>>1)%e.dimensions] += sign
	}
	seed := HashString(text)
	for i := range emb {
		emb[i] += float32(signatureWeight * (math.Sin(float64(seed*(i+1))) + 0.1))
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}
