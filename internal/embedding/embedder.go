// Package embedding provides text embedding via ONNX, OpenAI, or a deterministic mock, with LRU caching.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text. Vectors are L2-normalized and have
// Dimensions() components.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Pooling modes for models whose output is per-token hidden state.
const (
	// PoolingMean averages token embeddings weighted by the attention mask.
	PoolingMean = "mean"
	// PoolingCLS takes the first ([CLS]) token embedding.
	PoolingCLS = "cls"
	// PoolingNone reads an already pooled [1, dim] output.
	PoolingNone = "none"
)

// ONNXOptions configures an ONNX Runtime embedder.
type ONNXOptions struct {
	ModelPath string
	// LibraryPath points at the onnxruntime shared library; empty uses the platform default.
	LibraryPath string
	Dimensions  int
	MaxTokens   int
	CacheSize   int
	// OutputName is the model output to read, e.g. "last_hidden_state" or "sentence_embedding".
	OutputName string
	Pooling    string
}

// withDefaults reads last_hidden_state with mean pooling unless told otherwise.
func (o ONNXOptions) withDefaults() ONNXOptions {
	if o.OutputName == "" {
		o.OutputName = "last_hidden_state"
	}
	if o.Pooling == "" {
		o.Pooling = PoolingMean
	}
	return o
}

func (o ONNXOptions) validate() error {
	if o.ModelPath == "" {
		return fmt.Errorf("onnx model path is required")
	}
	if o.Dimensions <= 0 {
		return fmt.Errorf("onnx dimensions must be positive, got %d", o.Dimensions)
	}
	switch o.Pooling {
	case PoolingMean, PoolingCLS, PoolingNone:
		return nil
	default:
		return fmt.Errorf("unknown pooling %q (supported: mean, cls, none)", o.Pooling)
	}
}

// pool reduces a [seq, dim] hidden state to one vector. hidden is row-major.
func pool(mode string, hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	switch mode {
	case PoolingCLS, PoolingNone:
		copy(out, hidden[:dim])
	default:
		var n float32
		for t, m := range mask {
			if m == 0 {
				continue
			}
			row := hidden[t*dim : (t+1)*dim]
			for i, v := range row {
				out[i] += v
			}
			n++
		}
		if n > 0 {
			for i := range out {
				out[i] /= n
			}
		}
	}
	return out
}

// embedEach embeds texts one at a time with embed.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
