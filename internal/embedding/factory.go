package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/config"
	"github.com/hyperjump/lumina/pkg/utils"
)

// New creates the embedder selected by cfg.Provider with the given output dimension.
// When the ONNX model cannot be loaded the deterministic mock is used instead, so the
// rest of the system stays usable.
func New(cfg config.EmbeddingConfig, dimensions int, logger *zap.Logger) (Embedder, error) {
	logger = utils.OrNop(logger)
	switch cfg.Provider {
	case "mock":
		return NewMockEmbedder(dimensions), nil
	case "openai":
		e, err := NewOpenAIEmbedder(cfg.APIKey, cfg.OpenAIModel, dimensions, "")
		if err != nil {
			return nil, err
		}
		return WithCache(e, cfg.CacheSize), nil
	case "onnx", "":
		e, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:   cfg.ModelPath,
			LibraryPath: cfg.LibraryPath,
			Dimensions:  dimensions,
			MaxTokens:   cfg.MaxTokens,
			CacheSize:   cfg.CacheSize,
			OutputName:  cfg.OutputName,
			Pooling:     cfg.Pooling,
		})
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using mock embeddings",
				zap.String("model_path", cfg.ModelPath), zap.Error(err))
			return NewMockEmbedder(dimensions), nil
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, mock)", cfg.Provider)
	}
}
