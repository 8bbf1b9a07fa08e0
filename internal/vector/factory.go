package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/lumina/internal/config"
)

// Backend names accepted in vector.backend.
const (
	BackendQdrant   = "qdrant"
	BackendPgVector = "pgvector"
	BackendNone     = "none"
)

// NewClient creates the remote index client selected by cfg.Backend.
// "none" or an empty backend returns a nil client (local catalogue only).
func NewClient(ctx context.Context, cfg config.VectorConfig) (Client, error) {
	switch cfg.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendQdrant:
		c, err := NewQdrantClient(cfg.Qdrant.Host, cfg.Qdrant.Port)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendPgVector:
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("pgvector backend requires vector.postgres.url")
		}
		c, err := NewPgVectorClient(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: qdrant, pgvector, none)", cfg.Backend)
	}
}
