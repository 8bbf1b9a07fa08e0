// Package app wires every component of the knowledge link into one context object that
// is built once per process and shared by the HTTP handlers, the CLI and the watcher.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/config"
	"github.com/hyperjump/lumina/internal/embedding"
	"github.com/hyperjump/lumina/internal/extract"
	"github.com/hyperjump/lumina/internal/filter"
	"github.com/hyperjump/lumina/internal/ingest"
	"github.com/hyperjump/lumina/internal/observability"
	"github.com/hyperjump/lumina/internal/search"
	"github.com/hyperjump/lumina/internal/storage"
	"github.com/hyperjump/lumina/internal/vector"
	"github.com/hyperjump/lumina/pkg/utils"
)

// App owns the initialized services.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Storage  *storage.SQLiteStorage
	Embedder embedding.Embedder
	Store    *vector.Store
	Indexer  *ingest.Indexer
	Engine   *search.Engine
	Tracing  *observability.TracerProvider
}

// ConfigSummary is the subset of configuration reported by status.
type ConfigSummary struct {
	EmbeddingProvider string `json:"embedding_provider"`
	SynthesisProvider string `json:"synthesis_provider"`
	SynthesisModel    string `json:"synthesis_model"`
	ChunkSize         int    `json:"chunk_size"`
	ChunkOverlap      int    `json:"chunk_overlap"`
	TopK              int    `json:"top_k"`
	DatabasePath      string `json:"database_path,omitempty"`
	TracingEnabled    bool   `json:"tracing_enabled"`
}

// Status is the response of GET /api/v1/status and `lumina status`.
type Status struct {
	vector.Status
	Sources        int64          `json:"sources"`
	DiskUsageBytes *int64         `json:"disk_usage_bytes,omitempty"`
	Config         *ConfigSummary `json:"config,omitempty"`
}

// New builds every component from cfg. An unreachable remote index never fails
// construction; the store starts in local fallback mode instead.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	logger = utils.OrNop(logger)
	a := &App{Config: cfg, Logger: logger}

	tp, err := observability.InitTracing(ctx, cfg.Tracing, version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
		tp, _ = observability.InitTracing(ctx, config.TracingConfig{}, version)
	}
	a.Tracing = tp

	var persist vector.Persister
	if cfg.Storage.DatabasePath != "" {
		db, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.Storage = db
		persist = db
	}

	emb, err := embedding.New(cfg.Embedding, cfg.Vector.Dimension, logger)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.Embedder = emb

	client, err := newClient(ctx, cfg.Vector, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	store, err := vector.NewStore(ctx, client, vector.Options{
		Collection: cfg.Vector.Collection,
		Dimension:  cfg.Vector.Dimension,
		Timeout:    cfg.Vector.Timeout,
		Persist:    persist,
		Backend:    cfg.Vector.Backend,
	}, logger)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	a.Store = store

	idxOpts := []ingest.IndexerOption{
		ingest.WithLogger(logger),
		ingest.WithWebLoader(extract.NewWebLoader(cfg.Ingest.HTTPTimeout, extract.WithWebLogger(logger))),
	}
	if a.Storage != nil {
		idxOpts = append(idxOpts, ingest.WithRegistry(a.Storage))
	}
	a.Indexer = ingest.NewIndexer(store, emb,
		ingest.NewSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		extract.NewExtractor(), idxOpts...)

	f := filter.New(filter.Options{
		Markers:       cfg.Retrieval.Filter.Markers,
		MinLength:     cfg.Retrieval.Filter.MinLength,
		MinKept:       cfg.Retrieval.Filter.MinKept,
		FallbackCount: cfg.Retrieval.Filter.FallbackCount,
	})
	a.Engine = search.NewEngine(store, emb, f, cfg.Retrieval, cfg.Synthesis, logger)
	return a, nil
}

// newClient creates the remote index client. Unknown backends are configuration errors;
// a client that cannot be created is logged and the store runs locally.
func newClient(ctx context.Context, cfg config.VectorConfig, logger *zap.Logger) (vector.Client, error) {
	switch cfg.Backend {
	case vector.BackendNone, "", vector.BackendQdrant, vector.BackendPgVector:
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: qdrant, pgvector, none)", cfg.Backend)
	}
	client, err := vector.NewClient(ctx, cfg)
	if err != nil {
		logger.Warn("failed to create vector index client, using local catalogue",
			zap.String("backend", cfg.Backend), zap.Error(err))
		return nil, nil
	}
	return client, nil
}

// Status reports store state, registry size, disk usage and a config summary.
func (a *App) Status(ctx context.Context) Status {
	st := Status{
		Status: a.Store.Status(),
		Config: &ConfigSummary{
			EmbeddingProvider: a.Config.Embedding.Provider,
			SynthesisProvider: a.Config.Synthesis.Provider,
			SynthesisModel:    a.Config.Synthesis.Model,
			ChunkSize:         a.Config.Ingest.ChunkSize,
			ChunkOverlap:      a.Config.Ingest.ChunkOverlap,
			TopK:              a.Config.Retrieval.TopK,
			DatabasePath:      a.Config.Storage.DatabasePath,
			TracingEnabled:    a.Tracing != nil && a.Tracing.Enabled(),
		},
	}
	if a.Storage != nil {
		if n, err := a.Storage.CountSources(ctx); err == nil {
			st.Sources = n
		}
		if n, err := a.Storage.DiskUsage(); err == nil {
			st.DiskUsageBytes = &n
		}
	}
	return st
}

// Clear empties the knowledge base and resets the sources registry.
func (a *App) Clear(ctx context.Context) bool {
	return a.Indexer.Clear(ctx)
}

// Close releases every component and flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	if a.Storage != nil {
		errs = append(errs, a.Storage.Close())
	}
	if a.Tracing != nil {
		errs = append(errs, a.Tracing.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
