package vector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/internal/observability"
	"github.com/hyperjump/lumina/pkg/utils"
)

// Backend is one storage strategy composed by the Store.
type Backend interface {
	Add(ctx context.Context, chunks []models.Chunk) Outcome
	Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, Outcome)
	Clear(ctx context.Context) Outcome
}

// Persister writes the catalogue through to durable storage so it survives restarts.
type Persister interface {
	AppendChunks(ctx context.Context, chunks []models.Chunk) error
	LoadChunks(ctx context.Context) ([]models.Chunk, error)
	ClearChunks(ctx context.Context) error
}

var (
	_ Backend = (*LocalBackend)(nil)
	_ Backend = (*RemoteBackend)(nil)
)

// LocalBackend stores chunks in the catalogue and answers searches with a cosine scan.
type LocalBackend struct {
	writeMu   sync.Mutex
	catalogue *Catalogue
	persist   Persister
	dim       int
}

// NewLocalBackend creates the fallback strategy. persist may be nil.
func NewLocalBackend(catalogue *Catalogue, dim int, persist Persister) *LocalBackend {
	return &LocalBackend{catalogue: catalogue, dim: dim, persist: persist}
}

// Hydrate loads persisted chunks into the catalogue, skipping any of the wrong dimension.
func (b *LocalBackend) Hydrate(ctx context.Context) (loaded, skipped int, err error) {
	if b.persist == nil {
		return 0, 0, nil
	}
	chunks, err := b.persist.LoadChunks(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load catalogue: %w", err)
	}
	valid := chunks[:0]
	for _, c := range chunks {
		if len(c.Vector) != b.dim {
			skipped++
			continue
		}
		valid = append(valid, c)
	}
	b.catalogue.Append(valid...)
	return len(valid), skipped, nil
}

// Add appends chunks to the catalogue, then writes them through. The catalogue append
// always happens; a persistence failure is reported as OutcomeFailed.
func (b *LocalBackend) Add(ctx context.Context, chunks []models.Chunk) Outcome {
	if len(chunks) == 0 {
		return emptyOutcome()
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.catalogue.Append(chunks...)
	if b.persist != nil {
		if err := b.persist.AppendChunks(ctx, chunks); err != nil {
			return failedOutcome(fmt.Errorf("persist chunks: %w", err))
		}
	}
	return okOutcome()
}

// Search returns the top k catalogue chunks by cosine similarity.
func (b *LocalBackend) Search(_ context.Context, query []float32, k int) ([]models.ScoredChunk, Outcome) {
	if k <= 0 || len(query) != b.dim {
		return []models.ScoredChunk{}, skippedOutcome()
	}
	if utils.L2Norm(query) == 0 {
		return []models.ScoredChunk{}, emptyOutcome()
	}
	results := b.catalogue.Nearest(query, k)
	if len(results) == 0 {
		return results, emptyOutcome()
	}
	return results, okOutcome()
}

// Clear empties the catalogue and the persisted copy.
func (b *LocalBackend) Clear(ctx context.Context) Outcome {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.catalogue.Reset()
	if b.persist != nil {
		if err := b.persist.ClearChunks(ctx); err != nil {
			return failedOutcome(fmt.Errorf("clear persisted chunks: %w", err))
		}
	}
	return okOutcome()
}

// RemoteBackend stores vectors in a remote index and resolves query hits against the catalogue.
type RemoteBackend struct {
	client     Client
	label      string
	collection string
	dim        int
	timeout    time.Duration
	catalogue  *Catalogue
	logger     *zap.Logger

	mu    sync.RWMutex
	index Index
}

// NewRemoteBackend creates the primary strategy. Call Connect before use.
func NewRemoteBackend(client Client, label, collection string, dim int, timeout time.Duration, catalogue *Catalogue, logger *zap.Logger) *RemoteBackend {
	return &RemoteBackend{
		client:     client,
		label:      label,
		collection: collection,
		dim:        dim,
		timeout:    timeout,
		catalogue:  catalogue,
		logger:     logger,
	}
}

// Connect ensures the collection exists and binds its index.
func (b *RemoteBackend) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	ctx, span := observability.StartStoreSpan(ctx, "connect", b.label)
	defer span.End()

	idx, err := b.ensureIndex(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	b.mu.Lock()
	b.index = idx
	b.mu.Unlock()
	return nil
}

func (b *RemoteBackend) ensureIndex(ctx context.Context) (Index, error) {
	names, err := b.client.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	if !slices.Contains(names, b.collection) {
		if err := b.client.CreateIndex(ctx, b.collection, b.dim, DistanceCosine); err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	}
	idx, err := b.client.Index(b.collection)
	if err != nil {
		return nil, fmt.Errorf("bind index: %w", err)
	}
	return idx, nil
}

// Connected reports whether an index is bound.
func (b *RemoteBackend) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index != nil
}

func (b *RemoteBackend) bound() Index {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index
}

// Add inserts (id, vector) pairs into the remote index.
func (b *RemoteBackend) Add(ctx context.Context, chunks []models.Chunk) Outcome {
	idx := b.bound()
	if idx == nil {
		return skippedOutcome()
	}
	if len(chunks) == 0 {
		return emptyOutcome()
	}
	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		vectors[i] = c.Vector
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	ctx, span := observability.StartStoreSpan(ctx, "insert", b.label)
	defer span.End()
	observability.RecordCount(span, "store.items", len(ids))

	if err := idx.Insert(ctx, ids, vectors); err != nil {
		observability.RecordError(span, err)
		return failedOutcome(err)
	}
	return okOutcome()
}

// Search queries the remote index and resolves hits against the catalogue, in remote order.
func (b *RemoteBackend) Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, Outcome) {
	idx := b.bound()
	if idx == nil || k <= 0 || len(query) != b.dim {
		return nil, skippedOutcome()
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	ctx, span := observability.StartStoreSpan(ctx, "query", b.label)
	defer span.End()

	matches, err := idx.Query(ctx, query, k)
	if err != nil {
		observability.RecordError(span, err)
		return nil, failedOutcome(err)
	}
	results := b.catalogue.Resolve(matches, k)
	observability.RecordCount(span, "store.matches", len(matches))
	observability.RecordCount(span, "store.resolved", len(results))
	if dropped := len(matches) - len(results); dropped > 0 {
		b.logger.Debug("dropped remote matches not in catalogue",
			zap.Int("matches", len(matches)), zap.Int("dropped", dropped))
	}
	if len(results) == 0 {
		return nil, emptyOutcome()
	}
	return results, okOutcome()
}

// Clear deletes and recreates the remote index with the same name, dimension and metric.
func (b *RemoteBackend) Clear(ctx context.Context) Outcome {
	if !b.Connected() {
		return skippedOutcome()
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	ctx, span := observability.StartStoreSpan(ctx, "clear", b.label)
	defer span.End()

	var errs []error
	if err := b.client.DeleteIndex(ctx, b.collection); err != nil {
		errs = append(errs, fmt.Errorf("delete index: %w", err))
	}
	if err := b.client.CreateIndex(ctx, b.collection, b.dim, DistanceCosine); err != nil {
		errs = append(errs, fmt.Errorf("recreate index: %w", err))
	} else if idx, err := b.client.Index(b.collection); err != nil {
		errs = append(errs, fmt.Errorf("bind index: %w", err))
	} else {
		b.mu.Lock()
		b.index = idx
		b.mu.Unlock()
	}
	if err := errors.Join(errs...); err != nil {
		observability.RecordError(span, err)
		return failedOutcome(err)
	}
	return okOutcome()
}
