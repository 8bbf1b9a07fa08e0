// Package vector provides the dual-mode vector store: a remote index with a local cosine fallback.
package vector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/pkg/utils"
)

// DefaultTimeout bounds every remote call when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Options configures a Store.
type Options struct {
	Collection string
	Dimension  int
	Timeout    time.Duration
	// Persist, when set, receives every catalogue write and hydrates the catalogue on construction.
	Persist Persister
	// Backend labels the remote client in status and spans.
	Backend string
}

// Rejection records one item Add refused.
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// AddReport describes what Add did with a batch.
type AddReport struct {
	IDs      []string    `json:"ids"`
	Rejected []Rejection `json:"rejected,omitempty"`
	Remote   OutcomeKind `json:"-"`
	Local    OutcomeKind `json:"-"`
}

// Stored returns the number of accepted items.
func (r AddReport) Stored() int {
	return len(r.IDs)
}

// Status is a point-in-time view of the store.
type Status struct {
	Connected  bool   `json:"connected"`
	Backend    string `json:"backend"`
	Collection string `json:"collection"`
	Dimension  int    `json:"dimension"`
	Items      int    `json:"items"`
}

// Store coordinates a remote index with the local catalogue. Remote failures never
// surface to callers; every operation degrades to the catalogue instead.
type Store struct {
	opts      Options
	client    Client
	catalogue *Catalogue
	local     *LocalBackend
	remote    *RemoteBackend
	logger    *zap.Logger
}

// NewStore builds the store. A nil client means fallback-only mode. Remote setup
// failures are logged and leave the store disconnected; only invalid options or a
// failed catalogue hydration return an error.
func NewStore(ctx context.Context, client Client, opts Options, logger *zap.Logger) (*Store, error) {
	logger = utils.OrNop(logger)
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", opts.Dimension)
	}
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Backend == "" {
		opts.Backend = "remote"
	}

	cat := NewCatalogue()
	s := &Store{
		opts:      opts,
		client:    client,
		catalogue: cat,
		local:     NewLocalBackend(cat, opts.Dimension, opts.Persist),
		logger:    logger,
	}

	loaded, skipped, err := s.local.Hydrate(ctx)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warn("skipped persisted chunks with wrong dimension",
			zap.Int("skipped", skipped), zap.Int("dimension", opts.Dimension))
	}

	if client != nil {
		s.remote = NewRemoteBackend(client, opts.Backend, opts.Collection, opts.Dimension, opts.Timeout, cat, logger)
		if err := s.remote.Connect(ctx); err != nil {
			logger.Warn("remote vector index unavailable, using local catalogue",
				zap.String("backend", opts.Backend),
				zap.String("collection", opts.Collection),
				zap.Error(err))
		}
	}

	logger.Info("vector store ready",
		zap.Bool("connected", s.Connected()),
		zap.String("backend", s.backendLabel()),
		zap.String("collection", opts.Collection),
		zap.Int("dimension", opts.Dimension),
		zap.Int("items", loaded))
	return s, nil
}

// Connected reports whether the remote index is in use.
func (s *Store) Connected() bool {
	return s.remote != nil && s.remote.Connected()
}

func (s *Store) backendLabel() string {
	if s.Connected() {
		return s.opts.Backend
	}
	return "local"
}

// Add validates each chunk, assigns it a fresh id, inserts accepted vectors remotely
// when connected, and always appends them to the catalogue. Items with the wrong
// dimension or empty text are rejected individually; the rest of the batch continues.
func (s *Store) Add(ctx context.Context, chunks []models.Chunk) AddReport {
	report := AddReport{IDs: []string{}, Remote: OutcomeSkipped, Local: OutcomeSkipped}
	accepted := make([]models.Chunk, 0, len(chunks))
	for i, c := range chunks {
		switch {
		case len(c.Vector) != s.opts.Dimension:
			report.Rejected = append(report.Rejected, Rejection{
				Index:  i,
				Reason: fmt.Sprintf("dimension %d, want %d", len(c.Vector), s.opts.Dimension),
			})
			continue
		case strings.TrimSpace(c.Text) == "":
			report.Rejected = append(report.Rejected, Rejection{Index: i, Reason: "empty text"})
			continue
		}
		accepted = append(accepted, models.Chunk{
			ID:       uuid.NewString(),
			Text:     c.Text,
			Metadata: models.CopyMetadata(c.Metadata),
			Vector:   append([]float32(nil), c.Vector...),
		})
	}
	if len(report.Rejected) > 0 {
		s.logger.Warn("rejected chunks", zap.Int("rejected", len(report.Rejected)), zap.Int("submitted", len(chunks)))
	}
	if len(accepted) == 0 {
		return report
	}

	local := s.local.Add(ctx, accepted)
	report.Local = local.Kind
	if local.Kind == OutcomeFailed {
		s.logger.Warn("catalogue write-through failed", zap.Error(local.Err))
	}

	if s.remote != nil {
		remote := s.remote.Add(ctx, accepted)
		report.Remote = remote.Kind
		switch remote.Kind {
		case OutcomeFailed:
			s.logger.Warn("remote insert failed, items kept in local catalogue",
				zap.Int("items", len(accepted)), zap.Error(remote.Err))
		case OutcomeSkipped:
			s.logger.Debug("remote insert skipped, not connected")
		}
	}

	for _, c := range accepted {
		report.IDs = append(report.IDs, c.ID)
	}
	return report
}

// Search returns at most k chunks most similar to query. The remote index is tried
// first when connected; a failure, timeout, or unresolvable result set falls back to
// a cosine scan of the catalogue.
func (s *Store) Search(ctx context.Context, query []float32, k int) []models.ScoredChunk {
	if k <= 0 {
		return []models.ScoredChunk{}
	}
	if len(query) == s.opts.Dimension && utils.L2Norm(query) == 0 {
		return []models.ScoredChunk{}
	}

	if s.remote != nil && len(query) == s.opts.Dimension {
		results, out := s.remote.Search(ctx, query, k)
		switch out.Kind {
		case OutcomeOK:
			return results
		case OutcomeEmpty:
			s.logger.Debug("no remote matches resolved, using local catalogue")
		case OutcomeFailed:
			s.logger.Warn("remote query failed, using local catalogue", zap.Error(out.Err))
		case OutcomeSkipped:
		}
	}

	results, out := s.local.Search(ctx, query, k)
	switch out.Kind {
	case OutcomeOK:
		return results
	case OutcomeSkipped:
		s.logger.Debug("query rejected", zap.Int("dimension", len(query)), zap.Int("want", s.opts.Dimension))
	}
	return []models.ScoredChunk{}
}

// Clear empties the catalogue and its persisted copy, then recreates the remote index
// when connected. Returns true when the local clear succeeded.
func (s *Store) Clear(ctx context.Context) bool {
	cleared := true
	local := s.local.Clear(ctx)
	if local.Kind == OutcomeFailed {
		s.logger.Warn("clearing persisted catalogue failed", zap.Error(local.Err))
		cleared = false
	}
	if s.remote != nil {
		remote := s.remote.Clear(ctx)
		if remote.Kind == OutcomeFailed {
			s.logger.Warn("remote index reset failed", zap.String("collection", s.opts.Collection), zap.Error(remote.Err))
		}
	}
	s.logger.Info("knowledge base cleared", zap.Bool("connected", s.Connected()))
	return cleared
}

// Status reports connection state and catalogue size.
func (s *Store) Status() Status {
	return Status{
		Connected:  s.Connected(),
		Backend:    s.backendLabel(),
		Collection: s.opts.Collection,
		Dimension:  s.opts.Dimension,
		Items:      s.catalogue.Len(),
	}
}

// Close releases the remote client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
