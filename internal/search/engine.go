// Package search runs retrieval over the vector store and answers questions from it.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/answer"
	"github.com/hyperjump/lumina/internal/config"
	"github.com/hyperjump/lumina/internal/embedding"
	"github.com/hyperjump/lumina/internal/filter"
	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/internal/vector"
	"github.com/hyperjump/lumina/pkg/utils"
)

// Engine embeds queries, searches the store, filters the hits and synthesizes answers.
type Engine struct {
	store     *vector.Store
	embedder  embedding.Embedder
	filter    *filter.Filter
	retrieval config.RetrievalConfig
	synthesis config.SynthesisConfig
	logger    *zap.Logger
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	store *vector.Store,
	embedder embedding.Embedder,
	f *filter.Filter,
	retrieval config.RetrievalConfig,
	synthesis config.SynthesisConfig,
	logger *zap.Logger,
) *Engine {
	if f == nil {
		f = filter.New(filter.Options{})
	}
	return &Engine{
		store:     store,
		embedder:  embedder,
		filter:    f,
		retrieval: retrieval,
		synthesis: synthesis,
		logger:    utils.OrNop(logger),
	}
}

// Search embeds the query and returns the nearest chunks, unfiltered.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.retrieval.TopK); err != nil {
		return nil, err
	}
	results, err := e.retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	return &models.SearchResponse{
		Query:     query.Query,
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(startTime).Milliseconds(),
	}, nil
}

// Ask retrieves the top chunks, filters out low-signal ones and synthesizes an answer.
// The language model is used only when the request or configuration carries a valid key.
func (e *Engine) Ask(ctx context.Context, query *models.SearchQuery) (*models.Answer, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.retrieval.TopK); err != nil {
		return nil, err
	}
	results, err := e.retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	kept := e.filter.Apply(results)
	e.logger.Debug("filtered retrieval results",
		zap.String("query", query.Query),
		zap.Int("retrieved", len(results)),
		zap.Int("kept", len(kept)))

	var ans *models.Answer
	if len(kept) == 0 {
		ans = answer.Empty(query.Query)
	} else {
		synth, err := answer.ForKey(e.synthesis, query.APIKey, e.logger)
		if err != nil {
			return nil, err
		}
		ans, err = synth.Synthesize(ctx, query.Query, kept)
		if err != nil {
			return nil, fmt.Errorf("synthesize answer: %w", err)
		}
	}
	ans.QueryTime = time.Since(startTime).Milliseconds()
	return ans, nil
}

func (e *Engine) retrieve(ctx context.Context, query *models.SearchQuery) ([]models.ScoredChunk, error) {
	vec, err := e.embedder.Embed(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return e.store.Search(ctx, vec, query.Limit), nil
}
