// Package storage defines the persistence interface for the chunk catalogue and the sources registry.
package storage

import (
	"context"

	"github.com/hyperjump/lumina/internal/models"
)

// Storage defines catalogue and sources-registry persistence operations.
type Storage interface {
	// Catalogue operations
	AppendChunks(ctx context.Context, chunks []models.Chunk) error
	LoadChunks(ctx context.Context) ([]models.Chunk, error)
	ClearChunks(ctx context.Context) error

	// Sources registry
	GetSource(ctx context.Context, id string) (*models.Source, error)
	PutSource(ctx context.Context, src *models.Source) error
	ListSources(ctx context.Context) ([]*models.Source, error)
	ClearSources(ctx context.Context) error

	// Stats
	CountChunks(ctx context.Context) (int64, error)
	CountSources(ctx context.Context) (int64, error)

	Close() error
}
