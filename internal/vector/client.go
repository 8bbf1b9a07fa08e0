package vector

import "context"

// Distance is the similarity metric of a remote index.
type Distance string

// DistanceCosine is the only metric Lumina creates indexes with.
const DistanceCosine Distance = "cosine"

// Match is a remote query hit.
type Match struct {
	ID    string
	Score float64
}

// Client manages indexes on a remote vector index service. Adapters confine all
// transport details; the store only sees this interface.
type Client interface {
	ListIndexes(ctx context.Context) ([]string, error)
	CreateIndex(ctx context.Context, name string, dim int, distance Distance) error
	DeleteIndex(ctx context.Context, name string) error
	Index(name string) (Index, error)
	Close() error
}

// Index is a handle to one remote index.
type Index interface {
	Insert(ctx context.Context, ids []string, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}
