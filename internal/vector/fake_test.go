package vector

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/hyperjump/lumina/pkg/utils"
)

var errUnavailable = errors.New("connection refused")

// fakeClient is an in-memory Client with injectable failures.
type fakeClient struct {
	mu        sync.Mutex
	indexes   map[string]int
	listErr   error
	createErr error
	deleteErr error
	created   int
	deleted   int
	index     *fakeIndex
	closed    bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{indexes: make(map[string]int), index: newFakeIndex()}
}

func (c *fakeClient) ListIndexes(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	names := make([]string, 0, len(c.indexes))
	for n := range c.indexes {
		names = append(names, n)
	}
	return names, nil
}

func (c *fakeClient) CreateIndex(_ context.Context, name string, dim int, _ Distance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return c.createErr
	}
	c.indexes[name] = dim
	c.created++
	return nil
}

func (c *fakeClient) DeleteIndex(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.indexes, name)
	c.deleted++
	c.index.reset()
	return nil
}

func (c *fakeClient) Index(string) (Index, error) {
	return c.index, nil
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

// fakeIndex answers queries by exact cosine over inserted vectors, or with fixed matches.
type fakeIndex struct {
	mu        sync.Mutex
	ids       []string
	vectors   [][]float32
	insertErr error
	queryErr  error
	block     bool
	fixed     []Match
	queries   int
	inserts   int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{}
}

func (i *fakeIndex) reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = nil
	i.vectors = nil
}

func (i *fakeIndex) Insert(_ context.Context, ids []string, vectors [][]float32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.inserts++
	if i.insertErr != nil {
		return i.insertErr
	}
	i.ids = append(i.ids, ids...)
	i.vectors = append(i.vectors, vectors...)
	return nil
}

func (i *fakeIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	i.mu.Lock()
	i.queries++
	block, queryErr, fixed := i.block, i.queryErr, i.fixed
	ids := append([]string(nil), i.ids...)
	vectors := append([][]float32(nil), i.vectors...)
	i.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if queryErr != nil {
		return nil, queryErr
	}
	if fixed != nil {
		return fixed, nil
	}
	matches := make([]Match, len(ids))
	for n := range ids {
		matches[n] = Match{ID: ids[n], Score: utils.Cosine(vector, vectors[n])}
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (i *fakeIndex) queryCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.queries
}
