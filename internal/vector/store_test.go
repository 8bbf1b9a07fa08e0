package vector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/internal/storage"
)

func newTestStore(t *testing.T, client Client, dim int) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), client, Options{
		Collection: "enterprise_knowledge",
		Dimension:  dim,
		Timeout:    200 * time.Millisecond,
		Backend:    "fake",
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func chunk(text string, v ...float32) models.Chunk {
	return models.Chunk{Text: text, Metadata: map[string]interface{}{"source": text}, Vector: v}
}

func TestNewStore_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	if _, err := NewStore(ctx, nil, Options{Collection: "c", Dimension: 0}, nil); err == nil {
		t.Error("expected error for zero dimension")
	}
	if _, err := NewStore(ctx, nil, Options{Dimension: 3}, nil); err == nil {
		t.Error("expected error for empty collection")
	}
}

func TestNewStore_CreatesMissingIndex(t *testing.T) {
	client := newFakeClient()
	s := newTestStore(t, client, 3)
	if !s.Connected() {
		t.Fatal("store should be connected")
	}
	if client.created != 1 || client.indexes["enterprise_knowledge"] != 3 {
		t.Errorf("expected index created with dim 3, got created=%d indexes=%v", client.created, client.indexes)
	}
	st := s.Status()
	if !st.Connected || st.Backend != "fake" || st.Collection != "enterprise_knowledge" || st.Dimension != 3 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestNewStore_ReusesExistingIndex(t *testing.T) {
	client := newFakeClient()
	client.indexes["enterprise_knowledge"] = 3
	s := newTestStore(t, client, 3)
	if !s.Connected() {
		t.Fatal("store should be connected")
	}
	if client.created != 0 {
		t.Errorf("existing index should not be recreated, created=%d", client.created)
	}
}

func TestNewStore_ConstructionFailureFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *fakeClient)
	}{
		{"list fails", func(c *fakeClient) { c.listErr = errUnavailable }},
		{"create fails", func(c *fakeClient) { c.createErr = errUnavailable }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			tt.setup(client)
			s := newTestStore(t, client, 2)
			if s.Connected() {
				t.Fatal("store should not be connected")
			}
			if st := s.Status(); st.Backend != "local" {
				t.Errorf("backend = %q, want local", st.Backend)
			}
			report := s.Add(context.Background(), []models.Chunk{chunk("alpha", 1, 0)})
			if report.Stored() != 1 || report.Remote != OutcomeSkipped {
				t.Errorf("unexpected report %+v", report)
			}
			if client.index.inserts != 0 {
				t.Error("no remote insert should be attempted when disconnected")
			}
			got := s.Search(context.Background(), []float32{1, 0}, 1)
			if len(got) != 1 || got[0].Text != "alpha" {
				t.Errorf("fallback search failed: %+v", got)
			}
			if client.index.queryCount() != 0 {
				t.Error("no remote query should be attempted when disconnected")
			}
		})
	}
}

func TestStore_NilClientIsFallbackOnly(t *testing.T) {
	s := newTestStore(t, nil, 2)
	if s.Connected() {
		t.Fatal("nil client must not be connected")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for _, client := range []Client{nil, newFakeClient()} {
		name := "local"
		if client != nil {
			name = "remote"
		}
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, client, 3)
			report := s.Add(context.Background(), []models.Chunk{chunk("the only chunk", 0.2, 0.5, 0.9)})
			if report.Stored() != 1 {
				t.Fatalf("expected 1 stored, got %+v", report)
			}
			got := s.Search(context.Background(), []float32{0.2, 0.5, 0.9}, 1)
			if len(got) != 1 {
				t.Fatalf("expected 1 result, got %d", len(got))
			}
			if got[0].ID != report.IDs[0] || got[0].Text != "the only chunk" {
				t.Errorf("unexpected result %+v", got[0])
			}
			if math.Abs(got[0].Score-1.0) > 1e-6 {
				t.Errorf("score = %v, want 1.0", got[0].Score)
			}
		})
	}
}

func TestStore_CosineFallback(t *testing.T) {
	s := newTestStore(t, nil, 2)
	s.Add(context.Background(), []models.Chunk{chunk("x axis", 1, 0), chunk("y axis", 0, 1)})

	got := s.Search(context.Background(), []float32{1, 0}, 1)
	if len(got) != 1 || got[0].Text != "x axis" || got[0].Score != 1.0 {
		t.Fatalf("k=1: unexpected %+v", got)
	}

	got = s.Search(context.Background(), []float32{1, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("k=2: expected 2 results, got %d", len(got))
	}
	if got[0].Text != "x axis" || got[1].Text != "y axis" || got[1].Score != 0.0 {
		t.Errorf("k=2: unexpected %+v", got)
	}
}

func TestStore_SearchBoundsAndUniqueness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, client := range []Client{nil, newFakeClient()} {
		s := newTestStore(t, client, 4)
		var batch []models.Chunk
		for i := 0; i < 25; i++ {
			batch = append(batch, chunk(fmt.Sprintf("chunk %d", i), rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32()))
		}
		s.Add(context.Background(), batch)

		for _, k := range []int{1, 5, 25, 40} {
			q := []float32{rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32()}
			got := s.Search(context.Background(), q, k)
			if len(got) > k {
				t.Errorf("k=%d: got %d results", k, len(got))
			}
			seen := make(map[string]bool)
			for i, r := range got {
				if seen[r.ID] {
					t.Errorf("k=%d: duplicate id %s", k, r.ID)
				}
				seen[r.ID] = true
				if i > 0 && r.Score > got[i-1].Score+1e-9 {
					t.Errorf("k=%d: results not sorted by score", k)
				}
			}
		}
	}
}

func TestStore_SearchEdgeCases(t *testing.T) {
	client := newFakeClient()
	s := newTestStore(t, client, 2)

	if got := s.Search(context.Background(), []float32{1, 0}, 3); len(got) != 0 {
		t.Errorf("empty catalogue: got %d results", len(got))
	}
	s.Add(context.Background(), []models.Chunk{chunk("alpha", 1, 0)})

	tests := []struct {
		name  string
		query []float32
		k     int
	}{
		{"zero k", []float32{1, 0}, 0},
		{"negative k", []float32{1, 0}, -1},
		{"zero norm query", []float32{0, 0}, 3},
		{"wrong dimension", []float32{1, 0, 0}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := client.index.queryCount()
			got := s.Search(context.Background(), tt.query, tt.k)
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty non-nil result, got %+v", got)
			}
			if client.index.queryCount() != before {
				t.Error("remote query should not be attempted")
			}
		})
	}
}

func TestStore_DimensionMismatchRejectedPerItem(t *testing.T) {
	client := newFakeClient()
	s := newTestStore(t, client, 3)
	report := s.Add(context.Background(), []models.Chunk{
		chunk("good one", 1, 0, 0),
		chunk("too short", 1, 0),
		chunk("good two", 0, 1, 0),
		chunk("too long", 1, 0, 0, 0),
		{Text: "   ", Vector: []float32{0, 0, 1}},
	})
	if report.Stored() != 2 {
		t.Errorf("stored = %d, want 2", report.Stored())
	}
	if len(report.Rejected) != 3 {
		t.Fatalf("rejected = %d, want 3", len(report.Rejected))
	}
	for i, want := range []int{1, 3, 4} {
		if report.Rejected[i].Index != want {
			t.Errorf("rejection %d: index %d, want %d", i, report.Rejected[i].Index, want)
		}
	}
	if s.Status().Items != 2 {
		t.Errorf("catalogue items = %d, want 2", s.Status().Items)
	}
	if len(client.index.ids) != 2 {
		t.Errorf("remote items = %d, want 2", len(client.index.ids))
	}
}

func TestStore_AddAssignsFreshIDs(t *testing.T) {
	s := newTestStore(t, nil, 2)
	in := chunk("same content", 1, 1)
	in.ID = "caller-id"
	r1 := s.Add(context.Background(), []models.Chunk{in})
	r2 := s.Add(context.Background(), []models.Chunk{in})
	if r1.IDs[0] == "caller-id" || r1.IDs[0] == r2.IDs[0] {
		t.Errorf("ids should be fresh per insert: %v %v", r1.IDs, r2.IDs)
	}
	if s.Status().Items != 2 {
		t.Errorf("re-adding identical content should create a new entry, items=%d", s.Status().Items)
	}
}

func TestStore_RemoteInsertFailureStillStoresLocally(t *testing.T) {
	client := newFakeClient()
	client.index.insertErr = errUnavailable
	s := newTestStore(t, client, 2)
	report := s.Add(context.Background(), []models.Chunk{chunk("alpha", 1, 0)})
	if report.Remote != OutcomeFailed {
		t.Errorf("remote outcome = %v, want failed", report.Remote)
	}
	if report.Stored() != 1 || s.Status().Items != 1 {
		t.Errorf("item should be in the catalogue: %+v", report)
	}
}

func TestStore_RemoteQueryFailureFallsBack(t *testing.T) {
	client := newFakeClient()
	s := newTestStore(t, client, 2)
	s.Add(context.Background(), []models.Chunk{chunk("x axis", 1, 0), chunk("y axis", 0, 1)})
	client.index.queryErr = errUnavailable

	got := s.Search(context.Background(), []float32{0, 1}, 1)
	if len(got) != 1 || got[0].Text != "y axis" || got[0].Score != 1.0 {
		t.Errorf("expected cosine fallback result, got %+v", got)
	}
	if client.index.queryCount() != 1 {
		t.Errorf("remote query should have been attempted once, got %d", client.index.queryCount())
	}
}

func TestStore_RemoteTimeoutFallsBack(t *testing.T) {
	client := newFakeClient()
	s, err := NewStore(context.Background(), client, Options{
		Collection: "k", Dimension: 2, Timeout: 20 * time.Millisecond, Backend: "fake",
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	s.Add(context.Background(), []models.Chunk{chunk("x axis", 1, 0)})
	client.index.mu.Lock()
	client.index.block = true
	client.index.mu.Unlock()

	start := time.Now()
	got := s.Search(context.Background(), []float32{1, 0}, 1)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("search took %v, timeout not applied", elapsed)
	}
	if len(got) != 1 || got[0].Text != "x axis" {
		t.Errorf("expected fallback result after timeout, got %+v", got)
	}
}

func TestStore_RemoteResultsResolvedAgainstCatalogue(t *testing.T) {
	client := newFakeClient()
	s := newTestStore(t, client, 2)
	report := s.Add(context.Background(), []models.Chunk{chunk("first", 1, 0), chunk("second", 0, 1)})
	client.index.fixed = []Match{
		{ID: "ghost", Score: 0.99},
		{ID: report.IDs[1], Score: 0.8},
		{ID: report.IDs[0], Score: 0.1},
	}

	got := s.Search(context.Background(), []float32{1, 0}, 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 resolved results, got %d", len(got))
	}
	if got[0].Text != "second" || got[0].Score != 0.8 || got[1].Text != "first" {
		t.Errorf("results should follow remote order: %+v", got)
	}
	if got[0].Source() != "second" {
		t.Errorf("metadata should come from the catalogue, got %v", got[0].Metadata)
	}
}

func TestStore_UnresolvableRemoteResultsFallBack(t *testing.T) {
	client := newFakeClient()
	s := newTestStore(t, client, 2)
	s.Add(context.Background(), []models.Chunk{chunk("first", 1, 0)})
	client.index.fixed = []Match{{ID: "ghost-1", Score: 0.9}, {ID: "ghost-2", Score: 0.8}}

	got := s.Search(context.Background(), []float32{1, 0}, 2)
	if len(got) != 1 || got[0].Text != "first" {
		t.Errorf("expected catalogue fallback, got %+v", got)
	}
}

func TestStore_ClearTwice(t *testing.T) {
	client := newFakeClient()
	s := newTestStore(t, client, 2)
	s.Add(context.Background(), []models.Chunk{chunk("alpha", 1, 0)})

	for i := 0; i < 2; i++ {
		if !s.Clear(context.Background()) {
			t.Errorf("Clear #%d returned false", i+1)
		}
		if s.Status().Items != 0 {
			t.Errorf("Clear #%d left %d items", i+1, s.Status().Items)
		}
	}
	if client.deleted != 2 {
		t.Errorf("remote index should be deleted on each clear, got %d", client.deleted)
	}
	if client.indexes["enterprise_knowledge"] != 2 {
		t.Error("remote index should be recreated with the same dimension")
	}
	if !s.Connected() {
		t.Error("store should stay connected after clear")
	}
	if got := s.Search(context.Background(), []float32{1, 0}, 1); len(got) != 0 {
		t.Errorf("search after clear: got %+v", got)
	}
}

func TestStore_ClearSucceedsWhenRemoteFails(t *testing.T) {
	client := newFakeClient()
	s := newTestStore(t, client, 2)
	s.Add(context.Background(), []models.Chunk{chunk("alpha", 1, 0)})
	client.deleteErr = errUnavailable
	client.createErr = errUnavailable

	if !s.Clear(context.Background()) {
		t.Error("Clear should succeed when only the remote reset fails")
	}
	if s.Status().Items != 0 {
		t.Error("catalogue should be empty")
	}
}

func TestStore_PersistHydratesCatalogue(t *testing.T) {
	db, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "catalogue.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	opts := Options{Collection: "k", Dimension: 2, Persist: db}

	s1, err := NewStore(ctx, nil, opts, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	report := s1.Add(ctx, []models.Chunk{chunk("x axis", 1, 0), chunk("y axis", 0, 1)})

	s2, err := NewStore(ctx, nil, opts, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if s2.Status().Items != 2 {
		t.Fatalf("hydrated items = %d, want 2", s2.Status().Items)
	}
	got := s2.Search(ctx, []float32{0, 1}, 1)
	if len(got) != 1 || got[0].ID != report.IDs[1] || got[0].Source() != "y axis" {
		t.Errorf("unexpected hydrated search result %+v", got)
	}

	if !s2.Clear(ctx) {
		t.Fatal("Clear returned false")
	}
	s3, err := NewStore(ctx, nil, opts, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if s3.Status().Items != 0 {
		t.Errorf("persisted catalogue should be empty after clear, got %d", s3.Status().Items)
	}
}

func TestStore_ConcurrentAddAndSearch(t *testing.T) {
	s := newTestStore(t, newFakeClient(), 2)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				s.Add(context.Background(), []models.Chunk{chunk(fmt.Sprintf("w%d-%d", w, i), float32(w+1), float32(i))})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if got := s.Search(context.Background(), []float32{1, 1}, 5); len(got) > 5 {
					t.Errorf("got %d results for k=5", len(got))
				}
			}
		}()
	}
	wg.Wait()
	if s.Status().Items != 80 {
		t.Errorf("items = %d, want 80", s.Status().Items)
	}
}
