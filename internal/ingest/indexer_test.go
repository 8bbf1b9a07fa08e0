package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/embedding"
	"github.com/hyperjump/lumina/internal/extract"
	"github.com/hyperjump/lumina/internal/storage"
	"github.com/hyperjump/lumina/internal/vector"
)

const testDim = 8

func newTestStore(t *testing.T) *vector.Store {
	t.Helper()
	store, err := vector.NewStore(context.Background(), nil, vector.Options{Collection: "test", Dimension: testDim}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func newTestIndexer(t *testing.T, opts ...IndexerOption) (*Indexer, *vector.Store) {
	t.Helper()
	store := newTestStore(t)
	emb := embedding.NewMockEmbedder(testDim)
	t.Cleanup(func() { _ = emb.Close() })
	opts = append([]IndexerOption{WithLogger(zap.NewNop())}, opts...)
	return NewIndexer(store, emb, NewSplitter(40, 0), nil, opts...), store
}

func newRegistry(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "lumina.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{"md", []string{".txt", ".md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
	}
	for _, tt := range tests {
		if got := ExtensionAllowed(tt.ext, tt.allowed); got != tt.want {
			t.Errorf("ExtensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func TestIndexer_IngestTexts(t *testing.T) {
	idx, store := newTestIndexer(t)
	report, err := idx.IngestTexts(context.Background(),
		[]string{"short note", "aaaa bbbb cccc dddd eeee ffff gggg hhhh iiii jjjj kkkk", ""}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Documents != 2 {
		t.Errorf("documents = %d, want 2", report.Documents)
	}
	if report.Chunks < 3 || report.Stored != report.Chunks || report.Rejected != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if got := store.Status().Items; got != report.Stored {
		t.Errorf("store items = %d, want %d", got, report.Stored)
	}
}

func TestIndexer_IngestEmpty(t *testing.T) {
	idx, _ := newTestIndexer(t)
	report, err := idx.Ingest(context.Background(), nil)
	if err != nil || report != (IngestReport{}) {
		t.Errorf("got %+v, %v", report, err)
	}
}

func TestIndexer_RejectsWrongDimension(t *testing.T) {
	store := newTestStore(t)
	idx := NewIndexer(store, embedding.NewMockEmbedder(testDim/2), NewSplitter(100, 0), nil)
	report, err := idx.IngestTexts(context.Background(), []string{"one", "two"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Stored != 0 || report.Rejected != 2 {
		t.Errorf("unexpected report %+v", report)
	}
}

type failingEmbedder struct{ embedding.Embedder }

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func TestIndexer_EmbedFailure(t *testing.T) {
	store := newTestStore(t)
	idx := NewIndexer(store, failingEmbedder{embedding.NewMockEmbedder(testDim)}, NewSplitter(100, 0), nil)
	if _, err := idx.IngestTexts(context.Background(), []string{"text"}, nil); err == nil {
		t.Fatal("expected error when embedding fails")
	}
	if store.Status().Items != 0 {
		t.Error("nothing should be stored")
	}
}

func TestIndexer_IngestJSON(t *testing.T) {
	idx, store := newTestIndexer(t)
	report, err := idx.IngestJSON(context.Background(), map[string]interface{}{"k": "v"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if report.Stored == 0 || store.Status().Items != report.Stored {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestIndexer_IngestURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>Runbooks live in the ops wiki.</p></body></html>"))
	}))
	defer srv.Close()

	web := extract.NewWebLoader(time.Second, extract.WithHTTPClient(srv.Client()))
	idx, _ := newTestIndexer(t, WithWebLoader(web))
	report, err := idx.IngestURLs(context.Background(), []string{srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if report.Documents != 1 || report.Stored == 0 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestIndexer_IngestFileSkipsUnchanged(t *testing.T) {
	reg := newRegistry(t)
	idx, store := newTestIndexer(t, WithRegistry(reg))
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("first version of the notes"), 0600); err != nil {
		t.Fatal(err)
	}

	first, err := idx.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Files != 1 || first.Stored == 0 {
		t.Fatalf("unexpected first report %+v", first)
	}
	items := store.Status().Items

	second, err := idx.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.Skipped != 1 || second.Stored != 0 {
		t.Errorf("unchanged file should be skipped: %+v", second)
	}
	if store.Status().Items != items {
		t.Error("skipped file must not add items")
	}

	src, err := reg.GetSource(ctx, FileID(path))
	if err != nil || src == nil {
		t.Fatalf("source not recorded: %v", err)
	}
	if src.Chunks != first.Stored {
		t.Errorf("recorded chunks = %d, want %d", src.Chunks, first.Stored)
	}

	if err := os.WriteFile(path, []byte("second, longer version of the notes"), 0600); err != nil {
		t.Fatal(err)
	}
	third, err := idx.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if third.Skipped != 0 || third.Files != 1 {
		t.Errorf("changed file should be ingested: %+v", third)
	}
}

func TestIndexer_ClearResetsRegistry(t *testing.T) {
	reg := newRegistry(t)
	idx, store := newTestIndexer(t, WithRegistry(reg))
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.md")
	if err := os.WriteFile(path, []byte("# Title\n\nBody text"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.IngestFile(ctx, path, nil); err != nil {
		t.Fatal(err)
	}
	if !idx.Clear(ctx) {
		t.Fatal("Clear returned false")
	}
	if store.Status().Items != 0 {
		t.Error("store should be empty after clear")
	}
	again, err := idx.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.Skipped != 0 || again.Files != 1 {
		t.Errorf("file should be ingested again after clear: %+v", again)
	}
}

func TestIndexer_IngestFileErrors(t *testing.T) {
	idx, _ := newTestIndexer(t)
	ctx := context.Background()
	dir := t.TempDir()
	goFile := filepath.Join(dir, "main.go")
	if err := os.WriteFile(goFile, []byte("package main"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.IngestFile(ctx, goFile, []string{".txt"}); err == nil {
		t.Error("expected error for disallowed extension")
	}
	if _, err := idx.IngestFile(ctx, filepath.Join(dir, "missing.txt"), nil); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := idx.IngestFile(ctx, dir, nil); err == nil {
		t.Error("expected error for directory")
	}
}

func TestIndexer_IngestDirectory(t *testing.T) {
	idx, store := newTestIndexer(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "a.txt"): "alpha document",
		filepath.Join(sub, "b.md"):  "beta document",
		filepath.Join(dir, "c.go"):  "package c",
		filepath.Join(dir, "d.pdf"): "not really a pdf",
	}
	for p, content := range files {
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	report, err := idx.IngestPath(context.Background(), dir, []string{".txt", ".md", ".pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if report.Files != 2 {
		t.Errorf("files = %d, want 2 (broken pdf skipped, .go filtered)", report.Files)
	}
	if store.Status().Items != report.Stored || report.Stored < 2 {
		t.Errorf("unexpected report %+v", report)
	}

	if _, err := idx.IngestDirectory(context.Background(), filepath.Join(dir, "a.txt"), nil); err == nil ||
		!strings.Contains(err.Error(), "not a directory") {
		t.Errorf("expected not a directory error, got %v", err)
	}
}

func TestIndexer_IngestUpload(t *testing.T) {
	idx, store := newTestIndexer(t)
	ctx := context.Background()
	tmp := filepath.Join(t.TempDir(), "upload-123.txt")
	if err := os.WriteFile(tmp, []byte("quarterly revenue grew"), 0600); err != nil {
		t.Fatal(err)
	}

	report, err := idx.IngestUpload(ctx, "report.txt", tmp, []string{".txt"})
	if err != nil {
		t.Fatal(err)
	}
	if report.Files != 1 || report.Stored != 1 {
		t.Fatalf("report = %+v", report)
	}
	emb := embedding.NewMockEmbedder(testDim)
	vec, _ := emb.Embed(ctx, "quarterly revenue grew")
	hits := store.Search(ctx, vec, 1)
	if len(hits) != 1 || hits[0].Source() != "report.txt" {
		t.Errorf("hits = %+v, want source report.txt", hits)
	}

	if _, err := idx.IngestUpload(ctx, "tool.exe", tmp, []string{".txt"}); err == nil {
		t.Error("expected error for disallowed upload extension")
	}
}
