package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/app"
	"github.com/hyperjump/lumina/internal/config"
	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/internal/server"
)

type fakeWatch struct{ dirs []string }

func (f *fakeWatch) Directories() []string { return append([]string(nil), f.dirs...) }

func (f *fakeWatch) AddDirectory(path string, _ bool) error {
	f.dirs = append(f.dirs, path)
	return nil
}

func (f *fakeWatch) RemoveDirectory(path string) error {
	for i, d := range f.dirs {
		if d == path {
			f.dirs = append(f.dirs[:i], f.dirs[i+1:]...)
		}
	}
	return nil
}

func newTestServer(t *testing.T) (*Client, *app.App) {
	t.Helper()
	cfg := &config.Config{
		Vector:    config.VectorConfig{Backend: "none", Dimension: 16},
		Embedding: config.EmbeddingConfig{Provider: "mock"},
	}
	config.ApplyDefaults(cfg)
	a, err := app.New(context.Background(), cfg, zap.NewNop(), "test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	ts := httptest.NewServer(server.NewServer(a, &fakeWatch{}, "").Router())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/", nil), a
}

func TestClient_SearchAskStatusClear(t *testing.T) {
	ctx := context.Background()
	c, a := newTestServer(t)
	text := "Incident reviews are published within five business days of resolution."
	if _, err := a.Indexer.IngestTexts(ctx, []string{text}, nil); err != nil {
		t.Fatal(err)
	}

	resp, err := c.Search(ctx, &models.SearchQuery{Query: text, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].Text != text {
		t.Errorf("search: %+v", resp)
	}

	ans, err := c.Ask(ctx, &models.SearchQuery{Query: "when are incident reviews published"})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Mode != models.AnswerEvidence || len(ans.Sources) != 1 {
		t.Errorf("ask: %+v", ans)
	}

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Items != 1 || st.Backend != "local" {
		t.Errorf("status: %+v", st)
	}

	cleared, err := c.Clear(ctx)
	if err != nil || !cleared {
		t.Fatalf("clear: %v %v", cleared, err)
	}
	if a.Store.Status().Items != 0 {
		t.Error("store should be empty after clear")
	}
}

func TestClient_Watch(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestServer(t)
	dir := t.TempDir()

	if err := c.WatchAdd(ctx, dir); err != nil {
		t.Fatal(err)
	}
	dirs, err := c.WatchList(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 1 || dirs[0] != dir {
		t.Errorf("dirs: %v", dirs)
	}
	if err := c.WatchRemove(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if err := c.WatchAdd(ctx, filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error adding a missing directory")
	}
}

func TestClient_errors(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestServer(t)
	if _, err := c.Search(ctx, &models.SearchQuery{Query: ""}); err == nil {
		t.Error("expected error for empty query")
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer broken.Close()
	if _, err := NewClient(broken.URL, nil).Status(ctx); err == nil {
		t.Error("expected decode error")
	}

	unreachable := NewClient("http://127.0.0.1:1", nil)
	if _, err := unreachable.Status(ctx); err == nil {
		t.Error("expected connection error")
	}
}
