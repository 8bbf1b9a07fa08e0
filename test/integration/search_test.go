// Package integration wires the config file, the app, the directory watcher, the HTTP
// server and the CLI client together against a local-only store.
package integration

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/app"
	"github.com/hyperjump/lumina/internal/cli"
	"github.com/hyperjump/lumina/internal/config"
	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/internal/server"
	"github.com/hyperjump/lumina/internal/watcher"
)

const configYAML = `storage:
  database_path: ./lumina.db
vector:
  backend: none
  dimension: 32
embedding:
  provider: mock
watch:
  directories:
    - ./docs
`

const handbook = `# Remote work

Employees may work remotely up to three days a week after their probation period.
Core collaboration hours are between ten and three in the office time zone.`

func TestIntegration_watchedFileIsSearchable(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "LUMINA_OPENAI_API_KEY", "ANTHROPIC_API_KEY", "LUMINA_ANTHROPIC_API_KEY"} {
		t.Setenv(k, "")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	docsDir := filepath.Join(dir, "docs")
	if cfg.Storage.DatabasePath != filepath.Join(dir, "lumina.db") || !slices.Equal(cfg.Watch.Directories, []string{docsDir}) {
		t.Fatalf("paths not resolved against the config dir: %+v %+v", cfg.Storage, cfg.Watch)
	}

	a, err := app.New(ctx, cfg, zap.NewNop(), "integration")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(context.Background())

	w := watcher.NewWatcher(a.Indexer, cfg.Watch.Directories, cfg.Ingest.Extensions, cfg.Watch.RecursiveOrDefault(),
		watcher.WithDebounce(50*time.Millisecond))
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	srv := httptest.NewServer(server.NewServer(a, w, configPath).Router())
	defer srv.Close()
	client := cli.NewClient(srv.URL, srv.Client())

	if err := os.WriteFile(filepath.Join(docsDir, "remote-work.md"), []byte(handbook), 0644); err != nil {
		t.Fatal(err)
	}

	query := &models.SearchQuery{Query: handbook, Limit: 3}
	var resp *models.SearchResponse
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = client.Search(ctx, query)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Total > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if resp == nil || resp.Total == 0 {
		t.Fatal("watched file was not ingested in time")
	}
	if got := resp.Results[0].Source(); got != "remote-work.md" {
		t.Errorf("top source = %q, want remote-work.md", got)
	}

	ans, err := client.Ask(ctx, &models.SearchQuery{Query: handbook})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Mode != models.AnswerEvidence || !strings.Contains(ans.Text, "three days a week") {
		t.Errorf("unexpected answer %+v", ans)
	}

	st, err := client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Items == 0 || st.Sources != 1 || st.Backend != "local" {
		t.Errorf("unexpected status %+v", st)
	}

	extra := filepath.Join(dir, "wiki")
	if err := os.Mkdir(extra, 0755); err != nil {
		t.Fatal(err)
	}
	if err := client.WatchAdd(ctx, extra); err != nil {
		t.Fatal(err)
	}
	saved, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(saved.Watch.Directories, extra) {
		t.Errorf("watch directory not persisted: %v", saved.Watch.Directories)
	}
}
