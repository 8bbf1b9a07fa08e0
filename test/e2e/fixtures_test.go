package e2e

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/lumina/internal/extract"
)

func TestEncode_extractable(t *testing.T) {
	e := extract.NewExtractor()
	title, body := "Sample title", "A passage with commas, full stops and digits like 42 that must survive every encoding."
	for _, ext := range FixtureExtensions {
		t.Run(ext, func(t *testing.T) {
			content, err := Encode(ext, title, body)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			docs, err := e.LoadBytes(content, ext, "sample"+ext)
			if err != nil {
				t.Fatalf("LoadBytes: %v", err)
			}
			if len(docs) == 0 {
				t.Fatal("no documents extracted")
			}
			var all strings.Builder
			for _, d := range docs {
				all.WriteString(d.Text)
			}
			if !strings.Contains(all.String(), body) {
				t.Errorf("extracted text %q does not contain the body", all.String())
			}
		})
	}
}

func TestEncode_unknownExtension(t *testing.T) {
	if _, err := Encode(".pptx", "t", "b"); err == nil {
		t.Error("expected error for unsupported fixture format")
	}
}

func TestCorpus_coversEveryFormat(t *testing.T) {
	seen := make(map[string]bool)
	names := make(map[string]bool)
	for _, e := range Corpus() {
		if names[e.Name] {
			t.Errorf("duplicate entry %q", e.Name)
		}
		names[e.Name] = true
		seen[filepath.Ext(e.Name)] = true
		if len(e.Body) <= 80 {
			t.Errorf("%s: body too short for the result filter", e.Name)
		}
	}
	for _, ext := range FixtureExtensions {
		if !seen[ext] {
			t.Errorf("corpus has no %s entry", ext)
		}
	}
}
