// Package cli provides output formatting and the HTTP client used by the Lumina CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/lumina/internal/app"
	"github.com/hyperjump/lumina/internal/ingest"
	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// previewChars bounds the chunk text shown per search result in text output.
const previewChars = 300

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for i, result := range response.Results {
		writeOneResult(w, i+1, result)
	}
	return nil
}

func writeOneResult(w io.Writer, rank int, result models.ScoredChunk) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f | Source: %s\n", rank, result.Score, result.Source())
	if page, ok := result.Metadata[models.MetaPage]; ok {
		fmt.Fprintf(w, "Page: %v\n", page)
	}
	if row, ok := result.Metadata[models.MetaRow]; ok {
		fmt.Fprintf(w, "Row: %v\n", row)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Text, previewChars))
}

// WriteAnswer writes an answer and the sources it was built from.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	fmt.Fprintf(w, "\n%s\n\n", ans.Text)
	if len(ans.Sources) == 0 {
		return nil
	}
	fmt.Fprintf(w, "Sources (%s, %dms):\n", ans.Mode, ans.QueryTime)
	seen := make(map[string]bool, len(ans.Sources))
	for _, src := range ans.Sources {
		name := src.Source()
		if seen[name] {
			continue
		}
		seen[name] = true
		fmt.Fprintf(w, "  - %s\n", name)
	}
	return nil
}

// WriteIngestReport writes the outcome of an ingest command.
func WriteIngestReport(w io.Writer, report ingest.IngestReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Ingested %d document(s) into %d chunk(s): %d stored, %d rejected\n",
		report.Documents, report.Chunks, report.Stored, report.Rejected)
	if report.Files > 0 || report.Skipped > 0 {
		fmt.Fprintf(w, "Files: %d ingested, %d unchanged\n", report.Files, report.Skipped)
	}
	return nil
}

// WriteStatus writes the knowledge base status.
func WriteStatus(w io.Writer, status *app.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "connected:          %t   # remote vector index reachable\n", status.Connected)
	fmt.Fprintf(w, "backend:            %s\n", status.Backend)
	fmt.Fprintf(w, "collection:         %s\n", status.Collection)
	fmt.Fprintf(w, "dimension:          %d\n", status.Dimension)
	fmt.Fprintf(w, "items:              %d   # chunks in the local catalogue\n", status.Items)
	fmt.Fprintf(w, "sources:            %d   # files in the sources registry\n", status.Sources)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # sqlite catalogue on disk\n", *status.DiskUsageBytes)
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "embedding_provider: %s\n", c.EmbeddingProvider)
		if c.SynthesisProvider != "" {
			fmt.Fprintf(w, "synthesis:          %s %s\n", c.SynthesisProvider, c.SynthesisModel)
		}
		fmt.Fprintf(w, "chunk_size:         %d\n", c.ChunkSize)
		fmt.Fprintf(w, "chunk_overlap:      %d\n", c.ChunkOverlap)
		fmt.Fprintf(w, "top_k:              %d\n", c.TopK)
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		}
		fmt.Fprintf(w, "tracing_enabled:    %t\n", c.TracingEnabled)
	}
	return nil
}
