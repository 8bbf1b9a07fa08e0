// Package models defines core data structures for documents, chunks, queries, and answers.
package models

// Metadata keys set by loaders.
const (
	MetaSource = "source"
	MetaPage   = "page"
	MetaRow    = "row"
	MetaURL    = "url"
)

// Document is a loaded source unit (a PDF page, a CSV row, a web page) before splitting.
type Document struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Source returns the document's provenance, or "Unknown".
func (d *Document) Source() string {
	return sourceOf(d.Metadata)
}

func sourceOf(m map[string]interface{}) string {
	if m == nil {
		return "Unknown"
	}
	if s, ok := m[MetaSource].(string); ok && s != "" {
		return s
	}
	return "Unknown"
}

// CopyMetadata returns a shallow copy of m, never nil.
func CopyMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
