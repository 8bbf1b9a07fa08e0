// Package extract loads documents from files, web pages, JSON payloads and raw texts.
// Each loader returns models.Document values carrying a source in their metadata.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/lumina/internal/models"
)

// Extractor turns document files into loaded documents.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Load reads the file at path and returns its documents. The source metadata is the
// file's base name.
// Returns an error if the file cannot be read or parsed.
func (e *Extractor) Load(path string) ([]models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.LoadBytes(content, ext, filepath.Base(path))
}

// LoadBytes parses content according to ext (with the leading dot, e.g. ".pdf").
// PDFs yield one document per page; CSV and XLSX yield one per row; everything else
// yields a single document. Unknown extensions are treated as plain text.
func (e *Extractor) LoadBytes(content []byte, ext, source string) ([]models.Document, error) {
	switch ext {
	case ".pdf":
		return loadPDF(content, source)
	case ".csv":
		return loadCSV(content, source)
	case ".xlsx":
		return loadExcel(content, source)
	case ".json":
		return loadJSONBytes(content, source)
	case ".html", ".htm":
		text, err := CleanHTML(strings.NewReader(string(content)))
		if err != nil {
			return nil, err
		}
		return single(text, source), nil
	case ".docx":
		text, err := extractDOCX(content)
		if err != nil {
			return nil, err
		}
		return single(text, source), nil
	default:
		text, err := decodeText(content)
		if err != nil {
			return nil, err
		}
		return single(text, source), nil
	}
}

func single(text, source string) []models.Document {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []models.Document{{Text: text, Metadata: map[string]interface{}{models.MetaSource: source}}}
}
