package extract

import (
	"strings"

	"github.com/hyperjump/lumina/internal/models"
)

// DefaultTextSource names raw texts submitted without metadata.
const DefaultTextSource = "Manual_Input"

// ProcessTexts wraps raw texts as documents. metadatas is matched by index and may be
// shorter than texts or nil. Blank texts are skipped.
func ProcessTexts(texts []string, metadatas []map[string]interface{}) []models.Document {
	docs := make([]models.Document, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		var meta map[string]interface{}
		if i < len(metadatas) {
			meta = metadatas[i]
		}
		meta = models.CopyMetadata(meta)
		if _, ok := meta[models.MetaSource]; !ok {
			meta[models.MetaSource] = DefaultTextSource
		}
		docs = append(docs, models.Document{Text: t, Metadata: meta})
	}
	return docs
}
