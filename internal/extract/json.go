package extract

import (
	"encoding/json"
	"fmt"

	"github.com/hyperjump/lumina/internal/models"
)

// DefaultJSONSource names documents loaded from JSON payloads without a source.
const DefaultJSONSource = "API_Response"

// LoadJSON renders data as indented JSON in a single document.
func LoadJSON(data interface{}, sourceName string) ([]models.Document, error) {
	if sourceName == "" {
		sourceName = DefaultJSONSource
	}
	text, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode JSON: %w", err)
	}
	return []models.Document{{
		Text:     string(text),
		Metadata: map[string]interface{}{models.MetaSource: sourceName},
	}}, nil
}

func loadJSONBytes(content []byte, source string) ([]models.Document, error) {
	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return LoadJSON(data, source)
}
