// Package answer turns retrieved chunks into an answer, either through a language model
// or by presenting the evidence directly.
package answer

import (
	"context"
	"strings"

	"github.com/hyperjump/lumina/internal/models"
)

// EmptyAnswerText is returned when no chunk survives retrieval and filtering.
const EmptyAnswerText = "No relevant knowledge found."

// Synthesizer builds an answer to query from chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, chunks []models.ScoredChunk) (*models.Answer, error)
}

// ValidKey reports whether key looks like a usable API key: after trimming it must start
// with "sk-" or be longer than 40 characters.
func ValidKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	return strings.HasPrefix(key, "sk-") || len(key) > 40
}

// Empty returns the answer given when nothing relevant was retrieved.
func Empty(query string) *models.Answer {
	return &models.Answer{
		Query:   query,
		Text:    EmptyAnswerText,
		Mode:    models.AnswerEmpty,
		Sources: []models.ScoredChunk{},
	}
}
