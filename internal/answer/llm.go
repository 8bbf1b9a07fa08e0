package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/internal/observability"
	"github.com/hyperjump/lumina/pkg/utils"
)

// SystemPrompt instructs the model to answer only from the supplied chunks.
const SystemPrompt = "You are a senior technical expert. Answer the question specifically using the provided Data Chunks. " +
	"Be highly detailed and avoid mentioning 'Match numbers'. If the information is missing, explain exactly what part " +
	"of the user query wasn't covered in the source text."

// Fallback layout after a failed generation.
const (
	fallbackChunks = 3
	fallbackChars  = 500
)

// Provider completes a single system and user prompt pair.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// LLMSynthesizer asks a language model to answer from the retrieved chunks. A failed call
// degrades to an evidence view of the top chunks instead of an error.
type LLMSynthesizer struct {
	provider Provider
	logger   *zap.Logger
}

// NewLLMSynthesizer wraps provider.
func NewLLMSynthesizer(provider Provider, logger *zap.Logger) *LLMSynthesizer {
	return &LLMSynthesizer{provider: provider, logger: utils.OrNop(logger)}
}

// Synthesize sends the chunks and question to the provider.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, query string, chunks []models.ScoredChunk) (*models.Answer, error) {
	if len(chunks) == 0 {
		return Empty(query), nil
	}
	ctx, span := observability.StartSynthesisSpan(ctx, s.provider.Name(), s.provider.Model(), len(chunks))
	defer span.End()

	text, err := s.provider.Complete(ctx, SystemPrompt, UserPrompt(query, chunks))
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%s returned an empty completion", s.provider.Name())
	}
	if err != nil {
		observability.RecordError(span, err)
		s.logger.Warn("answer generation failed, showing retrieved chunks",
			zap.String("provider", s.provider.Name()),
			zap.String("model", s.provider.Model()),
			zap.Error(err))
		return &models.Answer{
			Query:   query,
			Text:    fallbackText(err, chunks),
			Mode:    models.AnswerFallback,
			Sources: chunks,
		}, nil
	}
	return &models.Answer{
		Query:   query,
		Text:    text,
		Mode:    models.AnswerLLM,
		Sources: chunks,
	}, nil
}

// UserPrompt numbers the chunks and appends the question.
func UserPrompt(query string, chunks []models.ScoredChunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("DATA CHUNK %d:\n%s", i+1, c.Text)
	}
	return "DATA CHUNKS:\n" + strings.Join(blocks, "\n\n") + "\n\nUSER QUESTION: " + query
}

func fallbackText(err error, chunks []models.ScoredChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generation error: %v\n\n*Falling back to local data view...*\n\n", err)
	for i, c := range chunks {
		if i >= fallbackChunks {
			break
		}
		fmt.Fprintf(&b, "**[%d]** %s...\n\n", i+1, utils.Clip(c.Text, fallbackChars))
	}
	return b.String()
}
