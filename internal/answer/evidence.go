package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/pkg/utils"
)

const (
	evidenceHeader = "### Direct Evidence Analysis from Vector Store\n\n"
	evidenceNote   = "*(Note: No valid API key detected. Showing direct matches from the vector store.)*\n\n"
	evidenceFooter = "\n---\n*Synthesis produced from top semantic matches. If the results look like citations, clear the knowledge base and re-ingest the source.*"
)

// Default evidence layout.
const (
	DefaultEvidenceBlocks = 4
	DefaultEvidenceChars  = 800
)

// EvidenceSynthesizer presents the top chunks verbatim. It needs no external service.
type EvidenceSynthesizer struct {
	blocks int
	chars  int
}

// NewEvidenceSynthesizer shows up to blocks chunks of at most chars characters each.
// Non-positive values use the defaults.
func NewEvidenceSynthesizer(blocks, chars int) *EvidenceSynthesizer {
	if blocks <= 0 {
		blocks = DefaultEvidenceBlocks
	}
	if chars <= 0 {
		chars = DefaultEvidenceChars
	}
	return &EvidenceSynthesizer{blocks: blocks, chars: chars}
}

// Synthesize formats the chunks as numbered information blocks.
func (e *EvidenceSynthesizer) Synthesize(_ context.Context, query string, chunks []models.ScoredChunk) (*models.Answer, error) {
	if len(chunks) == 0 {
		return Empty(query), nil
	}
	var b strings.Builder
	b.WriteString(evidenceHeader)
	b.WriteString(evidenceNote)
	for i, c := range chunks {
		if i >= e.blocks {
			break
		}
		fmt.Fprintf(&b, "**Information Block %d:**\n%s\n\n", i+1, utils.Clip(c.Text, e.chars))
	}
	b.WriteString(evidenceFooter)
	return &models.Answer{
		Query:   query,
		Text:    b.String(),
		Mode:    models.AnswerEvidence,
		Sources: chunks,
	}, nil
}
