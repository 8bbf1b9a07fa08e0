package models

// AnswerMode records how an answer was produced.
type AnswerMode string

const (
	// AnswerLLM was generated by a language model from the retrieved chunks.
	AnswerLLM AnswerMode = "llm"
	// AnswerEvidence shows the retrieved chunks directly (no valid API key).
	AnswerEvidence AnswerMode = "evidence"
	// AnswerFallback is the evidence view shown after a language model call failed.
	AnswerFallback AnswerMode = "fallback"
	// AnswerEmpty means nothing relevant was retrieved.
	AnswerEmpty AnswerMode = "empty"
)

// Answer is the synthesized response to a question, with the chunks it was built from.
type Answer struct {
	Query     string        `json:"query"`
	Text      string        `json:"answer"`
	Mode      AnswerMode    `json:"mode"`
	Sources   []ScoredChunk `json:"sources"`
	QueryTime int64         `json:"query_time_ms"`
}
