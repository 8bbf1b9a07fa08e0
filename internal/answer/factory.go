package answer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/config"
)

// NewProvider builds the language model provider named by cfg.Provider using apiKey.
func NewProvider(cfg config.SynthesisConfig, apiKey string) (Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAIProvider(apiKey, cfg.Model, cfg.MaxTokens, cfg.BaseURL), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey, cfg.Model, cfg.MaxTokens, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown synthesis provider: %s", cfg.Provider)
	}
}

// ForKey picks the synthesizer for a request: the language model when apiKey is valid,
// the evidence view otherwise. An empty apiKey falls back to the configured key.
func ForKey(cfg config.SynthesisConfig, apiKey string, logger *zap.Logger) (Synthesizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		apiKey = cfg.APIKey
	}
	if !ValidKey(apiKey) {
		return NewEvidenceSynthesizer(cfg.EvidenceBlocks, cfg.EvidenceChars), nil
	}
	p, err := NewProvider(cfg, apiKey)
	if err != nil {
		return nil, err
	}
	return NewLLMSynthesizer(p, logger), nil
}
