package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/lumina/internal/config"
	"github.com/hyperjump/lumina/pkg/utils"
)

func TestMockEmbedder_DeterministicUnitVectors(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()
	a1, _ := e.Embed(ctx, "hello")
	a2, _ := e.Embed(ctx, "hello")
	b, _ := e.Embed(ctx, "world")
	if len(a1) != 16 {
		t.Fatalf("len = %d", len(a1))
	}
	var norm float64
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("same text should produce the same embedding")
		}
		norm += float64(a1[i]) * float64(a1[i])
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("norm^2 = %v, want 1", norm)
	}
	same := true
	for i := range a1 {
		if a1[i] != b[i] {
			same = false
		}
	}
	if same {
		t.Error("different texts should produce different embeddings")
	}
}

func TestNewMockEmbedder_DefaultDimensions(t *testing.T) {
	if NewMockEmbedder(0).Dimensions() != 384 {
		t.Error("default dimension should be 384")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingConfig
		wantErr bool
	}{
		{"mock", config.EmbeddingConfig{Provider: "mock"}, false},
		{"onnx missing model falls back", config.EmbeddingConfig{Provider: "onnx", ModelPath: "/nonexistent/model.onnx", MaxTokens: 16, CacheSize: 4}, false},
		{"openai without key", config.EmbeddingConfig{Provider: "openai"}, true},
		{"openai with key", config.EmbeddingConfig{Provider: "openai", APIKey: "sk-test", CacheSize: 4}, false},
		{"unknown", config.EmbeddingConfig{Provider: "word2vec"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg, 32, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if e.Dimensions() != 32 {
					t.Errorf("Dimensions = %d, want 32", e.Dimensions())
				}
				_ = e.Close()
			}
		})
	}
}

func TestMockEmbedder_SharedWordsScoreHigher(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	doc, _ := e.Embed(ctx, "employees may work remotely three days a week")
	related, _ := e.Embed(ctx, "how many days a week can employees work remotely")
	unrelated, _ := e.Embed(ctx, "quarterly revenue grew in the northern region")
	if utils.Cosine(doc, related) <= utils.Cosine(doc, unrelated) {
		t.Errorf("related %.3f should beat unrelated %.3f",
			utils.Cosine(doc, related), utils.Cosine(doc, unrelated))
	}
}
