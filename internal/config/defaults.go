package config

import "time"

// DefaultNoiseMarkers are the structural markers that identify table-of-contents and
// reference-list chunks.
var DefaultNoiseMarkers = []string{"contents", "references", "further reading", "navigation"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "qdrant"
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "enterprise_knowledge"
	}
	if cfg.Vector.Dimension == 0 {
		cfg.Vector.Dimension = 384
	}
	if cfg.Vector.Timeout == 0 {
		cfg.Vector.Timeout = 5 * time.Second
	}
	if cfg.Vector.Qdrant.Host == "" {
		cfg.Vector.Qdrant.Host = "localhost"
	}
	if cfg.Vector.Qdrant.Port == 0 {
		cfg.Vector.Qdrant.Port = 6334
	}
	if cfg.Vector.Postgres.MaxConns == 0 {
		cfg.Vector.Postgres.MaxConns = 4
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/lumina/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OpenAIModel == "" {
		cfg.Embedding.OpenAIModel = "text-embedding-3-small"
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.HTTPTimeout == 0 {
		cfg.Ingest.HTTPTimeout = 30 * time.Second
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".csv", ".json", ".html", ".htm", ".docx", ".xlsx"}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 15
	}
	if cfg.Retrieval.MaxLimit == 0 {
		cfg.Retrieval.MaxLimit = 100
	}
	if cfg.Retrieval.Filter.Markers == nil {
		cfg.Retrieval.Filter.Markers = append([]string(nil), DefaultNoiseMarkers...)
	}
	if cfg.Retrieval.Filter.MinLength == 0 {
		cfg.Retrieval.Filter.MinLength = 80
	}
	if cfg.Retrieval.Filter.MinKept == 0 {
		cfg.Retrieval.Filter.MinKept = 2
	}
	if cfg.Retrieval.Filter.FallbackCount == 0 {
		cfg.Retrieval.Filter.FallbackCount = 5
	}
	if cfg.Synthesis.Provider == "" {
		cfg.Synthesis.Provider = "openai"
	}
	if cfg.Synthesis.Model == "" {
		switch cfg.Synthesis.Provider {
		case "anthropic":
			cfg.Synthesis.Model = "claude-3-haiku-20240307"
		default:
			cfg.Synthesis.Model = "gpt-4o-mini"
		}
	}
	if cfg.Synthesis.MaxTokens == 0 {
		cfg.Synthesis.MaxTokens = 1024
	}
	if cfg.Synthesis.EvidenceBlocks == 0 {
		cfg.Synthesis.EvidenceBlocks = 4
	}
	if cfg.Synthesis.EvidenceChars == 0 {
		cfg.Synthesis.EvidenceChars = 800
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = append([]string(nil), cfg.Ingest.Extensions...)
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "lumina"
	}
	if cfg.Tracing.SampleRate == 0 {
		cfg.Tracing.SampleRate = 1.0
	}
}
