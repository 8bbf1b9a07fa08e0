// Package config provides configuration loading and structs for the Lumina server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Watch     WatchConfig     `yaml:"watch"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the path of the SQLite database backing the catalogue.
// An empty path keeps the catalogue in memory only.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// VectorConfig selects and configures the remote vector index.
type VectorConfig struct {
	// Backend is "qdrant", "pgvector", or "none" (local catalogue only).
	Backend    string         `yaml:"backend"`
	Collection string         `yaml:"collection"`
	Dimension  int            `yaml:"dimension"`
	Timeout    time.Duration  `yaml:"timeout"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// QdrantConfig holds the Qdrant gRPC endpoint.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PostgresConfig holds the pgvector connection settings.
type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is "onnx", "openai", or "mock".
	Provider  string `yaml:"provider"`
	ModelPath string `yaml:"model_path"`
	// LibraryPath is the onnxruntime shared library; empty uses the platform default.
	LibraryPath string `yaml:"library_path"`
	// OutputName and Pooling describe the ONNX model output (last_hidden_state + mean by default).
	OutputName  string `yaml:"output_name"`
	Pooling     string `yaml:"pooling"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
	OpenAIModel string `yaml:"openai_model"`
	APIKey      string `yaml:"api_key"`
}

// IngestConfig holds splitter and loader settings.
type IngestConfig struct {
	ChunkSize    int           `yaml:"chunk_size"`
	ChunkOverlap int           `yaml:"chunk_overlap"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	Extensions   []string      `yaml:"extensions"`
}

// RetrievalConfig holds search depth and result filter settings.
type RetrievalConfig struct {
	TopK     int          `yaml:"top_k"`
	MaxLimit int          `yaml:"max_limit"`
	Filter   FilterConfig `yaml:"filter"`
}

// FilterConfig configures the chunk-quality filter.
type FilterConfig struct {
	Markers       []string `yaml:"markers"`
	MinLength     int      `yaml:"min_length"`
	MinKept       int      `yaml:"min_kept"`
	FallbackCount int      `yaml:"fallback_count"`
}

// SynthesisConfig holds answer synthesis settings.
type SynthesisConfig struct {
	// Provider is "openai" or "anthropic".
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens"`
	EvidenceBlocks int    `yaml:"evidence_blocks"`
	EvidenceChars  int    `yaml:"evidence_chars"`
	// BaseURL overrides the provider endpoint (proxies, compatible gateways).
	BaseURL string `yaml:"base_url"`
}

// TracingConfig holds OpenTelemetry settings. Tracing is disabled when OTLPEndpoint is empty.
type TracingConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Load reads and parses the config file at path, expands paths, applies defaults,
// and applies environment overrides (a .env file next to the config is loaded first).
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	if cfg.Storage.DatabasePath != "" {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	}
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment. The LUMINA_ prefixed
// variable wins over the provider's conventional name.
func ApplyEnv(cfg *Config) {
	if v := firstEnv("LUMINA_OPENAI_API_KEY", "OPENAI_API_KEY"); v != "" {
		if cfg.Synthesis.Provider == "openai" && cfg.Synthesis.APIKey == "" {
			cfg.Synthesis.APIKey = v
		}
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
	}
	if v := firstEnv("LUMINA_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"); v != "" {
		if cfg.Synthesis.Provider == "anthropic" && cfg.Synthesis.APIKey == "" {
			cfg.Synthesis.APIKey = v
		}
	}
	if v := os.Getenv("LUMINA_QDRANT_HOST"); v != "" {
		cfg.Vector.Qdrant.Host = v
	}
	if v := os.Getenv("LUMINA_POSTGRES_URL"); v != "" {
		cfg.Vector.Postgres.URL = v
	}
	if v := os.Getenv("LUMINA_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.OTLPEndpoint = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// Save writes the config to path. Used for persisting watch directory add/remove.
// Secrets are not written back.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.Synthesis.APIKey = ""
	out.Embedding.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
