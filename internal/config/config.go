// Package config loads the application configuration from YAML, applies
// defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LLMConfig configures the completion collaborator.
type LLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens" validate:"gte=0"`
}

// EmbedderConfig configures the embedding collaborator. Dimension must
// match the model's output vector length.
type EmbedderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension" validate:"gt=0"`
}

// ChunkerConfig configures how documents are split into nodes. Sizes are
// in characters; overlap must stay below chunk size.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// VectorStoreConfig selects and configures the vector store.
type VectorStoreConfig struct {
	Type   string        `yaml:"type" validate:"oneof=memory qdrant"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// SummarizerConfig selects the summarizer implementation.
type SummarizerConfig struct {
	Type         string `yaml:"type" validate:"oneof=llm frequency"`
	MaxSentences int    `yaml:"max_sentences" validate:"gte=0"`
}

// QueryConfig supplies this deployment's retrieval parameters. The
// similarity threshold is deliberately explicit: there is no engine-side
// default to fall back on.
type QueryConfig struct {
	SimilarityThreshold float32 `yaml:"similarity_threshold" validate:"gte=0,lte=1"`
	ContextWindow       int     `yaml:"context_window" validate:"gte=0"`
	Limit               int     `yaml:"limit" validate:"gt=0"`
	IncludeHierarchy    bool    `yaml:"include_hierarchy"`
}

// EngineConfig carries the engine's own knobs.
type EngineConfig struct {
	StatePath             string      `yaml:"state_path" validate:"required"`
	UpsertBatchSize       int         `yaml:"upsert_batch_size" validate:"gte=0"`
	RelationshipThreshold float64     `yaml:"relationship_threshold" validate:"gte=0,lte=1"`
	Query                 QueryConfig `yaml:"query"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	LLM         LLMConfig         `yaml:"llm"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Engine      EngineConfig      `yaml:"engine"`
}

// QdrantTimeout returns the configured qdrant request timeout.
func (c *QdrantConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

var validate = validator.New()

// Load reads a config from path. A missing file returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant == nil {
		return nil, fmt.Errorf("invalid config %s: vector_store.qdrant section missing", path)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then the user config directory.
// If neither exists, defaults are written to the user path and returned.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docgraph", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		LLM: LLMConfig{
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Embedder: EmbedderConfig{
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		Chunker: ChunkerConfig{ChunkSize: 1024, ChunkOverlap: 20},
		VectorStore: VectorStoreConfig{
			Type: "qdrant",
			Qdrant: &QdrantConfig{
				URL:        "http://localhost:6333",
				Collection: "documents",
			},
		},
		Summarizer: SummarizerConfig{Type: "llm"},
		Engine: EngineConfig{
			StatePath:             "./storage/processor_state.json",
			UpsertBatchSize:       100,
			RelationshipThreshold: 0.7,
			Query: QueryConfig{
				SimilarityThreshold: 0.7,
				ContextWindow:       1,
				Limit:               10,
				IncludeHierarchy:    true,
			},
		},
	}
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	d := defaultConfig()
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = d.LLM.APIKeyEnv
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = d.Embedder.APIKeyEnv
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = d.Embedder.Model
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = d.Embedder.Dimension
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = d.Chunker.ChunkSize
		if cfg.Chunker.ChunkOverlap == 0 {
			cfg.Chunker.ChunkOverlap = d.Chunker.ChunkOverlap
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = d.Summarizer.Type
	}
	if cfg.Engine.StatePath == "" {
		cfg.Engine.StatePath = d.Engine.StatePath
	}
	if cfg.Engine.UpsertBatchSize == 0 {
		cfg.Engine.UpsertBatchSize = d.Engine.UpsertBatchSize
	}
	if cfg.Engine.RelationshipThreshold == 0 {
		cfg.Engine.RelationshipThreshold = d.Engine.RelationshipThreshold
	}
	// Only Limit gets a default here. Threshold 0 (no filtering), window 0
	// (no expansion) and include_hierarchy false are all valid settings, so
	// an omitted limit must not pull the rest of the section to defaults.
	if cfg.Engine.Query.Limit == 0 {
		cfg.Engine.Query.Limit = d.Engine.Query.Limit
	}
}
