package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"docchat/internal/domain"
)

// DocumentsConfig configures where documents are listed from and how many
// may be selected for one index.
type DocumentsConfig struct {
	Dir         string `yaml:"dir"`
	MaxSelected int    `yaml:"max_selected"`
}

// SegmenterConfig configures how documents are split into chunks.
type SegmenterConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// LLMConfig holds connection and model settings for the generative service.
type LLMConfig struct {
	BaseURL            string   `yaml:"base_url"`
	APIKeyEnv          string   `yaml:"api_key_env"`
	EmbeddingModel     string   `yaml:"embedding_model"`
	Models             []string `yaml:"models"`
	DefaultModel       string   `yaml:"default_model"`
	MaxTokens          int      `yaml:"max_tokens"`
	DefaultTemperature float64  `yaml:"default_temperature"`
	TimeoutSecs        int      `yaml:"timeout_secs"`
}

// EvaluationConfig configures the advisory answer-scoring pass.
type EvaluationConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Temperature  float64 `yaml:"temperature"`
	ContextChars int     `yaml:"context_chars"`
}

// IndexConfig selects and configures the index backend.
type IndexConfig struct {
	Store  string        `yaml:"store"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant-backed index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LogConfig configures the process logger. The TUI owns the terminal, so
// logs go to a file.
type LogConfig struct {
	File   string `yaml:"file"`
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Documents  DocumentsConfig  `yaml:"documents"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	LLM        LLMConfig        `yaml:"llm"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Index      IndexConfig      `yaml:"index"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docchat/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
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
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
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

// Validate checks the settings whose bad values would corrupt a build or a
// turn. Violations wrap domain.ErrInvalidConfig.
func (c *AppConfig) Validate() error {
	if c.Segmenter.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", domain.ErrInvalidConfig, c.Segmenter.ChunkSize)
	}
	if c.Segmenter.Overlap <= 0 || c.Segmenter.Overlap >= c.Segmenter.ChunkSize {
		return fmt.Errorf("%w: overlap must be in (0, chunk_size), got %d", domain.ErrInvalidConfig, c.Segmenter.Overlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidConfig, c.Retrieval.TopK)
	}
	if c.LLM.DefaultTemperature < 0 || c.LLM.DefaultTemperature > 1 {
		return fmt.Errorf("%w: default_temperature must be in [0, 1], got %g", domain.ErrInvalidConfig, c.LLM.DefaultTemperature)
	}
	if len(c.LLM.Models) == 0 {
		return fmt.Errorf("%w: llm.models must not be empty", domain.ErrInvalidConfig)
	}
	if !slices.Contains(c.LLM.Models, c.LLM.DefaultModel) {
		return fmt.Errorf("%w: default_model %q is not in llm.models", domain.ErrInvalidConfig, c.LLM.DefaultModel)
	}
	if c.Documents.MaxSelected <= 0 {
		return fmt.Errorf("%w: max_selected must be positive, got %d", domain.ErrInvalidConfig, c.Documents.MaxSelected)
	}
	switch c.Index.Store {
	case "memory":
	case "qdrant":
		if c.Index.Qdrant == nil || c.Index.Qdrant.URL == "" || c.Index.Qdrant.Collection == "" {
			return fmt.Errorf("%w: qdrant store requires url and collection", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown index store %q", domain.ErrInvalidConfig, c.Index.Store)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Documents.Dir == "" {
		cfg.Documents.Dir = "txt_files"
	}
	if cfg.Documents.MaxSelected == 0 {
		cfg.Documents.MaxSelected = 4
	}
	if cfg.Segmenter.ChunkSize == 0 {
		cfg.Segmenter.ChunkSize = 512
	}
	if cfg.Segmenter.Overlap == 0 {
		cfg.Segmenter.Overlap = 50
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.EmbeddingModel == "" {
		cfg.LLM.EmbeddingModel = "text-embedding-3-small"
	}
	if len(cfg.LLM.Models) == 0 {
		cfg.LLM.Models = []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo", "gpt-3.5-turbo"}
	}
	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = cfg.LLM.Models[0]
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if cfg.LLM.DefaultTemperature == 0 {
		cfg.LLM.DefaultTemperature = 0.3
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.Evaluation.Temperature == 0 {
		cfg.Evaluation.Temperature = 0.1
	}
	if cfg.Evaluation.ContextChars == 0 {
		cfg.Evaluation.ContextChars = 1000
	}
	if cfg.Index.Store == "" {
		cfg.Index.Store = "memory"
	}
	if cfg.Index.Store == "qdrant" && cfg.Index.Qdrant != nil && cfg.Index.Qdrant.TimeoutSecs == 0 {
		cfg.Index.Qdrant.TimeoutSecs = 15
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "app.log"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
