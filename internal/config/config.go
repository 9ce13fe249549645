// Package config provides configuration loading and structs for the yomu server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Summary   SummaryConfig   `yaml:"summary"`
	Quiz      QuizConfig      `yaml:"quiz"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// StorageConfig holds paths for the database, vector indices, uploads and the keyword index.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	IndexDir         string `yaml:"index_dir"`
	UploadDir        string `yaml:"upload_dir"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// IngestConfig controls which uploads are accepted.
type IngestConfig struct {
	AllowedExtensions []string `yaml:"allowed_extensions"`
	PreviewChars      int      `yaml:"preview_chars"`
}

// ChunkingConfig holds splitter settings. Sizes are in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // googleai, openai, mock
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	APIKeyEnv  string `yaml:"api_key_env"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// LLMConfig selects the generation provider and its defaults.
type LLMConfig struct {
	Provider        string        `yaml:"provider"` // googleai, openai, ollama, mock
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	APIKeyEnv       string        `yaml:"api_key_env"`
	BaseURL         string        `yaml:"base_url"`
	Temperature     float64       `yaml:"temperature"`
	TopP            float64       `yaml:"top_p"`
	TopK            int           `yaml:"top_k"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	MinInterval     time.Duration `yaml:"min_interval"`
	Timeout         time.Duration `yaml:"timeout"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// SummaryConfig holds summary generation settings.
type SummaryConfig struct {
	ContentChars    int `yaml:"content_chars"`
	MaxOutputTokens int `yaml:"max_output_tokens"`
}

// QuizConfig holds challenge-mode settings.
type QuizConfig struct {
	ContentChars           int    `yaml:"content_chars"`
	DefaultQuestions       int    `yaml:"default_questions"`
	MaxQuestions           int    `yaml:"max_questions"`
	DefaultDifficulty      string `yaml:"default_difficulty"`
	EvaluationContextChars int    `yaml:"evaluation_context_chars"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Directories []string `yaml:"directories"`
	DebounceMs  int      `yaml:"debounce_ms"`
}

// ResolveAPIKey returns the configured key, falling back to the named environment variable.
func (c *LLMConfig) ResolveAPIKey() string {
	return resolveKey(c.APIKey, c.APIKeyEnv)
}

// ResolveAPIKey returns the configured key, falling back to the named environment variable.
func (c *EmbeddingConfig) ResolveAPIKey() string {
	return resolveKey(c.APIKey, c.APIKeyEnv)
}

func resolveKey(key, env string) string {
	if key != "" {
		return key
	}
	if env != "" {
		return os.Getenv(env)
	}
	return ""
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
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

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config with every default applied and paths rooted at dir.
// Used when no config file exists yet.
func Default(dir string) *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, dir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, dir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, dir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, dir)
	return cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports settings that would make the pipeline misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.Chunking.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunking.chunk_size must be positive"))
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errs = append(errs, fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size)"))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive"))
	}
	if c.LLM.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("llm.min_interval must not be negative"))
	}
	if c.Quiz.MaxQuestions < c.Quiz.DefaultQuestions {
		errs = append(errs, fmt.Errorf("quiz.max_questions must be >= quiz.default_questions"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsAllowedExtension reports whether ext (with or without the dot) is accepted for upload.
func (c *IngestConfig) IsAllowedExtension(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, allowed := range c.AllowedExtensions {
		if strings.TrimPrefix(strings.ToLower(allowed), ".") == ext {
			return true
		}
	}
	return false
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir,
// "~/" is the home directory, and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
