// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"docqa/internal/domain"
)

// Provider kinds selectable at startup. A process uses exactly one
// provider for its lifetime; the two variants produce incompatible vector
// dimensions and must never share an index.
const (
	ProviderLocal = "local"
	ProviderCloud = "cloud"
)

// OllamaConfig configures the local embedding backend.
type OllamaConfig struct {
	Host        string `yaml:"host"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	Concurrency int    `yaml:"concurrency"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiConfig configures the cloud embedding backend.
type GeminiConfig struct {
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PineconeConfig contains connection details for the Pinecone index.
// When absent, the in-memory store is used instead.
type PineconeConfig struct {
	Host        string `yaml:"host"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ServerConfig configures the HTTP server binary.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DriveConfig configures the Google Drive connector. When absent, the
// Drive endpoints are disabled.
type DriveConfig struct {
	AccessTokenEnv string `yaml:"access_token_env"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Provider       string          `yaml:"provider"`
	ChunkSize      int             `yaml:"chunk_size"`
	ChunkOverlap   int             `yaml:"chunk_overlap"`
	IndexName      string          `yaml:"index_name"`
	BatchSize      int             `yaml:"batch_size"`
	DefaultTopK    int             `yaml:"default_top_k"`
	EmbedBatchSize int             `yaml:"embed_batch_size"`
	Ollama         OllamaConfig    `yaml:"ollama"`
	Gemini         GeminiConfig    `yaml:"gemini"`
	Pinecone       *PineconeConfig `yaml:"pinecone,omitempty"`
	Server         ServerConfig    `yaml:"server"`
	Drive          *DriveConfig    `yaml:"drive,omitempty"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
//
// The file is unmarshalled over a fully defaulted config, so absent keys
// keep their defaults while explicit values always win. In particular an
// explicit `chunk_overlap: 0` stays zero; it is a valid setting and
// changing it would change chunk boundaries and ids.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	applySectionDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
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
	cfg := defaultConfig()
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

// Validate checks the structural invariants of the configuration.
func (c *AppConfig) Validate() error {
	if c.Provider != ProviderLocal && c.Provider != ProviderCloud {
		return fmt.Errorf("%w: provider must be %q or %q, got %q", domain.ErrConfiguration, ProviderLocal, ProviderCloud, c.Provider)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", domain.ErrConfiguration, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must satisfy 0 <= overlap < chunk_size, got %d", domain.ErrConfiguration, c.ChunkOverlap)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", domain.ErrConfiguration, c.BatchSize)
	}
	if c.DefaultTopK <= 0 {
		return fmt.Errorf("%w: default_top_k must be positive, got %d", domain.ErrConfiguration, c.DefaultTopK)
	}
	if c.Provider == ProviderCloud && c.Gemini.APIKeyEnv == "" {
		return fmt.Errorf("%w: gemini.api_key_env is required for the cloud provider", domain.ErrConfiguration)
	}
	if c.Pinecone != nil && c.Pinecone.Host == "" {
		return fmt.Errorf("%w: pinecone.host is required when pinecone is configured", domain.ErrConfiguration)
	}
	return nil
}

// Dimensions reports the vector dimension of the active provider. The
// vector index and the zero-vector listing probe both follow this value.
func (c *AppConfig) Dimensions() int {
	if c.Provider == ProviderCloud {
		return c.Gemini.Dimension
	}
	return c.Ollama.Dimension
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{Provider: ProviderLocal}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderLocal
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "document-qa-index"
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.DefaultTopK == 0 {
		cfg.DefaultTopK = 5
	}
	if cfg.EmbedBatchSize == 0 {
		cfg.EmbedBatchSize = 64
	}
	if cfg.Ollama.Host == "" {
		cfg.Ollama.Host = "http://localhost:11434"
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "nomic-embed-text"
	}
	if cfg.Ollama.Dimension == 0 {
		cfg.Ollama.Dimension = 768
	}
	if cfg.Ollama.TimeoutSecs == 0 {
		cfg.Ollama.TimeoutSecs = 30
	}
	if cfg.Gemini.Model == "" {
		// gemini-embedding-001 supports output dimensionalities up to 3072,
		// covering the 1536 default below.
		cfg.Gemini.Model = "gemini-embedding-001"
	}
	if cfg.Gemini.APIKeyEnv == "" {
		cfg.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Gemini.Dimension == 0 {
		cfg.Gemini.Dimension = 1536
	}
	if cfg.Gemini.TimeoutSecs == 0 {
		cfg.Gemini.TimeoutSecs = 30
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	applySectionDefaults(cfg)
}

// applySectionDefaults fills optional sections that cannot be pre-filled
// before unmarshalling because their presence is meaningful.
func applySectionDefaults(cfg *AppConfig) {
	if cfg.Pinecone != nil {
		if cfg.Pinecone.APIKeyEnv == "" {
			cfg.Pinecone.APIKeyEnv = "PINECONE_API_KEY"
		}
		if cfg.Pinecone.TimeoutSecs == 0 {
			cfg.Pinecone.TimeoutSecs = 15
		}
	}
}
