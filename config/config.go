package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"semstore/internal/domain"
)

// Config holds all configuration for semstore.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig selects and configures the vector backend.
type StoreConfig struct {
	Backend       string `yaml:"backend"` // "qdrant", "bolt", "memory"
	Collection    string `yaml:"collection"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	APIKey        string `yaml:"api_key"`
	AlwaysRefresh bool   `yaml:"always_refresh"` // Recreate the collection on startup
	Distance      string `yaml:"distance"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	BoltPath      string `yaml:"bolt_path"` // Relative paths resolve against the root dir
	ContentIDs    bool   `yaml:"content_ids"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "jina", "mock"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"` // 0 = infer from model
	// CacheSize bounds the in-process embedding cache; 0 disables it.
	CacheSize    int `yaml:"cache_size"`
	CacheTTLSecs int `yaml:"cache_ttl_secs"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Environment variables understood by ApplyEnv.
const (
	EnvHost          = "QDRANT_HOST"
	EnvPort          = "QDRANT_PORT"
	EnvCollection    = "QDRANT_COLLECTION_NAME"
	EnvAPIKey        = "QDRANT_API_KEY"
	EnvAlwaysRefresh = "QDRANT_COLLECTION_ALWAYS_REFRESH"
	// Older deployments use this spelling.
	EnvAlwaysRefreshLegacy = "QDRANT_COLLECTION_ALWAYS_REFRES"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     "qdrant",
			Collection:  "documents",
			Host:        "localhost",
			Port:        6333,
			Distance:    "Cosine",
			TimeoutSecs: 15,
			BoltPath:    filepath.Join(".semstore", "vectors.db"),
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, domain.Configuration("load config", err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for semstore.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "semstore.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".semstore", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overlays QDRANT_* variables on top of the file configuration.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Store.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return domain.Configurationf("apply env", "%s must be a number, got %q", EnvPort, v)
		}
		c.Store.Port = port
	}
	if v, ok := lookup(EnvCollection); ok && v != "" {
		c.Store.Collection = v
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		c.Store.APIKey = v
	}
	// The current spelling is applied last so it wins over the legacy one.
	for _, key := range []string{EnvAlwaysRefreshLegacy, EnvAlwaysRefresh} {
		if v, ok := lookup(key); ok && v != "" {
			c.Store.AlwaysRefresh = truthy(v)
		}
	}
	return nil
}

// Validate checks the configuration once, before anything is constructed from it.
func (c *Config) Validate() error {
	const op = "validate config"

	if c.Store.Collection == "" {
		return domain.Configurationf(op, "store.collection is required")
	}
	switch c.Store.Backend {
	case "qdrant":
		if c.Store.Host == "" {
			return domain.Configurationf(op, "store.host is required for the qdrant backend")
		}
		if c.Store.Port <= 0 || c.Store.Port > 65535 {
			return domain.Configurationf(op, "store.port %d is out of range", c.Store.Port)
		}
	case "bolt":
		if c.Store.BoltPath == "" {
			return domain.Configurationf(op, "store.bolt_path is required for the bolt backend")
		}
	case "memory":
	default:
		return domain.Configurationf(op, "unknown store.backend %q", c.Store.Backend)
	}
	if _, err := domain.ParseDistance(c.Store.Distance); err != nil {
		return err
	}

	switch c.Embedding.Provider {
	case "openai", "jina":
		if c.Embedding.APIKeyEnv == "" {
			return domain.Configurationf(op, "embedding.api_key_env is required for %s", c.Embedding.Provider)
		}
	case "ollama":
	case "mock":
		if c.Embedding.Dimension <= 0 {
			return domain.Configurationf(op, "embedding.dimension must be positive for the mock provider")
		}
	default:
		return domain.Configurationf(op, "unknown embedding.provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 0 {
		return domain.Configurationf(op, "embedding.dimension must not be negative")
	}
	if c.Embedding.CacheSize < 0 || c.Embedding.CacheTTLSecs < 0 {
		return domain.Configurationf(op, "embedding cache settings must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return domain.Configurationf(op, "unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// Policy maps AlwaysRefresh onto a provisioning policy.
func (s StoreConfig) Policy() domain.Policy {
	if s.AlwaysRefresh {
		return domain.AlwaysRecreate
	}
	return domain.CreateIfMissing
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BoltDBPath resolves the bolt database path against dir.
func (c *Config) BoltDBPath(dir string) string {
	if filepath.IsAbs(c.Store.BoltPath) {
		return c.Store.BoltPath
	}
	return filepath.Join(dir, c.Store.BoltPath)
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
