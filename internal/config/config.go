// Package config loads server configuration from an optional TOML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/scribehq/scribe/internal/splitter"
)

// Config holds the full server configuration.
type Config struct {
	// Server
	Port     string `toml:"port"`
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
	// LogFormat is "json" or "text".
	LogFormat string `toml:"log_format"`

	// Providers
	OpenAIAPIKey    string `toml:"openai_api_key"`
	AnthropicAPIKey string `toml:"anthropic_api_key"`

	// Embeddings
	EmbeddingModel      string `toml:"embedding_model"`
	EmbeddingDimensions int    `toml:"embedding_dimensions"`
	EmbeddingCacheSize  int    `toml:"embedding_cache_size"`

	// Chunking
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`

	// Ingestion
	MaxFileMB int `toml:"max_file_mb"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Port:                "8080",
		LogLevel:            "info",
		LogFormat:           "json",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		EmbeddingCacheSize:  4096,
		ChunkSize:           splitter.DefaultChunkSize,
		ChunkOverlap:        splitter.DefaultChunkOverlap,
		MaxFileMB:           10,
	}
}

// Load builds the configuration: defaults, then the TOML file at path
// (or ~/.scribe/config.toml when path is empty, silently skipped when
// absent), then environment variables. A .env file in the working
// directory is loaded into the environment first if present.
func Load(path string) (Config, error) {
	godotenv.Load() //nolint:errcheck // .env is optional

	cfg := Default()

	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".scribe", "config.toml")
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// Optional default file.
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return Config{}, fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.MaxFileMB <= 0 {
		return Config{}, fmt.Errorf("max_file_mb must be positive, got %d", cfg.MaxFileMB)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "SCRIBE_PORT")
	setString(&cfg.DataDir, "SCRIBE_DATA_DIR")
	setString(&cfg.LogLevel, "SCRIBE_LOG_LEVEL")
	setString(&cfg.LogFormat, "SCRIBE_LOG_FORMAT")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.EmbeddingModel, "SCRIBE_EMBEDDING_MODEL")
	setInt(&cfg.EmbeddingDimensions, "SCRIBE_EMBEDDING_DIMENSIONS")
	setInt(&cfg.EmbeddingCacheSize, "SCRIBE_EMBEDDING_CACHE_SIZE")
	setInt(&cfg.ChunkSize, "SCRIBE_CHUNK_SIZE")
	setInt(&cfg.ChunkOverlap, "SCRIBE_CHUNK_OVERLAP")
	setInt(&cfg.MaxFileMB, "SCRIBE_MAX_FILE_MB")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate checks that at least one provider is configured.
func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for embeddings")
	}
	return nil
}
