// Package config loads pipeline configuration from a TOML file with
// environment variable overrides. Credentials come from the
// environment (optionally via a .env file) and never from the config
// file on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/corail-labs/pdfvector/internal/core/domain"
)

// Default configuration values.
const (
	DefaultConfigDir  = ".pdfvector"
	DefaultConfigFile = "config.toml"
)

// Config is the full pipeline configuration.
type Config struct {
	OpenAI    OpenAIConfig    `toml:"openai"`
	Pinecone  PineconeConfig  `toml:"pinecone"`
	Mistral   MistralConfig   `toml:"mistral"`
	Tesseract TesseractConfig `toml:"tesseract"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Cache     CacheConfig     `toml:"cache"`
}

// OpenAIConfig configures the embedding service.
type OpenAIConfig struct {
	// APIKey is read from OPENAI_API_KEY; it is never written to the
	// config file.
	APIKey     string `toml:"-"`
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

// PineconeConfig configures the vector index.
type PineconeConfig struct {
	// APIKey is read from PINECONE_API_KEY.
	APIKey string `toml:"-"`
	Host   string `toml:"host"`

	// Namespace is the default namespace for ingest and query.
	Namespace string `toml:"namespace"`
}

// MistralConfig configures the OCR extractor. OCR is optional; without
// an API key only plain text files (and local OCR, when built with
// CGO) can be ingested.
type MistralConfig struct {
	// APIKey is read from MISTRAL_API_KEY.
	APIKey string `toml:"-"`
	Model  string `toml:"model"`
}

// TesseractConfig configures local OCR.
type TesseractConfig struct {
	Languages []string `toml:"languages"`
}

// PipelineConfig tunes concurrency, batching and chunking.
type PipelineConfig struct {
	BatchSize         int `toml:"batch_size"`
	EmbedWorkers      int `toml:"embed_workers"`
	ExtractWorkers    int `toml:"extract_workers"`
	RequestsPerMinute int `toml:"requests_per_minute"`
	MaxBatchTokens    int `toml:"max_batch_tokens"`
	RetryAttempts     int `toml:"retry_attempts"`
	RetryBaseDelayMS  int `toml:"retry_base_delay_ms"`
	ChunkSize         int `toml:"chunk_size"`
	ChunkOverlap      int `toml:"chunk_overlap"`
	UpsertBatchSize   int `toml:"upsert_batch_size"`
	TopK              int `toml:"top_k"`
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	// Backend selects the cache implementation: "sqlite" or "memory".
	Backend string `toml:"backend"`

	// Path is the directory holding the sqlite database. Empty means
	// ~/.pdfvector.
	Path string `toml:"path"`
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// Load reads configuration from the given TOML file, applies
// environment overrides and validates the result. A missing file is
// not an error; defaults plus environment are enough to run. If path
// is empty the default location is used.
func Load(path string) (*Config, error) {
	// Best effort: a .env in the working directory feeds the
	// environment lookups below.
	_ = godotenv.Load()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, domain.NewPipelineError(domain.FailureConfiguration,
				fmt.Sprintf("parse %s", path), err)
		}
	case os.IsNotExist(err):
		// No config file yet, run on defaults.
	default:
		return nil, domain.NewPipelineError(domain.FailureConfiguration,
			fmt.Sprintf("read %s", path), err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns a config with every tunable at its default.
func defaults() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			Model: "text-embedding-3-small",
		},
		Mistral: MistralConfig{
			Model: "mistral-ocr-latest",
		},
		Tesseract: TesseractConfig{
			Languages: []string{"eng"},
		},
		Pipeline: PipelineConfig{
			BatchSize:         100,
			EmbedWorkers:      4,
			RequestsPerMinute: 3000,
			MaxBatchTokens:    8000,
			RetryAttempts:     3,
			RetryBaseDelayMS:  1000,
			ChunkSize:         1000,
			ChunkOverlap:      200,
			UpsertBatchSize:   100,
			TopK:              5,
		},
		Cache: CacheConfig{
			Backend: "sqlite",
		},
	}
}

// applyEnv overlays environment variables onto the config. Environment
// always wins over the file.
func (c *Config) applyEnv() {
	envString("OPENAI_API_KEY", &c.OpenAI.APIKey)
	envString("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	envString("OPENAI_EMBEDDING_MODEL", &c.OpenAI.Model)
	envInt("OPENAI_EMBEDDING_DIMENSIONS", &c.OpenAI.Dimensions)

	envString("PINECONE_API_KEY", &c.Pinecone.APIKey)
	envString("PINECONE_HOST", &c.Pinecone.Host)
	envString("PINECONE_NAMESPACE", &c.Pinecone.Namespace)

	envString("MISTRAL_API_KEY", &c.Mistral.APIKey)

	envString("PDFVECTOR_CACHE_BACKEND", &c.Cache.Backend)
	envString("PDFVECTOR_CACHE_PATH", &c.Cache.Path)
}

// Validate checks that required credentials are present and tunables
// are sane. Failures are reported as configuration errors.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return domain.NewPipelineError(domain.FailureConfiguration,
			"OPENAI_API_KEY is not set", domain.ErrMissingCredentials)
	}
	if c.Pinecone.APIKey == "" {
		return domain.NewPipelineError(domain.FailureConfiguration,
			"PINECONE_API_KEY is not set", domain.ErrMissingCredentials)
	}
	if c.Pinecone.Host == "" {
		return domain.NewPipelineError(domain.FailureConfiguration,
			"pinecone.host is not configured", domain.ErrInvalidInput)
	}
	if c.Cache.Backend != "sqlite" && c.Cache.Backend != "memory" {
		return domain.NewPipelineError(domain.FailureConfiguration,
			fmt.Sprintf("unknown cache backend %q", c.Cache.Backend), domain.ErrInvalidInput)
	}
	if c.Pipeline.ChunkSize <= 0 {
		return domain.NewPipelineError(domain.FailureConfiguration,
			"pipeline.chunk_size must be positive", domain.ErrInvalidInput)
	}
	if c.Pipeline.ChunkOverlap < 0 || c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return domain.NewPipelineError(domain.FailureConfiguration,
			"pipeline.chunk_overlap must be non-negative and smaller than chunk_size", domain.ErrInvalidInput)
	}
	return nil
}

// OCREnabled reports whether the Mistral extractor can be built.
func (c *Config) OCREnabled() bool {
	return c.Mistral.APIKey != ""
}

func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
