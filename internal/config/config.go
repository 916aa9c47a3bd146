// Package config provides configuration loading for ragchat.
//
// Values come from built-in defaults, an optional YAML file and RAGCHAT_*
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete ragchat configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Storage    StorageConfig    `koanf:"storage"`
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	LLM        LLMConfig        `koanf:"llm"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds the on-disk layout root.
// The metadata database and every tenant directory live below Root.
type StorageConfig struct {
	Root string `koanf:"root"`
}

// ChunkingConfig holds chunker window sizes, in characters.
type ChunkingConfig struct {
	Size    int `koanf:"size"`
	Overlap int `koanf:"overlap"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "fastembed" (local ONNX), "openai" or "hash" (offline,
	// token hashing, no model download).
	Provider string `koanf:"provider"`
	// Model is the fastembed model name.
	Model    string `koanf:"model"`
	CacheDir string `koanf:"cache_dir"`
	// OpenAIModel is used when Provider is "openai".
	OpenAIModel string `koanf:"openai_model"`
	BaseURL     string `koanf:"base_url"`
	// Dimension is the vector width of the hash provider.
	Dimension int `koanf:"dimension"`
}

// RetrievalConfig holds retriever settings. TopK is fixed per deployment.
type RetrievalConfig struct {
	TopK          int     `koanf:"top_k"`
	MinSimilarity float32 `koanf:"min_similarity"`
}

// LLMConfig configures the grounded answer generator.
// An empty APIKey selects the local fallback generator.
type LLMConfig struct {
	APIKey            Secret        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	Temperature       float64       `koanf:"temperature"`
	BaseURL           string        `koanf:"base_url"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Timeout           time.Duration `koanf:"timeout"`
}

// LoggingConfig holds the subset of logging settings exposed to users.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	ServiceName string  `koanf:"service_name"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	if c.Storage.Root == "" {
		return errors.New("storage root is required")
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}

	switch c.Embeddings.Provider {
	case "fastembed":
		if c.Embeddings.Model == "" {
			return errors.New("embeddings model is required for fastembed")
		}
	case "openai":
		if !c.LLM.APIKey.IsSet() {
			return errors.New("openai embeddings require llm.api_key or OPENAI_API_KEY")
		}
	case "hash":
		if c.Embeddings.Dimension <= 0 {
			return fmt.Errorf("hash embeddings dimension must be positive, got %d", c.Embeddings.Dimension)
		}
	default:
		return fmt.Errorf("unknown embeddings provider %q (want fastembed, openai or hash)", c.Embeddings.Provider)
	}

	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval top_k must be >= 1, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.MinSimilarity < -1 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval min_similarity must be in [-1, 1], got %v", c.Retrieval.MinSimilarity)
	}

	if c.LLM.RequestsPerSecond < 0 {
		return errors.New("llm requests_per_second cannot be negative")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm timeout must be positive")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry endpoint required when telemetry is enabled")
		}
		if c.Telemetry.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
	}

	return nil
}
