package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/config"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed wraps failures reported by the underlying model.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Embedder turns text into vectors.
type Embedder interface {
	// EmbedDocuments embeds chunks for indexing.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is an Embedder that knows its model and owns resources.
type Provider interface {
	Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Model returns the configured model name.
	Model() string
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is "fastembed", "openai" or "hash".
	Provider string
	// Model is the fastembed model name.
	Model string
	// CacheDir is the model cache directory (fastembed only).
	CacheDir string
	// OpenAIModel is the remote model name (openai only).
	OpenAIModel string
	// BaseURL overrides the OpenAI endpoint.
	BaseURL string
	// APIKey authenticates against OpenAI.
	APIKey config.Secret
	// Dimension is the vector width (hash only).
	Dimension int
}

// ConfigFromApp builds a ProviderConfig from the application configuration.
func ConfigFromApp(cfg config.EmbeddingsConfig, apiKey config.Secret) ProviderConfig {
	return ProviderConfig{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		CacheDir:    cfg.CacheDir,
		OpenAIModel: cfg.OpenAIModel,
		BaseURL:     cfg.BaseURL,
		APIKey:      apiKey,
		Dimension:   cfg.Dimension,
	}
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "fastembed", "":
		p, err = NewFastEmbedProvider(ctx, FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "openai":
		p, err = NewOpenAIProvider(OpenAIConfig{
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		})
	case "hash":
		p, err = NewHashProvider(cfg.Dimension)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// modelName returns the name a config resolves to, for logging and the
// index manifest.
func (c ProviderConfig) modelName() string {
	switch c.Provider {
	case "openai":
		return c.OpenAIModel
	case "hash":
		return fmt.Sprintf("hash-%d", c.Dimension)
	default:
		return c.Model
	}
}
