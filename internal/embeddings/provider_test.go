package embeddings

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/config"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ProviderConfig
		wantModel string
		wantError bool
	}{
		{
			name:      "hash provider",
			cfg:       ProviderConfig{Provider: "hash", Dimension: 64},
			wantModel: "hash-64",
		},
		{
			name:      "hash provider without dimension",
			cfg:       ProviderConfig{Provider: "hash"},
			wantError: true,
		},
		{
			name:      "openai provider",
			cfg:       ProviderConfig{Provider: "openai", OpenAIModel: "text-embedding-3-small", APIKey: config.Secret("sk-test")},
			wantModel: "text-embedding-3-small",
		},
		{
			name:      "openai provider without key",
			cfg:       ProviderConfig{Provider: "openai"},
			wantError: true,
		},
		{
			name:      "unknown provider",
			cfg:       ProviderConfig{Provider: "word2vec"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(context.Background(), tt.cfg)
			if tt.wantError {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			defer p.Close()
			assert.Equal(t, tt.wantModel, p.Model())
			assert.Equal(t, tt.wantModel, tt.cfg.modelName())
		})
	}
}

func TestConfigFromApp(t *testing.T) {
	cfg := ConfigFromApp(config.EmbeddingsConfig{
		Provider:    "openai",
		Model:       "m",
		CacheDir:    "/tmp/c",
		OpenAIModel: "text-embedding-3-large",
		BaseURL:     "http://localhost:1234/v1",
		Dimension:   8,
	}, config.Secret("k"))

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "/tmp/c", cfg.CacheDir)
	assert.Equal(t, "k", cfg.APIKey.Value())
	assert.Equal(t, "text-embedding-3-large", cfg.modelName())
}

func TestOpenAIProvider_Dimension(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{Model: "text-embedding-3-large", APIKey: config.Secret("sk")})
	require.NoError(t, err)
	assert.Equal(t, 3072, p.Dimension())

	p, err = NewOpenAIProvider(OpenAIConfig{APIKey: config.Secret("sk")})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", p.Model())
	assert.Equal(t, 1536, p.Dimension())

	_, err = p.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = p.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHashProvider(t *testing.T) {
	p, err := NewHashProvider(1024)
	require.NoError(t, err)
	ctx := context.Background()

	docs, err := p.EmbedDocuments(ctx, []string{
		"The sky is blue.",
		"Volcanoes erupt molten rock.",
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Len(t, docs[0], 1024)

	q, err := p.EmbedQuery(ctx, "What color is the sky?")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, cosine(docs[0], docs[0]), 1e-6)
	assert.Greater(t, cosine(q, docs[0]), 0.5)
	assert.Greater(t, cosine(q, docs[0]), cosine(q, docs[1]))

	again, err := p.EmbedQuery(ctx, "what COLOR is the sky")
	require.NoError(t, err)
	assert.Equal(t, q, again)
}

func TestHashProvider_Errors(t *testing.T) {
	_, err := NewHashProvider(0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p, err := NewHashProvider(8)
	require.NoError(t, err)

	_, err = p.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.EmbedQuery(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)

	v, err := p.EmbedQuery(context.Background(), "?!")
	require.NoError(t, err)
	assert.Equal(t, float32(1), v[0])
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"what", "color", "is", "the", "sky"}, Tokenize("What color is the sky?"))
	assert.Empty(t, Tokenize("...  "))
}

func TestLazy_InitializesOnce(t *testing.T) {
	var builds atomic.Int32
	l := NewLazy(ProviderConfig{Provider: "hash", Dimension: 16})
	l.factory = func(ctx context.Context, cfg ProviderConfig) (Provider, error) {
		builds.Add(1)
		return NewProvider(ctx, cfg)
	}

	assert.Equal(t, 0, l.Dimension())
	assert.Equal(t, "hash-16", l.Model())
	assert.Zero(t, builds.Load())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.EmbedQuery(context.Background(), "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	assert.Equal(t, 16, l.Dimension())
	assert.NoError(t, l.Close())
}

func TestLazy_FailureIsSticky(t *testing.T) {
	boom := errors.New("model download failed")
	l := NewLazy(ProviderConfig{Provider: "hash"})
	l.factory = func(context.Context, ProviderConfig) (Provider, error) { return nil, boom }

	_, err := l.EmbedDocuments(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, boom)
	_, err = l.EmbedQuery(context.Background(), "a")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, l.Close())
}

func TestLazy_CloseBeforeUse(t *testing.T) {
	l := NewLazy(ProviderConfig{Provider: "hash", Dimension: 4})
	require.NoError(t, l.Close())

	_, err := l.EmbedQuery(context.Background(), "a")
	assert.ErrorIs(t, err, errClosed)
}
