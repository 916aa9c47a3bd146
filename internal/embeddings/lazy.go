package embeddings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var errClosed = errors.New("embedding provider closed")

// Lazy defers provider construction until the first embedding call, then
// shares the instance. A failed construction is returned to every caller;
// it is not retried.
type Lazy struct {
	cfg     ProviderConfig
	factory func(context.Context, ProviderConfig) (Provider, error)

	once     sync.Once
	ready    atomic.Bool
	provider Provider
	err      error
}

// NewLazy returns a provider that is built with NewProvider on first use.
func NewLazy(cfg ProviderConfig) *Lazy {
	return &Lazy{cfg: cfg, factory: NewProvider}
}

// Get builds the provider if needed and returns it.
func (l *Lazy) Get(ctx context.Context) (Provider, error) {
	l.once.Do(func() {
		l.provider, l.err = l.factory(context.WithoutCancel(ctx), l.cfg)
		l.ready.Store(true)
	})
	return l.provider, l.err
}

// EmbedDocuments implements Embedder.
func (l *Lazy) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	p, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.EmbedDocuments(ctx, texts)
}

// EmbedQuery implements Embedder.
func (l *Lazy) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	p, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.EmbedQuery(ctx, text)
}

// Dimension returns the provider dimension, or 0 before initialization.
func (l *Lazy) Dimension() int {
	if p := l.loaded(); p != nil {
		return p.Dimension()
	}
	return 0
}

// Model returns the configured model name without forcing initialization.
func (l *Lazy) Model() string {
	if p := l.loaded(); p != nil {
		return p.Model()
	}
	return l.cfg.modelName()
}

// Close releases the provider if it was built.
func (l *Lazy) Close() error {
	// Prevent a later Get from building a provider after Close.
	l.once.Do(func() {
		l.err = errClosed
		l.ready.Store(true)
	})
	if l.provider != nil {
		return l.provider.Close()
	}
	return nil
}

// loaded returns the provider only if initialization already finished.
func (l *Lazy) loaded() Provider {
	if !l.ready.Load() {
		return nil
	}
	return l.provider
}
