package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/answer"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apps"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/chat"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/chunker"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/config"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/embeddings"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/indexing"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/metadata"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/retrieval"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/storage"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/tenant"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/vectorstore"
)

// Registry provides access to the wired services.
type Registry interface {
	Apps() *apps.Service
	Metadata() *metadata.Store
	Storage() *storage.Store
	VectorStore() *vectorstore.Store
	Embedder() embeddings.Provider
	Generator() answer.Generator
	Close() error
}

// Options configures the registry. Embedder and Generator override the
// configured ones when set.
type Options struct {
	Config    *config.Config
	Logger    *logging.Logger
	Embedder  embeddings.Provider
	Generator answer.Generator
}

type registry struct {
	apps      *apps.Service
	metadata  *metadata.Store
	storage   *storage.Store
	vectors   *vectorstore.Store
	embedder  embeddings.Provider
	generator answer.Generator
	logger    *logging.Logger
}

// New opens the stores and wires every service. The embedding model is not
// loaded until the first build or chat needs it.
func New(ctx context.Context, opts Options) (Registry, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	meta, err := metadata.NewStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	blobs, err := storage.New(cfg.Storage.Root)
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("opening blob storage: %w", err)
	}

	embedder := opts.Embedder
	if embedder == nil {
		lazy := embeddings.NewLazy(embeddings.ConfigFromApp(cfg.Embeddings, cfg.LLM.APIKey))
		embedder = embeddings.Instrument(lazy, embeddings.NewMetrics(logger.Underlying()))
	}

	generator := opts.Generator
	if generator == nil {
		generator, err = answer.New(cfg.LLM, logger)
		if err != nil {
			meta.Close()
			return nil, fmt.Errorf("creating answer generator: %w", err)
		}
	}

	vectors, err := vectorstore.New(blobs, embedder, vectorstore.Config{}, logger)
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	split, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	locks := tenant.NewLocks()
	builder := indexing.NewBuilder(meta, blobs, vectors, split, locks, logger)
	retriever, err := retrieval.New(vectors, locks, retrieval.Config{
		TopK:          cfg.Retrieval.TopK,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
	}, logger)
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	svc, err := apps.New(apps.Deps{
		Metadata: meta,
		Blobs:    blobs,
		Index:    vectors,
		Trainer:  builder,
		Chat:     chat.New(meta, retriever, generator, logger),
		Locks:    locks,
		Logger:   logger,
	})
	if err != nil {
		meta.Close()
		return nil, err
	}

	logger.Info(ctx, "services ready",
		zap.String("storage_root", blobs.Root()),
		zap.String("embedding_model", embedder.Model()),
		zap.String("generator", generator.Name()),
		zap.Int("chunk_size", split.Size()),
		zap.Int("chunk_overlap", split.Overlap()),
		zap.Int("top_k", retriever.TopK()),
	)

	return &registry{
		apps:      svc,
		metadata:  meta,
		storage:   blobs,
		vectors:   vectors,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
	}, nil
}

func (r *registry) Apps() *apps.Service             { return r.apps }
func (r *registry) Metadata() *metadata.Store       { return r.metadata }
func (r *registry) Storage() *storage.Store         { return r.storage }
func (r *registry) VectorStore() *vectorstore.Store { return r.vectors }
func (r *registry) Embedder() embeddings.Provider   { return r.embedder }
func (r *registry) Generator() answer.Generator     { return r.generator }

// Close releases the embedding model and the metadata database.
func (r *registry) Close() error {
	return errors.Join(r.embedder.Close(), r.metadata.Close())
}
