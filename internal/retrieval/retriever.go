// Package retrieval finds the chunks of an app's index most similar to a
// question.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apperr"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/tenant"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/vectorstore"
)

// DefaultTopK is the number of chunks returned per question.
const DefaultTopK = 3

// timeNow is a variable for testing purposes.
var timeNow = time.Now

var tracer = otel.Tracer("ragchat.retrieval")

// Searcher queries a persisted index. vectorstore.Store satisfies it and
// returns vectorstore.ErrNoIndex when the app has no complete index.
type Searcher interface {
	Search(ctx context.Context, appID, query string, k int) ([]vectorstore.Result, error)
}

// Config controls retrieval.
type Config struct {
	TopK int
	// MinSimilarity drops hits scoring below it. Zero keeps every hit.
	MinSimilarity float32
}

// Retriever returns the top-K chunks for a question.
type Retriever struct {
	index  Searcher
	locks  *tenant.Locks
	config Config
	logger *logging.Logger
}

// New creates a Retriever. locks must be the table the index builder uses so
// a search never overlaps a rebuild of the same app.
func New(index Searcher, locks *tenant.Locks, cfg Config, logger *logging.Logger) (*Retriever, error) {
	if index == nil {
		return nil, errors.New("index is required")
	}
	if locks == nil {
		return nil, errors.New("locks are required")
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.TopK < 0 {
		return nil, fmt.Errorf("top k must be positive, got %d", cfg.TopK)
	}
	if cfg.MinSimilarity < 0 || cfg.MinSimilarity > 1 {
		return nil, fmt.Errorf("min similarity must be within [0, 1], got %v", cfg.MinSimilarity)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Retriever{
		index:  index,
		locks:  locks,
		config: cfg,
		logger: logger.Named("retrieval"),
	}, nil
}

// TopK returns the configured result count.
func (r *Retriever) TopK() int { return r.config.TopK }

// Retrieve returns up to TopK chunks most similar to query, best first.
// An app without a complete index fails with a KindPrecondition error.
func (r *Retriever) Retrieve(ctx context.Context, appID, query string) ([]vectorstore.Result, error) {
	unlock := r.locks.RLock(appID)
	defer unlock()

	ctx, span := tracer.Start(ctx, "retrieval.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("app_id", appID),
		attribute.Int("top_k", r.config.TopK),
	)

	start := timeNow()
	hits, err := r.index.Search(ctx, appID, query, r.config.TopK)
	retrievalDuration.Observe(timeNow().Sub(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, vectorstore.ErrNoIndex) {
			return nil, apperr.Precondition(appID, "No index found for app '%s'. Please train first.", appID)
		}
		return nil, fmt.Errorf("searching index: %w", err)
	}

	kept := make([]vectorstore.Result, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < r.config.MinSimilarity {
			continue
		}
		kept = append(kept, h)
	}
	if dropped := len(hits) - len(kept); dropped > 0 {
		droppedHits.Add(float64(dropped))
		r.logger.Debug(ctx, "dropped low-similarity hits",
			zap.Int("dropped", dropped),
			zap.Float32("min_similarity", r.config.MinSimilarity),
		)
	}

	span.SetAttributes(attribute.Int("results_count", len(kept)))
	span.SetStatus(codes.Ok, "success")
	return kept, nil
}
