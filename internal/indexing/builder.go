// Package indexing builds an app's vector index from its uploaded files and
// drives the app's status through INDEXING to READY or FAILED.
//
// Every build is a full replacement: the previous index is destroyed before
// any file is read, so a rebuild never merges old and new chunks. Builds of
// the same app are serialized, and concurrent train requests for one app
// share a single build.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apperr"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/chunker"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/metadata"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/tenant"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/vectorstore"
)

var (
	// ErrNoDocuments means no file could be loaded.
	ErrNoDocuments = errors.New("no documents could be loaded")
	// ErrNoText means the loaded documents held no text to index.
	ErrNoText = errors.New("documents contain no text")
)

// timeNow is a variable for testing purposes.
var timeNow = time.Now

var tracer = otel.Tracer("ragchat.indexing")

// StatusStore records app status transitions.
type StatusStore interface {
	UpdateStatus(ctx context.Context, id string, status metadata.Status, lastIndexedAt *time.Time) error
}

// FileLister lists the files stored for an app.
type FileLister interface {
	ListFilePaths(appID string) ([]string, error)
}

// Index is the persisted vector index.
type Index interface {
	Clear(ctx context.Context, appID string) error
	Write(ctx context.Context, appID string, documents int, chunks []vectorstore.Chunk) (*vectorstore.Manifest, error)
}

// Result summarizes a successful build.
type Result struct {
	Documents int             `json:"documents"`
	Chunks    int             `json:"chunks"`
	Status    metadata.Status `json:"status"`
	IndexedAt time.Time       `json:"last_indexed_at"`
}

// Builder turns uploaded files into an index.
type Builder struct {
	status  StatusStore
	files   FileLister
	index   Index
	chunker *chunker.Chunker
	locks   *tenant.Locks
	logger  *logging.Logger

	group singleflight.Group
}

// NewBuilder creates a Builder. locks must be the table shared with readers
// of the same indexes.
func NewBuilder(status StatusStore, files FileLister, index Index, c *chunker.Chunker, locks *tenant.Locks, logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Builder{
		status:  status,
		files:   files,
		index:   index,
		chunker: c,
		locks:   locks,
		logger:  logger.Named("indexing"),
	}
}

// Build rebuilds the app's index. Concurrent calls for the same app share one
// build and its outcome. Failures are *apperr.Error of KindBuild and leave the
// app FAILED.
//
// The build does not stop when ctx is cancelled; a started build always ends
// in READY or FAILED.
func (b *Builder) Build(ctx context.Context, appID string) (*Result, error) {
	ch := b.group.DoChan(appID, func() (interface{}, error) {
		return b.build(context.WithoutCancel(ctx), appID)
	})
	res := <-ch
	if res.Shared {
		sharedBuilds.Inc()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	r := *res.Val.(*Result)
	return &r, nil
}

func (b *Builder) build(ctx context.Context, appID string) (*Result, error) {
	unlock := b.locks.Lock(appID)
	defer unlock()

	ctx = logging.WithTenant(ctx, appID)
	ctx, span := tracer.Start(ctx, "indexing.Build")
	defer span.End()
	span.SetAttributes(attribute.String("app_id", appID))

	start := timeNow()
	b.logger.Info(ctx, "index build started")

	fail := func(err error) (*Result, error) {
		if serr := b.status.UpdateStatus(ctx, appID, metadata.StatusFailed, nil); serr != nil {
			b.logger.Error(ctx, "failed to record FAILED status", zap.Error(serr))
		}
		buildsTotal.WithLabelValues("failed").Inc()
		buildDuration.Observe(timeNow().Sub(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Error(ctx, "index build failed",
			zap.String("status", string(metadata.StatusFailed)),
			zap.Error(err),
		)
		return nil, apperr.Build(appID, err)
	}

	if err := b.status.UpdateStatus(ctx, appID, metadata.StatusIndexing, nil); err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			// Deleted while this build waited on the tenant lock.
			buildsTotal.WithLabelValues("failed").Inc()
			span.SetStatus(codes.Error, "app not found")
			b.logger.Warn(ctx, "index build skipped, app no longer exists")
			return nil, apperr.NotFound(appID)
		}
		return fail(fmt.Errorf("setting status: %w", err))
	}
	b.logger.Info(ctx, "status changed", zap.String("status", string(metadata.StatusIndexing)))

	if err := b.index.Clear(ctx, appID); err != nil {
		return fail(fmt.Errorf("clearing index: %w", err))
	}

	paths, err := b.files.ListFilePaths(appID)
	if err != nil {
		return fail(fmt.Errorf("listing files: %w", err))
	}
	docs := loadDocuments(ctx, paths, b.logger)
	if len(docs) == 0 {
		return fail(ErrNoDocuments)
	}
	documentsLoaded.Add(float64(len(docs)))

	pieces, err := b.chunker.Split(docs)
	if err != nil {
		return fail(fmt.Errorf("chunking: %w", err))
	}
	if len(pieces) == 0 {
		return fail(ErrNoText)
	}
	b.logger.Info(ctx, "documents chunked",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(pieces)),
	)

	chunks := make([]vectorstore.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = vectorstore.Chunk{Content: p.Content, Source: p.Source, Index: p.Index}
	}
	if _, err := b.index.Write(ctx, appID, len(docs), chunks); err != nil {
		return fail(fmt.Errorf("writing index: %w", err))
	}

	indexedAt := timeNow().UTC()
	if err := b.status.UpdateStatus(ctx, appID, metadata.StatusReady, &indexedAt); err != nil {
		return fail(fmt.Errorf("setting status: %w", err))
	}

	buildsTotal.WithLabelValues("success").Inc()
	buildDuration.Observe(timeNow().Sub(start).Seconds())
	span.SetAttributes(
		attribute.Int("documents", len(docs)),
		attribute.Int("chunks", len(chunks)),
	)
	span.SetStatus(codes.Ok, "success")
	b.logger.Info(ctx, "index build finished",
		zap.String("status", string(metadata.StatusReady)),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", timeNow().Sub(start)),
	)

	return &Result{
		Documents: len(docs),
		Chunks:    len(chunks),
		Status:    metadata.StatusReady,
		IndexedAt: indexedAt,
	}, nil
}
