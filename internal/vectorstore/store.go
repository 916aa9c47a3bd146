// Package vectorstore persists one chromem-go vector index per app.
//
// Each app's index lives in its own directory. A build writes the chunk
// collection first and the manifest (index.json) last; an index counts as
// present only once its manifest exists, so a half-written or cleared
// directory is never searched.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/embeddings"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
)

// ManifestFile marks a complete index.
const ManifestFile = "index.json"

const (
	collectionName = "chunks"
	metaSource     = "source"
	metaIndex      = "chunk_index"
)

// Errors for index operations.
var (
	ErrNoIndex        = errors.New("no index")
	ErrEmptyDocuments = errors.New("no chunks to index")
	ErrModelMismatch  = errors.New("index was built with a different embedding model")
)

// timeNow is a variable for testing purposes.
var timeNow = time.Now

var tracer = otel.Tracer("ragchat.vectorstore")

// chunkNamespace seeds deterministic chunk ids.
var chunkNamespace = uuid.MustParse("6f1c2a9e-4b53-4d7e-9a51-3c1f0c2b7d44")

// Dirs resolves and resets index directories. storage.Store satisfies it.
type Dirs interface {
	IndexDir(appID string) string
	ClearIndexDir(appID string) error
}

// Chunk is a piece of text to index.
type Chunk struct {
	Content string
	Source  string
	Index   int
}

// Result is one search hit.
type Result struct {
	ID         string
	Content    string
	Source     string
	Similarity float32
}

// Manifest describes a completed index.
type Manifest struct {
	Documents int       `json:"documents"`
	Chunks    int       `json:"chunks"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	BuiltAt   time.Time `json:"built_at"`
}

// Config holds store options.
type Config struct {
	// Compress gzips the persisted collection files.
	Compress bool
	// Concurrency bounds parallel document inserts. Defaults to GOMAXPROCS.
	Concurrency int
}

// Store manages the per-app indexes. Callers serialize writes and reads of the
// same app; Store only guards its own handle cache.
type Store struct {
	dirs     Dirs
	embedder embeddings.Provider
	config   Config
	logger   *logging.Logger

	mu  sync.Mutex
	dbs map[string]*chromem.DB
}

// New creates a Store.
func New(dirs Dirs, embedder embeddings.Provider, cfg Config, logger *logging.Logger) (*Store, error) {
	if dirs == nil {
		return nil, errors.New("index directories are required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Store{
		dirs:     dirs,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
		dbs:      make(map[string]*chromem.DB),
	}, nil
}

func (s *Store) manifestPath(appID string) string {
	return filepath.Join(s.dirs.IndexDir(appID), ManifestFile)
}

// Exists reports whether a complete index is present for the app.
func (s *Store) Exists(appID string) bool {
	_, err := os.Stat(s.manifestPath(appID))
	return err == nil
}

// Manifest returns the app's index manifest, or ErrNoIndex.
func (s *Store) Manifest(appID string) (*Manifest, error) {
	data, err := os.ReadFile(s.manifestPath(appID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoIndex
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}

// Clear destroys the app's index. The manifest goes first so the index stops
// being visible before any data is removed.
func (s *Store) Clear(ctx context.Context, appID string) error {
	_, span := tracer.Start(ctx, "vectorstore.Clear")
	defer span.End()
	span.SetAttributes(attribute.String("app_id", appID))

	if err := os.Remove(s.manifestPath(appID)); err != nil && !os.IsNotExist(err) {
		span.RecordError(err)
		return fmt.Errorf("removing manifest: %w", err)
	}
	s.Forget(appID)
	if err := s.dirs.ClearIndexDir(appID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.logger.Debug(ctx, "index cleared", zap.String("app_id", appID))
	return nil
}

// Forget drops any cached handle for the app.
func (s *Store) Forget(appID string) {
	s.mu.Lock()
	delete(s.dbs, appID)
	s.mu.Unlock()
}

// Write embeds chunks and persists them as the app's index, then writes the
// manifest. The index directory is expected to be empty.
func (s *Store) Write(ctx context.Context, appID string, documents int, chunks []Chunk) (*Manifest, error) {
	ctx, span := tracer.Start(ctx, "vectorstore.Write")
	defer span.End()
	span.SetAttributes(
		attribute.String("app_id", appID),
		attribute.Int("chunk_count", len(chunks)),
	)

	start := timeNow()
	manifest, err := s.write(ctx, appID, documents, chunks)
	writeDuration.Observe(timeNow().Sub(start).Seconds())
	if err != nil {
		writesTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	writesTotal.WithLabelValues("success").Inc()
	chunksIndexed.Add(float64(len(chunks)))
	span.SetStatus(codes.Ok, "success")
	return manifest, nil
}

func (s *Store) write(ctx context.Context, appID string, documents int, chunks []Chunk) (*Manifest, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyDocuments
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	db, err := s.open(appID)
	if err != nil {
		return nil, err
	}
	collection, err := db.GetOrCreateCollection(collectionName, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      chunkID(c),
			Content: c.Content,
			Metadata: map[string]string{
				metaSource: c.Source,
				metaIndex:  fmt.Sprintf("%d", c.Index),
			},
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, s.config.Concurrency); err != nil {
		return nil, fmt.Errorf("adding chunks: %w", err)
	}

	manifest := &Manifest{
		Documents: documents,
		Chunks:    len(chunks),
		Model:     s.embedder.Model(),
		Dimension: len(vectors[0]),
		BuiltAt:   timeNow().UTC(),
	}
	if err := s.writeManifest(appID, manifest); err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "index written",
		zap.String("app_id", appID),
		zap.Int("chunks", len(chunks)),
		zap.String("model", manifest.Model),
	)
	return manifest, nil
}

func (s *Store) writeManifest(appID string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	path := s.manifestPath(appID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}

// Search returns up to k chunks most similar to query, best first.
// It returns ErrNoIndex if the app has no complete index.
func (s *Store) Search(ctx context.Context, appID, query string, k int) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "vectorstore.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("app_id", appID),
		attribute.Int("k", k),
	)

	start := timeNow()
	results, err := s.search(ctx, appID, query, k)
	searchDuration.Observe(timeNow().Sub(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

func (s *Store) search(ctx context.Context, appID, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}

	manifest, err := s.Manifest(appID)
	if err != nil {
		return nil, err
	}
	if model := s.embedder.Model(); manifest.Model != "" && model != "" && manifest.Model != model {
		return nil, fmt.Errorf("%w: built with %q, configured %q", ErrModelMismatch, manifest.Model, model)
	}

	db, err := s.open(appID)
	if err != nil {
		return nil, err
	}
	collection := db.GetCollection(collectionName, s.embeddingFunc())
	if collection == nil {
		return nil, ErrNoIndex
	}

	// chromem requires nResults <= document count
	count := collection.Count()
	if count == 0 {
		return []Result{}, nil
	}
	if k > count {
		k = count
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	hits, err := collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:         h.ID,
			Content:    h.Content,
			Source:     h.Metadata[metaSource],
			Similarity: h.Similarity,
		}
	}
	return results, nil
}

// open returns the cached DB for the app, loading it from disk if needed.
func (s *Store) open(appID string) (*chromem.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[appID]; ok {
		return db, nil
	}
	dir := s.dirs.IndexDir(appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, s.config.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	s.dbs[appID] = db
	return db, nil
}

// embeddingFunc lets chromem embed on its own if it ever needs to. Chunks and
// queries are embedded by Store before reaching chromem.
func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// chunkID is stable for a given source and position, so rebuilding the same
// files yields the same ids.
func chunkID(c Chunk) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", c.Source, c.Index))).String()
}
