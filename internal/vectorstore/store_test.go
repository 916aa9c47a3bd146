package vectorstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/embeddings"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/storage"
)

type failingEmbedder struct {
	*embeddings.HashProvider
	err error
}

func (f *failingEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, f.err
}

type renamedEmbedder struct {
	*embeddings.HashProvider
	model string
}

func (r *renamedEmbedder) Model() string { return r.model }

func newHash(t *testing.T) *embeddings.HashProvider {
	t.Helper()
	p, err := embeddings.NewHashProvider(1024)
	require.NoError(t, err)
	return p
}

func newTestStore(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	blobs, err := storage.New(t.TempDir())
	require.NoError(t, err)
	s, err := New(blobs, newHash(t), Config{}, nil)
	require.NoError(t, err)
	return s, blobs
}

var sampleChunks = []Chunk{
	{Content: "The sky is blue.", Source: "notes.txt", Index: 0},
	{Content: "Volcanoes erupt molten rock.", Source: "geology.md", Index: 0},
	{Content: "Grass is green in spring.", Source: "plants.txt", Index: 0},
	{Content: "At night the sky is dark.", Source: "notes.txt", Index: 1},
}

func TestNew_RequiresDependencies(t *testing.T) {
	blobs, err := storage.New(t.TempDir())
	require.NoError(t, err)

	_, err = New(nil, newHash(t), Config{}, nil)
	assert.Error(t, err)
	_, err = New(blobs, nil, Config{}, nil)
	assert.Error(t, err)
}

func TestWriteAndSearch(t *testing.T) {
	s, blobs := newTestStore(t)
	ctx := context.Background()

	assert.False(t, s.Exists("demo"))

	m, err := s.Write(ctx, "demo", 3, sampleChunks)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Documents)
	assert.Equal(t, 4, m.Chunks)
	assert.Equal(t, "hash-1024", m.Model)
	assert.Equal(t, 1024, m.Dimension)
	assert.False(t, m.BuiltAt.IsZero())

	assert.True(t, s.Exists("demo"))
	assert.FileExists(t, filepath.Join(blobs.IndexDir("demo"), ManifestFile))

	read, err := s.Manifest("demo")
	require.NoError(t, err)
	assert.Equal(t, m.Chunks, read.Chunks)

	results, err := s.Search(ctx, "demo", "What color is the sky?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "The sky is blue.", results[0].Content)
	assert.Equal(t, "notes.txt", results[0].Source)
	assert.Equal(t, "notes.txt", results[1].Source)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestSearch_CapsKAtChunkCount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Write(ctx, "demo", 1, sampleChunks[:2])
	require.NoError(t, err)

	results, err := s.Search(ctx, "demo", "sky", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_NoIndex(t *testing.T) {
	s, blobs := newTestStore(t)
	ctx := context.Background()

	_, err := s.Search(ctx, "demo", "sky", 3)
	assert.ErrorIs(t, err, ErrNoIndex)

	// A directory with data but no manifest is not an index.
	require.NoError(t, blobs.EnsureDirs("demo"))
	require.NoError(t, os.WriteFile(filepath.Join(blobs.IndexDir("demo"), "leftover"), []byte("x"), 0o644))
	_, err = s.Search(ctx, "demo", "sky", 3)
	assert.ErrorIs(t, err, ErrNoIndex)

	_, err = s.Manifest("demo")
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestSearch_InvalidArguments(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.Write(ctx, "demo", 1, sampleChunks)
	require.NoError(t, err)

	_, err = s.Search(ctx, "demo", "sky", 0)
	assert.Error(t, err)
	_, err = s.Search(ctx, "demo", "", 3)
	assert.Error(t, err)
}

func TestClear_ThenRebuildDropsStaleChunks(t *testing.T) {
	s, blobs := newTestStore(t)
	ctx := context.Background()

	_, err := s.Write(ctx, "demo", 3, sampleChunks)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "demo"))
	assert.False(t, s.Exists("demo"))
	assert.DirExists(t, blobs.IndexDir("demo"))
	_, err = s.Search(ctx, "demo", "volcanoes", 3)
	assert.ErrorIs(t, err, ErrNoIndex)

	_, err = s.Write(ctx, "demo", 1, []Chunk{{Content: "Grass is green in spring.", Source: "plants.txt"}})
	require.NoError(t, err)

	results, err := s.Search(ctx, "demo", "volcanoes erupt", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "plants.txt", results[0].Source)
}

func TestClear_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)
	assert.NoError(t, s.Clear(context.Background(), "never-built"))
	assert.NoError(t, s.Clear(context.Background(), "never-built"))
}

func TestSearch_ReloadsFromDisk(t *testing.T) {
	s, blobs := newTestStore(t)
	ctx := context.Background()
	_, err := s.Write(ctx, "demo", 3, sampleChunks)
	require.NoError(t, err)

	reopened, err := New(blobs, newHash(t), Config{}, nil)
	require.NoError(t, err)

	results, err := reopened.Search(ctx, "demo", "molten rock", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "geology.md", results[0].Source)
}

func TestSearch_ModelMismatch(t *testing.T) {
	s, blobs := newTestStore(t)
	ctx := context.Background()
	_, err := s.Write(ctx, "demo", 3, sampleChunks)
	require.NoError(t, err)

	other, err := New(blobs, &renamedEmbedder{HashProvider: newHash(t), model: "other-model"}, Config{}, nil)
	require.NoError(t, err)

	_, err = other.Search(ctx, "demo", "sky", 1)
	assert.ErrorIs(t, err, ErrModelMismatch)
}

func TestWrite_Errors(t *testing.T) {
	blobs, err := storage.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	s, err := New(blobs, newHash(t), Config{}, nil)
	require.NoError(t, err)
	_, err = s.Write(ctx, "demo", 0, nil)
	assert.ErrorIs(t, err, ErrEmptyDocuments)

	boom := errors.New("provider down")
	failing, err := New(blobs, &failingEmbedder{HashProvider: newHash(t), err: boom}, Config{}, nil)
	require.NoError(t, err)
	_, err = failing.Write(ctx, "demo", 1, sampleChunks)
	assert.ErrorIs(t, err, boom)
	assert.False(t, failing.Exists("demo"))
}

func TestChunkID_Deterministic(t *testing.T) {
	a := chunkID(Chunk{Source: "notes.txt", Index: 0})
	assert.Equal(t, a, chunkID(Chunk{Source: "notes.txt", Index: 0, Content: "different"}))
	assert.NotEqual(t, a, chunkID(Chunk{Source: "notes.txt", Index: 1}))
	assert.NotEqual(t, a, chunkID(Chunk{Source: "other.txt", Index: 0}))
}
