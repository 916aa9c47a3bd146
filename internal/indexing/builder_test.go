package indexing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apperr"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/chunker"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/embeddings"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/metadata"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/storage"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/tenant"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/vectorstore"
)

type fixture struct {
	meta    *metadata.Store
	blobs   *storage.Store
	index   *vectorstore.Store
	locks   *tenant.Locks
	logger  *logging.TestLogger
	builder *Builder
}

func newFixture(t *testing.T, wrap func(Index) Index) *fixture {
	t.Helper()
	root := t.TempDir()

	meta, err := metadata.NewStore(root)
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	blobs, err := storage.New(root)
	require.NoError(t, err)

	hp, err := embeddings.NewHashProvider(1024)
	require.NoError(t, err)
	index, err := vectorstore.New(blobs, hp, vectorstore.Config{}, nil)
	require.NoError(t, err)

	c, err := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)

	var idx Index = index
	if wrap != nil {
		idx = wrap(index)
	}

	locks := tenant.NewLocks()
	tl := logging.NewTestLogger()
	return &fixture{
		meta:    meta,
		blobs:   blobs,
		index:   index,
		locks:   locks,
		logger:  tl,
		builder: NewBuilder(meta, blobs, idx, c, locks, tl.Logger),
	}
}

func (f *fixture) app(t *testing.T, id string, files map[string]string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.meta.CreateApp(ctx, id, id)
	require.NoError(t, err)
	for name, content := range files {
		_, err := f.blobs.SaveFile(id, name, []byte(content))
		require.NoError(t, err)
	}
	if len(files) > 0 {
		require.NoError(t, f.meta.UpdateStatus(ctx, id, metadata.StatusFilesUpdated, nil))
	}
}

func (f *fixture) status(t *testing.T, id string) *metadata.App {
	t.Helper()
	app, err := f.meta.GetApp(context.Background(), id)
	require.NoError(t, err)
	return app
}

func TestBuild_AppDeletedBeforeBuild(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", map[string]string{"notes.txt": "The sky is blue."})
	require.NoError(t, f.meta.DeleteApp(context.Background(), "demo"))

	_, err := f.builder.Build(context.Background(), "demo")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "App 'demo' not found", err.Error())

	f.logger.AssertLogged(t, zapcore.WarnLevel, "app no longer exists")
	f.logger.AssertNotLogged(t, zapcore.ErrorLevel, "index build failed")
	f.logger.AssertNotLogged(t, zapcore.ErrorLevel, "failed to record FAILED status")
	assert.False(t, f.index.Exists("demo"))
}

func TestBuild_Success(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", map[string]string{
		"notes.txt":  "The sky is blue.",
		"plants.md":  "Grass is green.",
		"README.txt": "Short readme.",
	})

	before := time.Now().UTC().Add(-time.Second)
	res, err := f.builder.Build(context.Background(), "demo")
	require.NoError(t, err)

	// Every document is shorter than size minus overlap, so one chunk each.
	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, metadata.StatusReady, res.Status)
	assert.True(t, res.IndexedAt.After(before))

	app := f.status(t, "demo")
	assert.Equal(t, metadata.StatusReady, app.Status)
	require.NotNil(t, app.LastIndexedAt)
	assert.True(t, res.IndexedAt.Truncate(time.Microsecond).Equal(*app.LastIndexedAt))

	assert.True(t, f.index.Exists("demo"))
	m, err := f.index.Manifest("demo")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Documents)
	assert.Equal(t, 3, m.Chunks)

	f.logger.AssertLogged(t, zapcore.InfoLevel, "index build finished")
	f.logger.AssertField(t, "index build finished", "tenant", "demo")
}

func TestBuild_LongDocumentSplits(t *testing.T) {
	f := newFixture(t, nil)
	long := strings.Repeat("Rivers carry water to the sea. ", 100)
	f.app(t, "demo", map[string]string{"long.txt": long, "short.txt": "tiny"})

	res, err := f.builder.Build(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Documents)
	assert.Greater(t, res.Chunks, res.Documents)
}

func TestBuild_SkipsUnsupportedFiles(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", map[string]string{"notes.txt": "The sky is blue."})
	require.NoError(t, os.WriteFile(filepath.Join(f.blobs.FilesDir("demo"), "scan.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.blobs.FilesDir("demo"), "bad.txt"), []byte{0xff, 0xfe, 0xfd}, 0o644))

	res, err := f.builder.Build(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Documents)

	f.logger.AssertLogged(t, zapcore.WarnLevel, "skipping unsupported file")
	f.logger.AssertField(t, "skipping unsupported file", "file", "scan.pdf")
	f.logger.AssertLogged(t, zapcore.WarnLevel, "skipping unreadable file")
}

func TestBuild_NoLoadableDocumentsFails(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", nil)
	require.NoError(t, f.blobs.EnsureDirs("demo"))
	require.NoError(t, os.WriteFile(filepath.Join(f.blobs.FilesDir("demo"), "scan.pdf"), []byte("%PDF"), 0o644))

	_, err := f.builder.Build(context.Background(), "demo")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBuild))
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.Contains(t, err.Error(), "demo")

	assert.Equal(t, metadata.StatusFailed, f.status(t, "demo").Status)
	assert.False(t, f.index.Exists("demo"))
	f.logger.AssertLogged(t, zapcore.ErrorLevel, "index build failed")
}

func TestBuild_BlankDocumentsFail(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", map[string]string{"empty.txt": "   \n\n  "})

	_, err := f.builder.Build(context.Background(), "demo")
	assert.ErrorIs(t, err, ErrNoText)
	assert.Equal(t, metadata.StatusFailed, f.status(t, "demo").Status)
}

type failingIndex struct {
	Index
	err error
}

func (f failingIndex) Write(context.Context, string, int, []vectorstore.Chunk) (*vectorstore.Manifest, error) {
	return nil, f.err
}

func TestBuild_WriteFailureMarksFailed(t *testing.T) {
	boom := errors.New("embedding provider unavailable")
	f := newFixture(t, func(i Index) Index { return failingIndex{Index: i, err: boom} })
	f.app(t, "demo", map[string]string{"notes.txt": "The sky is blue."})

	_, err := f.builder.Build(context.Background(), "demo")
	assert.ErrorIs(t, err, boom)
	assert.True(t, apperr.Is(err, apperr.KindBuild))
	assert.Equal(t, metadata.StatusFailed, f.status(t, "demo").Status)
}

func TestBuild_PreviousIndexClearedBeforeFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", map[string]string{"notes.txt": "The sky is blue."})
	_, err := f.builder.Build(context.Background(), "demo")
	require.NoError(t, err)

	_, err = f.blobs.DeleteFile("demo", "notes.txt")
	require.NoError(t, err)

	_, err = f.builder.Build(context.Background(), "demo")
	require.Error(t, err)
	assert.False(t, f.index.Exists("demo"))
}

func TestBuild_RebuildDropsStaleChunks(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", map[string]string{
		"sky.txt":     "The sky is blue.",
		"volcano.txt": "Volcanoes erupt molten rock.",
	})
	ctx := context.Background()

	_, err := f.builder.Build(ctx, "demo")
	require.NoError(t, err)
	results, err := f.index.Search(ctx, "demo", "volcanoes erupt molten rock", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "volcano.txt", filepath.Base(results[0].Source))

	_, err = f.blobs.DeleteFile("demo", "volcano.txt")
	require.NoError(t, err)
	res, err := f.builder.Build(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Documents)

	results, err = f.index.Search(ctx, "demo", "volcanoes erupt molten rock", 3)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "volcano.txt", filepath.Base(r.Source))
	}
}

func TestBuild_RetryAfterFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", map[string]string{"empty.txt": " "})

	_, err := f.builder.Build(context.Background(), "demo")
	require.Error(t, err)

	_, err = f.blobs.SaveFile("demo", "notes.txt", []byte("The sky is blue."))
	require.NoError(t, err)
	res, err := f.builder.Build(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusReady, res.Status)
}

func TestBuild_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", map[string]string{"notes.txt": "The sky is blue."})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.builder.Build(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusReady, res.Status)
}

// overlapIndex detects two writes of the same app running at once.
type overlapIndex struct {
	Index
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	writes   atomic.Int32
}

func (o *overlapIndex) Write(ctx context.Context, appID string, docs int, chunks []vectorstore.Chunk) (*vectorstore.Manifest, error) {
	n := o.inFlight.Add(1)
	defer o.inFlight.Add(-1)
	for {
		m := o.maxSeen.Load()
		if n <= m || o.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	o.writes.Add(1)
	time.Sleep(20 * time.Millisecond)
	return o.Index.Write(ctx, appID, docs, chunks)
}

func TestBuild_ConcurrentCallsSerialized(t *testing.T) {
	var oi *overlapIndex
	f := newFixture(t, func(i Index) Index {
		oi = &overlapIndex{Index: i}
		return oi
	})
	f.app(t, "demo", map[string]string{"notes.txt": "The sky is blue."})

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.builder.Build(context.Background(), "demo")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), oi.maxSeen.Load())
	assert.LessOrEqual(t, oi.writes.Load(), int32(callers))
	assert.Equal(t, metadata.StatusReady, f.status(t, "demo").Status)
	assert.Zero(t, f.locks.Len())
}

func TestBuild_ReaderWaitsForRebuild(t *testing.T) {
	f := newFixture(t, nil)
	f.app(t, "demo", map[string]string{"notes.txt": "The sky is blue."})

	unlock := f.locks.RLock("demo")
	done := make(chan struct{})
	go func() {
		_, _ = f.builder.Build(context.Background(), "demo")
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("build ran while a reader held the index")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	<-done
	assert.Equal(t, metadata.StatusReady, f.status(t, "demo").Status)
}
