package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/config"
)

func TestServerConfig(t *testing.T) {
	cfg := config.Default()
	sc := serverConfig(cfg)
	assert.Equal(t, cfg.Server.Host, sc.Host)
	assert.Equal(t, 8000, sc.Port)
	assert.Equal(t, 10*time.Second, sc.ShutdownTimeout)
	assert.Equal(t, int64(32<<20), sc.MaxUploadBytes)
	assert.Equal(t, version, sc.Version)
}

func TestRunRejectsMissingConfigFile(t *testing.T) {
	err := run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestMainIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "ragchat.yaml")
	content := "server:\n  host: 127.0.0.1\n  port: 8094\n" +
		"storage:\n  root: " + filepath.Join(dir, "storage") + "\n" +
		"embeddings:\n  provider: hash\n  dimension: 256\n" +
		"logging:\n  level: warn\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OPENAI_API_KEY", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, path)
	}()

	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		time.Sleep(100 * time.Millisecond)
		resp, err = http.Get("http://127.0.0.1:8094/health")
		if err == nil {
			break
		}
	}
	require.NoError(t, err, "GET /health failed")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}
