package services

import (
	"context"
	"testing"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/answer"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apps"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/config"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/embeddings"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()
	cfg.Embeddings.Provider = "hash"
	cfg.Embeddings.Dimension = 256
	cfg.LLM.APIKey = ""
	return cfg
}

func TestNewRegistry(t *testing.T) {
	var _ Registry = (*registry)(nil)
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestNew_FromConfig(t *testing.T) {
	reg, err := New(context.Background(), Options{Config: testConfig(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer reg.Close()

	if reg.Apps() == nil || reg.Metadata() == nil || reg.Storage() == nil || reg.VectorStore() == nil {
		t.Fatal("expected every service to be wired")
	}
	if got := reg.Generator().Name(); got != "fallback" {
		t.Errorf("generator = %q, want fallback without an API key", got)
	}
	// The embedder is lazy; its model name is known before first use.
	if got := reg.Embedder().Model(); got != "hash-256" {
		t.Errorf("embedder model = %q, want hash-256", got)
	}
}

func TestNew_Overrides(t *testing.T) {
	hp, err := embeddings.NewHashProvider(64)
	if err != nil {
		t.Fatal(err)
	}
	gen := answer.NewFallback()

	reg, err := New(context.Background(), Options{Config: testConfig(t), Embedder: hp, Generator: gen})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer reg.Close()

	if reg.Embedder() != embeddings.Provider(hp) {
		t.Error("expected embedder override")
	}
	if reg.Generator() != answer.Generator(gen) {
		t.Error("expected generator override")
	}
}

func TestRegistry_EndToEnd(t *testing.T) {
	ctx := context.Background()
	reg, err := New(ctx, Options{Config: testConfig(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer reg.Close()

	svc := reg.Apps()
	if _, err := svc.CreateApp(ctx, "demo", "Demo"); err != nil {
		t.Fatal(err)
	}
	long := "The sky is blue and the sky is wide, so the sky is what we see."
	if _, err := svc.UploadFiles(ctx, "demo", []apps.Upload{{Filename: "notes.txt", Content: []byte(long)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Train(ctx, "demo"); err != nil {
		t.Fatal(err)
	}
	resp, err := svc.Chat(ctx, "demo", "What color is the sky?")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "notes.txt" {
		t.Errorf("sources = %v, want [notes.txt]", resp.Sources)
	}
	want := "Based on the documents: " + long + "..."
	if resp.Answer != want {
		t.Errorf("answer = %q, want %q", resp.Answer, want)
	}
}
