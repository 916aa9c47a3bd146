// Package answer turns retrieved chunks and a question into an answer.
//
// Two generators share one contract: LLM grounds a chat model in the
// retrieved context, and Fallback answers locally with an excerpt of that
// context when no model is configured. The choice is made once at startup by
// New.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/config"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
)

// Input is everything a generator may use.
type Input struct {
	AppID    string
	AppName  string
	Chunks   []string
	Question string
}

// Context joins the chunk texts the way they are shown to the model.
func (in Input) Context() string {
	return strings.Join(in.Chunks, "\n\n")
}

// Generator produces an answer for a question about an app's documents.
type Generator interface {
	Generate(ctx context.Context, in Input) (string, error)
	// Name identifies the variant in logs and metrics.
	Name() string
}

// Refusal is the fixed answer when the documents do not cover a question.
func Refusal(appID string) string {
	return fmt.Sprintf("I don't have that information in the uploaded %s documents.", appID)
}

// New selects the generator for the process: LLM when an API key is
// configured, Fallback otherwise.
func New(cfg config.LLMConfig, logger *logging.Logger) (Generator, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if !cfg.APIKey.IsSet() {
		logger.Warn(context.Background(), "no LLM API key configured, answering with document excerpts")
		return NewFallback(), nil
	}
	g, err := NewLLM(LLMConfig{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		Temperature:       cfg.Temperature,
		BaseURL:           cfg.BaseURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info(context.Background(), "LLM answer generation enabled", zap.String("model", g.model))
	return g, nil
}
