// Package chat answers a question about one app's documents.
package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/answer"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apperr"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/metadata"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/vectorstore"
)

var tracer = otel.Tracer("ragchat.chat")

// AppGetter reads app records.
type AppGetter interface {
	GetApp(ctx context.Context, id string) (*metadata.App, error)
}

// Retriever finds the chunks relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, appID, query string) ([]vectorstore.Result, error)
}

// Response is a chat answer and the files it drew on.
type Response struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Orchestrator runs retrieval then generation for a question. It only reads
// app state.
type Orchestrator struct {
	apps      AppGetter
	retriever Retriever
	generator answer.Generator
	logger    *logging.Logger
}

// New creates an Orchestrator.
func New(apps AppGetter, retriever Retriever, generator answer.Generator, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Orchestrator{
		apps:      apps,
		retriever: retriever,
		generator: generator,
		logger:    logger.Named("chat"),
	}
}

// Chat answers message for the app. The app must exist and be READY.
// Every failure is returned as an *apperr.Error.
func (o *Orchestrator) Chat(ctx context.Context, appID, message string) (*Response, error) {
	ctx = logging.WithTenant(ctx, appID)
	ctx, span := tracer.Start(ctx, "chat.Chat")
	defer span.End()
	span.SetAttributes(attribute.String("app_id", appID))

	start := time.Now()
	resp, err := o.chat(ctx, appID, message)
	chatDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		kind := apperr.KindOf(err)
		chatRequests.WithLabelValues(kind.String()).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind == apperr.KindProvider || kind == apperr.KindInternal {
			o.logger.Error(ctx, "chat failed", zap.Error(err))
		}
		return nil, err
	}
	chatRequests.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int("sources", len(resp.Sources)))
	span.SetStatus(codes.Ok, "success")
	return resp, nil
}

func (o *Orchestrator) chat(ctx context.Context, appID, message string) (*Response, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation(appID, "Message cannot be empty")
	}

	app, err := o.apps.GetApp(ctx, appID)
	if errors.Is(err, metadata.ErrNotFound) {
		return nil, apperr.NotFound(appID)
	}
	if err != nil {
		return nil, apperr.Internal(appID, err)
	}
	if app.Status != metadata.StatusReady {
		return nil, apperr.Precondition(appID, "App '%s' is not trained yet. Status: %s", appID, app.Status)
	}

	hits, err := o.retriever.Retrieve(ctx, appID, message)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, apperr.Provider(appID, err)
	}
	if len(hits) == 0 {
		o.logger.Info(ctx, "no relevant chunks, refusing")
		return &Response{Answer: answer.Refusal(appID), Sources: []string{}}, nil
	}

	chunks := make([]string, len(hits))
	for i, h := range hits {
		chunks[i] = h.Content
	}
	text, err := o.generator.Generate(ctx, answer.Input{
		AppID:    appID,
		AppName:  app.Name,
		Chunks:   chunks,
		Question: message,
	})
	if err != nil {
		return nil, apperr.Provider(appID, err)
	}

	o.logger.Debug(ctx, "answered",
		zap.String("generator", o.generator.Name()),
		zap.Int("chunks", len(hits)),
	)
	return &Response{Answer: text, Sources: Sources(hits)}, nil
}

// Sources lists the base file names of hits, deduplicated in first-seen order.
func Sources(hits []vectorstore.Result) []string {
	seen := make(map[string]struct{}, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Source == "" {
			continue
		}
		name := filepath.Base(h.Source)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
