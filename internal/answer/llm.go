package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/config"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
)

const (
	defaultModel      = "gpt-3.5-turbo"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
)

// baseBackoff is a variable for testing purposes.
var baseBackoff = time.Second

var tracer = otel.Tracer("ragchat.answer")

// ErrEmptyCompletion is returned when the model answers with nothing.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer is the part of a langchaingo model the generator needs.
// *openai.LLM satisfies it.
type Completer interface {
	Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

// LLMConfig configures the grounded generator.
type LLMConfig struct {
	APIKey      config.Secret
	Model       string
	Temperature float64
	BaseURL     string
	// RequestsPerSecond caps completion calls. Zero means unlimited.
	RequestsPerSecond float64
	Timeout           time.Duration
	MaxRetries        int
}

// LLM answers from retrieved context with a chat model.
type LLM struct {
	client      Completer
	model       string
	temperature float64
	timeout     time.Duration
	maxRetries  int
	limiter     *rate.Limiter
	logger      *logging.Logger
}

// NewLLM creates a generator backed by the OpenAI chat API.
func NewLLM(cfg LLMConfig, logger *logging.Logger) (*LLM, error) {
	if !cfg.APIKey.IsSet() {
		return nil, errors.New("openai API key required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey.Value()),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	return NewLLMWithClient(client, cfg, logger), nil
}

// NewLLMWithClient creates a generator around an existing client.
func NewLLMWithClient(client Completer, cfg LLMConfig, logger *logging.Logger) *LLM {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &LLM{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger.Named("answer"),
	}
}

// Name implements Generator.
func (*LLM) Name() string { return "llm" }

// Model returns the chat model name.
func (g *LLM) Model() string { return g.model }

// Generate implements Generator.
func (g *LLM) Generate(ctx context.Context, in Input) (string, error) {
	ctx, span := tracer.Start(ctx, "answer.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("app_id", in.AppID),
		attribute.String("model", g.model),
		attribute.Int("chunks", len(in.Chunks)),
	)

	prompt, err := buildPrompt(in)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	start := time.Now()
	text, err := g.complete(ctx, prompt)
	generationDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	if err != nil {
		generations.WithLabelValues("llm", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	generations.WithLabelValues("llm", "success").Inc()
	span.SetStatus(codes.Ok, "success")
	return text, nil
}

// complete calls the model, retrying failures with exponential backoff.
func (g *LLM) complete(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<(attempt-1))
			g.logger.Warn(ctx, "retrying completion",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := g.call(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (g *LLM) call(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.client.Call(ctx, prompt, llms.WithTemperature(g.temperature))
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

var _ Generator = (*LLM)(nil)
