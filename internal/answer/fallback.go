package answer

import (
	"context"
	"strings"
	"unicode/utf8"
)

const (
	// excerptRunes bounds the context quoted by the fallback answer.
	excerptRunes = 500
	// minContextLen is the longest trimmed context, in characters, that is
	// still too short to quote.
	minContextLen = 50

	excerptPrefix = "Based on the documents: "
	noLLMNotice   = "I found some relevant information but need an LLM to generate a proper response. Please configure OPENAI_API_KEY."
)

// Fallback answers without a model by quoting the start of the retrieved
// context. It is deterministic and never fails.
type Fallback struct{}

// NewFallback returns the local generator.
func NewFallback() *Fallback { return &Fallback{} }

// Name implements Generator.
func (*Fallback) Name() string { return "fallback" }

// Generate implements Generator.
func (*Fallback) Generate(_ context.Context, in Input) (string, error) {
	text := strings.TrimSpace(in.Context())
	if utf8.RuneCountInString(text) <= minContextLen {
		generations.WithLabelValues("fallback", "notice").Inc()
		return noLLMNotice, nil
	}
	runes := []rune(text)
	if len(runes) > excerptRunes {
		runes = runes[:excerptRunes]
	}
	generations.WithLabelValues("fallback", "excerpt").Inc()
	return excerptPrefix + string(runes) + "...", nil
}

var _ Generator = (*Fallback)(nil)
