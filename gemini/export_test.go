package gemini

import (
	"context"
	"iter"

	"google.golang.org/genai"
)

// NewWithGenerator exposes newSource so tests can replace the API call.
func NewWithGenerator(generate func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error], opts ...Option) *Source {
	return newSource(generate, opts...)
}
