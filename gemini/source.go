package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/fwojciec/textstream"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ textstream.Source = (*Source)(nil)

// generateFunc matches genai's Models.GenerateContentStream.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

// Source streams Gemini completions as framed text.
type Source struct {
	generate     generateFunc
	model        string
	systemPrompt string
	maxTokens    int32
}

// Option configures a [Source].
type Option func(*Source)

// WithModel sets the model ID.
func WithModel(model string) Option {
	return func(s *Source) {
		if model != "" {
			s.model = model
		}
	}
}

// WithSystemPrompt sets the system instruction sent with every prompt.
func WithSystemPrompt(prompt string) Option {
	return func(s *Source) { s.systemPrompt = prompt }
}

// WithMaxTokens caps the length of each completion.
func WithMaxTokens(n int) Option {
	return func(s *Source) { s.maxTokens = int32(n) }
}

// New creates a [Source] using the Gemini API with the given key.
func New(ctx context.Context, apiKey string, opts ...Option) (*Source, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return newSource(gc.Models.GenerateContentStream, opts...), nil
}

func newSource(generate generateFunc, opts ...Option) *Source {
	s := &Source{
		generate:  generate,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open starts generation for req.Message and returns a body carrying the
// output as frames. Errors from the API are reported as error frames. The
// identity is not forwarded: the Gemini API has no end-user field.
//
// Cancelling ctx closes the body with ctx's error, so a pending Read
// returns immediately.
func (s *Source) Open(ctx context.Context, req textstream.Request) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	stop := context.AfterFunc(ctx, func() {
		pw.CloseWithError(ctx.Err())
	})

	go func() {
		defer stop()
		pw.CloseWithError(s.pump(ctx, req, textstream.NewEncoder(pw)))
	}()
	return pr, nil
}

// pump encodes the response stream. The returned error closes the pipe;
// nil closes it cleanly after the done frame.
func (s *Source) pump(ctx context.Context, req textstream.Request, enc *textstream.Encoder) error {
	for resp, err := range s.generate(ctx, s.model, genai.Text(req.Message), s.config()) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return enc.Encode(textstream.EventError{Message: fmt.Sprintf("gemini: %v", err)})
		}
		text := responseText(resp)
		if text == "" {
			continue
		}
		if err := enc.Encode(textstream.EventContentDelta{Text: text}); err != nil {
			return err
		}
	}
	return enc.Encode(textstream.EventDone{})
}

func (s *Source) config() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: s.maxTokens,
	}
	if s.systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: s.systemPrompt}},
		}
	}
	return config
}

// responseText concatenates the non-thought text parts of the first
// candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
