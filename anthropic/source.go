package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/textstream"
)

// Interface compliance check.
var _ textstream.Source = (*Source)(nil)

// Source streams Anthropic completions as framed text.
type Source struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	model        string
	maxTokens    int
	systemPrompt string
}

// Option configures a [Source].
type Option func(*Source)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(s *Source) { s.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Source) { s.httpClient = hc }
}

// WithModel sets the model ID.
func WithModel(model string) Option {
	return func(s *Source) {
		if model != "" {
			s.model = model
		}
	}
}

// WithMaxTokens caps the length of each completion.
func WithMaxTokens(n int) Option {
	return func(s *Source) { s.maxTokens = n }
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) Option {
	return func(s *Source) { s.systemPrompt = prompt }
}

// New creates a [Source] with the given API key and options.
func New(apiKey string, opts ...Option) *Source {
	s := &Source{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open sends req as a streaming request. A non-200 response is returned as
// a *textstream.TransportError carrying the status code. The identity, if
// any, is forwarded as the request's metadata.user_id.
func (s *Source) Open(ctx context.Context, req textstream.Request) (io.ReadCloser, error) {
	body, err := json.Marshal(s.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", s.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, &textstream.TransportError{Err: fmt.Errorf("anthropic: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newFrameReader(ctx, resp.Body), nil
}

func (s *Source) buildRequest(req textstream.Request) apiRequest {
	apiReq := apiRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Stream:    true,
		System:    s.systemPrompt,
		Messages: []apiMessage{{
			Role:    "user",
			Content: []apiContentBlock{{Type: "text", Text: req.Message}},
		}},
	}
	if req.Identity != "" {
		apiReq.Metadata = &apiMetadata{UserID: req.Identity}
	}
	return apiReq
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &textstream.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("anthropic: failed to read body: %w", err),
		}
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		return &textstream.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("anthropic: %s", bytes.TrimSpace(body)),
		}
	}
	return &textstream.TransportError{
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("anthropic: %s: %s", apiErr.Error.Type, apiErr.Error.Message),
	}
}
