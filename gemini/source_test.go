package gemini_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"testing"
	"time"

	"github.com/fwojciec/textstream"
	"github.com/fwojciec/textstream/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type call struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

// fakeGenerator yields the given items and records the call.
func fakeGenerator(got *call, items ...any) func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
		if got != nil {
			*got = call{model: model, contents: contents, config: config}
		}
		return func(yield func(*genai.GenerateContentResponse, error) bool) {
			for _, item := range items {
				var ok bool
				switch v := item.(type) {
				case error:
					ok = yield(nil, v)
				case *genai.GenerateContentResponse:
					ok = yield(v, nil)
				}
				if !ok {
					return
				}
			}
		}
	}
}

func readAll(t *testing.T, s *gemini.Source, req textstream.Request) string {
	t.Helper()
	body, err := s.Open(context.Background(), req)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	return string(data)
}

func TestSource_EncodesFrames(t *testing.T) {
	t.Parallel()

	var got call
	s := gemini.NewWithGenerator(fakeGenerator(&got,
		textResponse(&genai.Part{Text: "Hel"}),
		textResponse(&genai.Part{Text: "pondering", Thought: true}, &genai.Part{Text: "lo"}),
		textResponse(),
	), gemini.WithModel("gemini-test"), gemini.WithSystemPrompt("be brief"), gemini.WithMaxTokens(64))

	out := readAll(t, s, textstream.Request{Message: "Hi", Identity: "user-1"})

	assert.Equal(t,
		"data: {\"content\":\"Hel\"}\n\n"+
			"data: {\"content\":\"lo\"}\n\n"+
			"data: {\"done\":true}\n\n",
		out)

	assert.Equal(t, "gemini-test", got.model)
	require.Len(t, got.contents, 1)
	require.Len(t, got.contents[0].Parts, 1)
	assert.Equal(t, "Hi", got.contents[0].Parts[0].Text)
	assert.Equal(t, int32(64), got.config.MaxOutputTokens)
	require.NotNil(t, got.config.SystemInstruction)
	assert.Equal(t, "be brief", got.config.SystemInstruction.Parts[0].Text)
}

func TestSource_ErrorBecomesErrorFrame(t *testing.T) {
	t.Parallel()

	s := gemini.NewWithGenerator(fakeGenerator(nil,
		textResponse(&genai.Part{Text: "Hi"}),
		errors.New("quota exceeded"),
	))

	out := readAll(t, s, textstream.Request{Message: "Hi"})
	assert.Equal(t,
		"data: {\"content\":\"Hi\"}\n\n"+
			"data: {\"error\":\"gemini: quota exceeded\"}\n\n",
		out)
}

func TestSource_WithController(t *testing.T) {
	t.Parallel()

	s := gemini.NewWithGenerator(fakeGenerator(nil,
		textResponse(&genai.Part{Text: "Hi"}),
		errors.New("rate_limited"),
	))
	c := textstream.NewController(s)

	err := c.Start(context.Background(), "Hi", "user-1")

	var se *textstream.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "gemini: rate_limited", se.Message)
	assert.Equal(t, "Hi", c.State().Text)
	assert.Equal(t, textstream.PhaseErrored, c.State().Phase())
}

func TestSource_CancelUnblocksRead(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)
	s := gemini.NewWithGenerator(func(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
		return func(yield func(*genai.GenerateContentResponse, error) bool) {
			select {
			case <-block:
			case <-ctx.Done():
				yield(nil, ctx.Err())
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	body, err := s.Open(ctx, textstream.Request{Message: "Hi"})
	require.NoError(t, err)
	defer body.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := body.Read(make([]byte, 16))
		errCh <- err
	}()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("read was not unblocked by cancellation")
	}
}
