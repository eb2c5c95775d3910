package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/fwojciec/textstream"
	tsjson "github.com/fwojciec/textstream/json"
	"github.com/fwojciec/textstream/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPlain(t *testing.T) {
	t.Parallel()

	t.Run("prints streamed text and a final newline", func(t *testing.T) {
		t.Parallel()

		ctrl := textstream.NewController(mock.StaticSource(mock.Chunks(
			"data: {\"content\":\"Hel\"}\n\ndata: {\"con",
			"tent\":\"lo\"}\n\n",
			"data: {\"done\":true}\n\n",
		)))
		var out bytes.Buffer

		err := runPlain(context.Background(), ctrl, "hi", "me", &out)

		require.NoError(t, err)
		assert.Equal(t, "Hello\n", out.String())
	})

	t.Run("returns the source error after partial text", func(t *testing.T) {
		t.Parallel()

		ctrl := textstream.NewController(mock.StaticSource(mock.Chunks(
			"data: {\"content\":\"Hi\"}\n\n",
			"data: {\"error\":\"rate_limited\"}\n\n",
		)))
		var out bytes.Buffer

		err := runPlain(context.Background(), ctrl, "hi", "", &out)

		var srcErr *textstream.SourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Equal(t, "rate_limited", srcErr.Message)
		assert.Equal(t, "Hi\n", out.String())
	})

	t.Run("cancellation is not an error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		src := &mock.Source{
			OpenFn: func(ctx context.Context, _ textstream.Request) (io.ReadCloser, error) {
				cancel()
				return nil, ctx.Err()
			},
		}
		ctrl := textstream.NewController(src)
		var out bytes.Buffer

		err := runPlain(ctx, ctrl, "hi", "", &out)

		require.NoError(t, err)
		assert.Empty(t, out.String())
	})

	t.Run("write failure is reported", func(t *testing.T) {
		t.Parallel()

		ctrl := textstream.NewController(mock.StaticSource(mock.Chunks(
			"data: {\"content\":\"Hi\"}\n\n",
			"data: {\"done\":true}\n\n",
		)))

		err := runPlain(context.Background(), ctrl, "hi", "", failingWriter{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "write output")
	})
}

func TestSaveTranscript(t *testing.T) {
	t.Parallel()

	t.Run("saves the last session", func(t *testing.T) {
		t.Parallel()

		ctrl := textstream.NewController(mock.StaticSource(mock.Chunks(
			"data: {\"content\":\"Hello\"}\n\ndata: {\"done\":true}\n\n",
		)), textstream.WithIDGenerator(func() string { return "session-1" }))
		require.NoError(t, ctrl.Start(context.Background(), "hi", "me"))
		path := filepath.Join(t.TempDir(), "transcript.json")

		require.NoError(t, saveTranscript(ctrl, path))

		got, err := tsjson.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "session-1", got.ID)
		assert.Equal(t, "hi", got.Prompt)
		assert.Equal(t, "me", got.Identity)
		assert.Equal(t, "Hello", got.Text)
		assert.True(t, got.Complete)
	})

	t.Run("no session is not an error", func(t *testing.T) {
		t.Parallel()

		ctrl := textstream.NewController(&mock.Source{})
		path := filepath.Join(t.TempDir(), "transcript.json")

		require.NoError(t, saveTranscript(ctrl, path))
		assert.NoFileExists(t, path)
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}
