package bubbletea_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/fwojciec/textstream"
	bt "github.com/fwojciec/textstream/bubbletea"
	"github.com/fwojciec/textstream/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{}
	m := bt.New(ctrl, "tester", textstream.DefaultTheme())

	assert.False(t, m.Running())
	assert.NoError(t, m.Err())
	assert.Equal(t, "Initializing...", m.View())
	assert.Equal(t, 1, ctrl.subscribers())
}

func TestNew_RendersCurrentState(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{
		StateFn: func() textstream.State {
			return textstream.State{Text: "already here", Complete: true}
		},
	}
	m := initModel(t, ctrl)

	assert.Contains(t, m.View(), "already here")
	assert.Contains(t, m.View(), "complete")
}

func TestModel_Update(t *testing.T) {
	t.Parallel()

	t.Run("window size initializes viewport", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)

		assert.Equal(t, 80, m.Viewport.Width)
		// 24 - header(1) - status(1) - input(1) - spacing(1) = 20
		assert.Equal(t, 20, m.Viewport.Height)
		assert.NotEmpty(t, m.View())
	})

	t.Run("window size resize updates viewport dimensions", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

		assert.Equal(t, 120, m.Viewport.Width)
		assert.Equal(t, 36, m.Viewport.Height)
	})

	t.Run("window size resize re-renders viewport content", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModelWithSize(t, ctrl, 30, 20)
		longLine := "word1 word2 word3 word4 word5 word6 word7 word8"
		m = publish(t, m, ctrl, textstream.State{Streaming: true, Text: longLine})

		m = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 20})

		found := false
		for _, line := range strings.Split(m.Viewport.View(), "\n") {
			if strings.Contains(line, "word1") && strings.Contains(line, "word8") {
				found = true
				break
			}
		}
		assert.True(t, found, "expected word1 and word8 on the same line after resize, got:\n%s", m.Viewport.View())
	})

	t.Run("state message renders streamed text", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m = publish(t, m, ctrl, textstream.State{Streaming: true, Text: "Hel"})
		m = publish(t, m, ctrl, textstream.State{Streaming: true, Text: "Hello"})

		assert.Contains(t, m.View(), "Hello")
		assert.Equal(t, "Hello", m.State().Text)
	})

	t.Run("state message returns a command for the next snapshot", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		ctrl.setState(textstream.State{Streaming: true})
		_, cmd := m.Update(bt.StateChangedMsg{})
		assert.NotNil(t, cmd)
	})

	t.Run("long lines are word-wrapped to viewport width", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModelWithSize(t, ctrl, 30, 20)
		longLine := "short words that keep going and going beyond the viewport width easily"
		m = publish(t, m, ctrl, textstream.State{Streaming: true, Text: longLine})

		assert.Contains(t, m.View(), "easily")
	})

	t.Run("errored state shows error block and status", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m = publish(t, m, ctrl, textstream.State{Text: "Hi", Error: "rate_limited"})

		content := bt.RenderContent(m)
		assert.Contains(t, content, "Hi")
		assert.Contains(t, content, "Error: rate_limited")
		assert.Contains(t, m.View(), "errored")
	})

	t.Run("complete state shows grapheme count", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m = publish(t, m, ctrl, textstream.State{Text: "café", Complete: true})

		assert.Contains(t, m.View(), "complete")
		assert.Contains(t, m.View(), "4 chars")
	})

	t.Run("streaming state shows progress from controller", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{ProgressFn: func() float64 { return 50 }}
		m := initModel(t, ctrl)
		m = publish(t, m, ctrl, textstream.State{Streaming: true, Text: "abc"})

		view := m.View()
		assert.Contains(t, view, "streaming")
		assert.Contains(t, view, "3 chars")
		assert.Contains(t, view, "Esc to stop")
	})

	t.Run("stopped state keeps text", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m = publish(t, m, ctrl, textstream.State{Text: "partial"})

		assert.Contains(t, m.View(), "partial")
		assert.Contains(t, m.View(), "stopped")
	})

	t.Run("ctrl+c when idle quits", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

		require.NotNil(t, cmd)
		_, isQuit := cmd().(tea.QuitMsg)
		assert.True(t, isQuit)
	})

	t.Run("ctrl+c while streaming stops instead of quitting", func(t *testing.T) {
		t.Parallel()

		var stopped atomic.Int32
		ctrl := &fakeController{StopFn: func() { stopped.Add(1) }}
		m := initModel(t, ctrl)
		m = publish(t, m, ctrl, textstream.State{Streaming: true})

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

		assert.Nil(t, cmd)
		assert.Equal(t, int32(1), stopped.Load())
	})

	t.Run("esc stops the session", func(t *testing.T) {
		t.Parallel()

		var stopped atomic.Int32
		ctrl := &fakeController{StopFn: func() { stopped.Add(1) }}
		m := initModel(t, ctrl)

		updateModel(t, m, tea.KeyMsg{Type: tea.KeyEsc})

		assert.Equal(t, int32(1), stopped.Load())
	})

	t.Run("ctrl+l clears", func(t *testing.T) {
		t.Parallel()

		var cleared atomic.Bool
		ctrl := &fakeController{}
		ctrl.ClearFn = func() {
			cleared.Store(true)
			ctrl.setState(textstream.State{})
		}
		m := initModel(t, ctrl)
		m.Input.SetValue("old prompt")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		m = updateModel(t, m, bt.SessionDoneMsg{})
		m = publish(t, m, ctrl, textstream.State{Text: "old text", Complete: true})
		require.Contains(t, m.View(), "old prompt")

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})

		assert.True(t, cleared.Load())
		assert.NotContains(t, m.View(), "old text")
		assert.Contains(t, m.View(), "no prompt yet")
	})

	t.Run("enter with empty input does nothing", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		assert.False(t, updated.(bt.Model).Running())
		assert.Nil(t, cmd)
	})

	t.Run("enter starts a session with prompt and identity", func(t *testing.T) {
		t.Parallel()

		var gotPrompt, gotIdentity string
		ctrl := &fakeController{
			StartFn: func(_ context.Context, prompt, identity string) error {
				gotPrompt, gotIdentity = prompt, identity
				return nil
			},
		}
		m := initModel(t, ctrl)
		m.Input.SetValue("  write a haiku ")

		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m = updated.(bt.Model)

		assert.True(t, m.Running())
		assert.Empty(t, m.Input.Value())
		assert.Contains(t, m.View(), "write a haiku")
		require.NotNil(t, cmd)

		msg := cmd()
		assert.Equal(t, bt.SessionDoneMsg{}, msg)
		assert.Equal(t, "write a haiku", gotPrompt)
		assert.Equal(t, "tester", gotIdentity)
	})

	t.Run("enter is ignored while streaming", func(t *testing.T) {
		t.Parallel()

		var starts atomic.Int32
		ctrl := &fakeController{
			StartFn: func(context.Context, string, string) error {
				starts.Add(1)
				return nil
			},
		}
		m := initModel(t, ctrl)
		m = publish(t, m, ctrl, textstream.State{Streaming: true})
		m.Input.SetValue("again")

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		assert.Nil(t, cmd)
		assert.Equal(t, int32(0), starts.Load())
	})

	t.Run("session done renders the controller's final state", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m.Input.SetValue("go")
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		require.True(t, m.Running())
		ctrl.setState(textstream.State{Text: "final words", Complete: true})

		m = updateModel(t, m, bt.SessionDoneMsg{})

		assert.False(t, m.Running())
		assert.NoError(t, m.Err())
		assert.Contains(t, m.View(), "final words")
		assert.Contains(t, m.View(), "complete")
	})

	t.Run("session done with already active error is reported", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m = updateModel(t, m, bt.SessionDoneMsg{Err: textstream.ErrSessionAlreadyActive})

		require.ErrorIs(t, m.Err(), textstream.ErrSessionAlreadyActive)
		assert.Contains(t, m.View(), "Error:")
	})

	t.Run("session done with source error relies on state", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m = updateModel(t, m, bt.SessionDoneMsg{Err: &textstream.SourceError{Message: "boom"}})

		assert.NoError(t, m.Err())
	})

	t.Run("viewport scrolls while idle", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModelWithSize(t, ctrl, 80, 10)
		var text strings.Builder
		for i := range 30 {
			fmt.Fprintf(&text, "line-%d\n\n", i)
		}
		m = publish(t, m, ctrl, textstream.State{Text: text.String(), Complete: true})
		assert.Contains(t, m.Viewport.View(), "line-29")

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyPgUp})

		assert.NotContains(t, m.Viewport.View(), "line-29")
	})
}

func TestModel_Teatest(t *testing.T) {
	t.Parallel()

	t.Run("full session with snapshot delivery", func(t *testing.T) {
		t.Parallel()

		var gotReq atomic.Value
		src := &mock.Source{
			OpenFn: func(_ context.Context, req textstream.Request) (io.ReadCloser, error) {
				gotReq.Store(req)
				return mock.Chunks(
					"data: {\"content\":\"Hello\"}\n\n",
					"data: {\"content\":\" world\"}\n\n",
					"data: {\"done\":true}\n\n",
				), nil
			},
		}
		ctrl := textstream.NewController(src)
		m := bt.New(ctrl, "tester", textstream.DefaultTheme())

		tm := teatest.NewTestModel(t, m,
			teatest.WithInitialTermSize(80, 24),
		)

		tm.Type("hi")
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("Hello world")) &&
				bytes.Contains(out, []byte("complete"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final, ok := fm.(bt.Model)
		require.True(t, ok)
		assert.False(t, final.Running())
		assert.NoError(t, final.Err())
		assert.True(t, final.State().Complete)
		assert.Equal(t, "Hello world", final.State().Text)
		assert.Equal(t, textstream.Request{Message: "hi", Identity: "tester"}, gotReq.Load())
	})
}
