package bubbletea

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/textstream"
	"github.com/rivo/uniseg"
)

var _ tea.Model = Model{}

const progressWidth = 20

// Model is the Bubble Tea model for the textstream TUI.
type Model struct {
	// Input is the prompt input. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	ctrl        Controller
	identity    string
	styles      Styles
	changes     chan struct{}
	unsubscribe func()

	spinner  spinner.Model
	bar      progress.Model
	prompt   *PromptBlock
	text     *TextBlock
	state    textstream.State
	progress float64

	running bool
	err     error
	ready   bool
}

// New creates a TUI Model driving ctrl. Sessions are started with
// identity. The model subscribes to ctrl immediately; call Close when the
// model is no longer used.
func New(ctrl Controller, identity string, theme textstream.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a prompt..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Accent

	barOpts := []progress.Option{progress.WithoutPercentage(), progress.WithWidth(progressWidth)}
	if styles.ProgressColor != "" {
		barOpts = append(barOpts, progress.WithSolidFill(styles.ProgressColor))
	}

	changes := make(chan struct{}, 1)
	m := Model{
		Input:    ti,
		ctrl:     ctrl,
		identity: identity,
		styles:   styles,
		changes:  changes,
		spinner:  sp,
		bar:      progress.New(barOpts...),
		prompt:   NewPromptBlock("", styles),
		text:     NewTextBlock(theme),
	}
	m.unsubscribe = ctrl.Subscribe(notify(changes))
	m = m.refresh()
	return m
}

// Close unsubscribes the model and stops any session it left streaming.
func (m Model) Close() {
	m.unsubscribe()
	m.ctrl.Stop()
}

// Running returns whether a Start call issued by the model is in flight.
func (m Model) Running() bool { return m.running }

// Err returns the last error that was not reported through the state.
func (m Model) Err() error { return m.err }

// State returns the last snapshot the model has rendered.
func (m Model) State() textstream.State { return m.state }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForChange(m.changes))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateChangedMsg:
		m = m.refresh()
		return m, waitForChange(m.changes)

	case SessionDoneMsg:
		m.running = false
		if errors.Is(msg.Err, textstream.ErrSessionAlreadyActive) {
			m.err = msg.Err
		}
		m = m.refresh()
		return m, m.Input.Focus()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.prompt.View(m.Viewport.Width))
	b.WriteString("\n")
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	headerHeight := 1
	statusHeight := 1
	inputHeight := 1
	spacing := 1
	vpHeight := msg.Height - headerHeight - statusHeight - inputHeight - spacing
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running || m.state.Streaming {
			m.ctrl.Stop()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEsc:
		m.ctrl.Stop()
		return m, nil

	case tea.KeyCtrlL:
		m.ctrl.Clear()
		m.err = nil
		m.prompt = NewPromptBlock("", m.styles)
		m = m.refresh()
		return m, nil

	case tea.KeyEnter:
		if m.running || m.state.Streaming {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)
	}

	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		// Character keys go to the input only; j/k would otherwise scroll.
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil
	m.running = true
	m.prompt = NewPromptBlock(text, m.styles)
	return m, startSession(m.ctrl, text, m.identity)
}

// refresh renders the controller's current state.
func (m Model) refresh() Model {
	m.state = m.ctrl.State()
	m.progress = m.ctrl.Progress()
	m.text.SetText(m.state.Text)
	if m.ready {
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
	}
	return m
}

func (m Model) renderContent() string {
	width := m.Viewport.Width
	var b strings.Builder
	b.WriteString(m.text.View(width))
	if m.state.Error != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(NewErrorBlock(m.state.Error, m.styles).View(width))
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	chars := fmt.Sprintf("%d chars", uniseg.GraphemeClusterCount(m.state.Text))
	if m.running || m.state.Streaming {
		return m.spinner.View() + " " +
			m.styles.Muted.Render("streaming") + " " +
			m.bar.ViewAs(m.progress/100) + " " +
			m.styles.Muted.Render(chars+" · Esc to stop")
	}
	hint := m.styles.Muted.Render("Enter to send, Ctrl+L to clear, Ctrl+C to quit")
	switch m.state.Phase() {
	case textstream.PhaseComplete:
		return m.styles.Success.Render("✓ complete") + " " + m.styles.Muted.Render(chars) + " " + hint
	case textstream.PhaseErrored:
		return m.styles.Error.Render("✗ errored") + " " + m.styles.Muted.Render(chars) + " " + hint
	}
	if m.state.Text != "" {
		return m.styles.Muted.Render("stopped · "+chars) + " " + hint
	}
	return hint
}
