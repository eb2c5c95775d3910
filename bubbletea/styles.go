package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/textstream"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	Prompt  lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	ErrorBg lipgloss.Style

	// ProgressColor is the fill color of the progress bar, in the form
	// bubbles/progress expects. Empty means the bar's default gradient.
	ProgressColor string
}

// NewStyles creates Styles from a Theme.
func NewStyles(t textstream.Theme) Styles {
	s := Styles{
		Prompt:  lipgloss.NewStyle().Foreground(ansiColor(t.Prompt)).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Success: lipgloss.NewStyle().Foreground(ansiColor(t.Success)),
		Muted:   lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent:  lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
		ErrorBg: lipgloss.NewStyle().Background(ansiColor(t.Error)).PaddingLeft(1),
	}
	if t.Progress >= 0 {
		s.ProgressColor = strconv.Itoa(t.Progress)
	}
	return s
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
