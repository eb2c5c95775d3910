// Package bubbletea provides a Bubble Tea TUI that drives a textstream
// Controller and renders its snapshots.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/textstream"
)

// Controller is the part of *textstream.Controller the TUI uses.
type Controller interface {
	Start(ctx context.Context, prompt, identity string) error
	Stop()
	Clear()
	State() textstream.State
	Progress() float64
	Subscribe(fn func(textstream.State)) (unsubscribe func())
}

// Run creates and runs the Bubble Tea TUI program. It blocks until the
// program exits. When ctx is cancelled the program quits. Any session
// still streaming on exit is stopped.
func Run(ctx context.Context, m Model) error {
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// StateChangedMsg tells the model that the controller published a new
// snapshot. The model renders Controller.State, which is always at least
// as new as the snapshot that triggered the message.
type StateChangedMsg struct{}

// SessionDoneMsg signals that a Start call returned.
type SessionDoneMsg struct {
	Err error
}

// notify returns a subscriber that signals ch without ever blocking the
// controller. Signals coalesce while the model is busy.
func notify(ch chan struct{}) func(textstream.State) {
	return func(textstream.State) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// waitForChange waits for the next signal.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return StateChangedMsg{}
	}
}

// startSession runs one session and reports when Start returns.
func startSession(ctrl Controller, prompt, identity string) tea.Cmd {
	return func() tea.Msg {
		return SessionDoneMsg{Err: ctrl.Start(context.Background(), prompt, identity)}
	}
}
