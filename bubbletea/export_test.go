package bubbletea

import "github.com/fwojciec/textstream"

// Notify exports notify for testing.
func Notify(ch chan struct{}) func(textstream.State) {
	return notify(ch)
}

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// HasUnclosedFence exports hasUnclosedFence for testing.
func HasUnclosedFence(s string) bool {
	return hasUnclosedFence(s)
}

// Sanitize exports sanitize for testing.
func Sanitize(s string) string {
	return sanitize(s)
}
