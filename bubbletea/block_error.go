package bubbletea

import (
	"github.com/charmbracelet/lipgloss"
)

var _ Block = (*ErrorBlock)(nil)

// ErrorBlock renders the error a session ended with.
type ErrorBlock struct {
	message string
	styles  Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(message string, styles Styles) *ErrorBlock {
	return &ErrorBlock{message: message, styles: styles}
}

func (b *ErrorBlock) View(width int) string {
	content := b.styles.Error.Render("Error: " + b.message)
	return lipgloss.NewStyle().Width(width).Render(content)
}
