package bubbletea

import (
	"github.com/mattn/go-runewidth"
)

var _ Block = (*PromptBlock)(nil)

// PromptBlock renders the prompt of the current session on one line,
// truncated to the available width.
type PromptBlock struct {
	text   string
	styles Styles
}

// NewPromptBlock creates a PromptBlock.
func NewPromptBlock(text string, styles Styles) *PromptBlock {
	return &PromptBlock{text: text, styles: styles}
}

func (b *PromptBlock) View(width int) string {
	if b.text == "" {
		return b.styles.Muted.Render("no prompt yet")
	}
	marker := "> "
	text := b.text
	if width > len(marker) {
		text = runewidth.Truncate(text, width-len(marker), "…")
	}
	return b.styles.Prompt.Render(marker) + text
}
