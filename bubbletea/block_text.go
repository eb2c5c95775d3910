package bubbletea

import (
	"strings"

	"github.com/fwojciec/textstream"
	"github.com/fwojciec/textstream/goldmark"
)

var _ Block = (*TextBlock)(nil)

// TextBlock renders the streamed text of a session with markdown
// formatting. Escape sequences and control characters in the text are
// removed before rendering. Finalized paragraphs (ending at the last double newline
// outside a code fence) are rendered once per width and cached; only the
// trailing text is re-rendered on each snapshot.
type TextBlock struct {
	content strings.Builder
	theme   textstream.Theme

	finalizedRaw     string
	finalizedByWidth map[int]string
}

// NewTextBlock creates an empty TextBlock.
func NewTextBlock(theme textstream.Theme) *TextBlock {
	return &TextBlock{
		theme:            theme,
		finalizedByWidth: make(map[int]string),
	}
}

// SetText replaces the block's text with the text of a snapshot. Text
// that extends the current content is appended; anything else (a new
// session or a clear) starts over.
func (b *TextBlock) SetText(text string) {
	cur := b.content.String()
	if strings.HasPrefix(text, cur) {
		b.Append(text[len(cur):])
		return
	}
	b.Reset()
	b.Append(text)
}

// Append adds a delta to the text.
func (b *TextBlock) Append(text string) {
	if text == "" {
		return
	}
	b.content.WriteString(text)
	b.promoteFinalized()
}

// Reset empties the block.
func (b *TextBlock) Reset() {
	b.content.Reset()
	b.finalizedRaw = ""
	clear(b.finalizedByWidth)
}

// Text returns the raw accumulated text.
func (b *TextBlock) Text() string {
	return b.content.String()
}

func (b *TextBlock) View(width int) string {
	finalizedRendered := b.renderFinalized(width)
	trailing := b.trailingRaw()
	if hasUnclosedFence(trailing) {
		trailing += "\n```"
	}
	if trailing == "" {
		return finalizedRendered
	}
	trailingRendered := goldmark.Render(sanitize(trailing), width, b.theme)
	if strings.TrimSpace(trailingRendered) == "" {
		return finalizedRendered
	}
	if finalizedRendered == "" {
		return trailingRendered
	}
	// Independently rendered fragments are joined with a single paragraph
	// break to match a full-document render.
	return strings.TrimRight(finalizedRendered, "\n") + "\n\n" + strings.TrimLeft(trailingRendered, "\n")
}

// promoteFinalized moves the finalized prefix forward to the last "\n\n"
// that is not inside an open code fence.
func (b *TextBlock) promoteFinalized() {
	raw := b.content.String()
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := raw[:idx]
		if !hasUnclosedFence(candidate) {
			if candidate != b.finalizedRaw {
				b.finalizedRaw = candidate
				clear(b.finalizedByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *TextBlock) renderFinalized(width int) string {
	if width <= 0 || b.finalizedRaw == "" {
		return ""
	}
	if cached, ok := b.finalizedByWidth[width]; ok {
		return cached
	}
	rendered := goldmark.Render(sanitize(b.finalizedRaw), width, b.theme)
	b.finalizedByWidth[width] = rendered
	return rendered
}

func (b *TextBlock) trailingRaw() string {
	raw := b.content.String()
	if b.finalizedRaw == "" {
		return raw
	}
	return strings.TrimPrefix(raw, b.finalizedRaw+"\n\n")
}

// hasUnclosedFence reports whether s has an odd number of "```" markers.
// Triple backticks inside inline code spans are miscounted.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
