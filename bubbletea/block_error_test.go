package bubbletea_test

import (
	"testing"

	"github.com/fwojciec/textstream"
	bt "github.com/fwojciec/textstream/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestErrorBlock_View(t *testing.T) {
	t.Parallel()

	t.Run("renders error prefix and message", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(textstream.DefaultTheme())
		block := bt.NewErrorBlock("rate_limited", styles)
		view := block.View(80)
		assert.Contains(t, view, "Error")
		assert.Contains(t, view, "rate_limited")
	})
}
