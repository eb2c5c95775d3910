package bubbletea

// Block is a renderable element of the screen. View takes a width so the
// root model controls layout and blocks are testable in isolation.
type Block interface {
	View(width int) string
}
