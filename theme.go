package textstream

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme. A negative index means no color.
type Theme struct {
	Prompt   int // Echoed prompt accent
	Error    int // Error messages
	Success  int // Completion indicator
	Muted    int // Status bar, placeholders
	Accent   int // Headings, links, spinner
	Progress int // Progress bar fill
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Prompt:   4,
		Error:    1,
		Success:  2,
		Muted:    8,
		Accent:   5,
		Progress: 6,
	}
}
