// Package gemini implements [textstream.Source] on top of the Google Gemini
// API.
//
// It wraps the google.golang.org/genai SDK's streaming iterator and
// re-encodes each chunk as a wire frame, so the Controller consumes Gemini
// output exactly like any other token source.
package gemini

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 8192
)
