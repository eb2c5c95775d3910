// Package httpsource implements [textstream.Source] for token sources that
// accept a JSON POST and answer with a framed text/event-stream body.
package httpsource

import "time"

const (
	contentType  = "application/json"
	acceptHeader = "text/event-stream"

	// maxErrorBody caps how much of a failed response is read for the
	// error message.
	maxErrorBody = 4 << 10
)

// Default circuit breaker settings.
const (
	defaultMaxFailures uint32        = 5
	defaultTimeout     time.Duration = 30 * time.Second
	defaultInterval    time.Duration = 60 * time.Second
)

// apiErrorResponse covers the error bodies token sources commonly return:
// {"error":"..."} and {"error":{"message":"..."}}.
type apiErrorResponse struct {
	Error   any    `json:"error"`
	Message string `json:"message"`
}
