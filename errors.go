package textstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrSessionAlreadyActive indicates Start was called while a session
	// is still streaming.
	ErrSessionAlreadyActive = errors.New("session already active")

	// ErrMalformedFrame indicates a frame payload could not be decoded.
	// It never reaches the session state.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrFrameTooLarge indicates a single line exceeded the decoder's
	// maximum frame size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrNoTranscript indicates no session has finished yet.
	ErrNoTranscript = errors.New("no finished session")
)

// TransportError is a failure to open or read the response body, including
// a non-success status from the token source.
type TransportError struct {
	StatusCode int // 0 when no response was received.
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SourceError is a failure reported by the token source in an error frame.
type SourceError struct {
	Message string
}

func (e *SourceError) Error() string {
	return e.Message
}
