package textstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// doneSentinel is the bare payload some sources send instead of a JSON
// completion object.
const doneSentinel = "[DONE]"

// payload is the wire shape of a frame. Pointer fields distinguish an
// absent field from its zero value.
type payload struct {
	Content *string         `json:"content"`
	Done    bool            `json:"done"`
	Error   json.RawMessage `json:"error"`
}

// ParsePayload decodes one frame payload into events. Fields are applied
// in a fixed order: content, then completion, then error. An error
// supersedes completion in the same payload.
//
// A payload that cannot be decoded yields no events and an error wrapping
// ErrMalformedFrame.
func ParsePayload(data string) ([]Event, error) {
	if strings.TrimSpace(data) == doneSentinel {
		return []Event{EventDone{}}, nil
	}

	var p payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	var events []Event
	if p.Content != nil {
		events = append(events, EventContentDelta{Text: *p.Content})
	}
	if msg := errorMessage(p.Error); msg != "" {
		return append(events, EventError{Message: msg}), nil
	}
	if p.Done {
		events = append(events, EventDone{})
	}
	return events, nil
}

// errorMessage flattens the error field. A string is used as is, an object
// contributes its "message" field, and anything else its raw JSON text.
// Null, false and empty strings mean no error.
func errorMessage(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
