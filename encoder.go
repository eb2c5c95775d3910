package textstream

import (
	"encoding/json"
	"fmt"
	"io"
)

// Encoder writes events to w in the wire framing read by Decoder.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one frame for evt.
func (e *Encoder) Encode(evt Event) error {
	var v any
	switch ev := evt.(type) {
	case EventContentDelta:
		v = struct {
			Content string `json:"content"`
		}{ev.Text}
	case EventDone:
		v = struct {
			Done bool `json:"done"`
		}{true}
	case EventError:
		v = struct {
			Error string `json:"error"`
		}{ev.Message}
	default:
		return fmt.Errorf("encode: unknown event %T", evt)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "%s%s\n\n", FramePrefix, data); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
