package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/textstream"
)

// errUnexpectedEnd is reported when the body ends before message_stop.
var errUnexpectedEnd = errors.New("anthropic: unexpected end of stream")

// frameReader re-encodes an SSE response body as wire frames. A goroutine
// translates events into the write side of a pipe; Read serves the other
// side.
type frameReader struct {
	*io.PipeReader
	body io.Closer
}

func newFrameReader(ctx context.Context, body io.ReadCloser) *frameReader {
	pr, pw := io.Pipe()
	stop := context.AfterFunc(ctx, func() {
		pw.CloseWithError(ctx.Err())
	})
	go func() {
		defer stop()
		t := &translator{
			ctx:     ctx,
			scanner: bufio.NewScanner(body),
			enc:     textstream.NewEncoder(pw),
		}
		pw.CloseWithError(t.run())
	}()
	return &frameReader{PipeReader: pr, body: body}
}

// Close closes the response body, which ends the translating goroutine.
func (r *frameReader) Close() error {
	r.PipeReader.Close()
	return r.body.Close()
}

// translator drives one SSE event at a time into the encoder.
type translator struct {
	ctx     context.Context
	scanner *bufio.Scanner
	enc     *textstream.Encoder
}

// run translates events until the stream ends. A nil return closes the
// pipe cleanly after the final frame.
func (t *translator) run() error {
	for {
		eventType, data, err := t.readSSEEvent()
		if err == io.EOF {
			return t.enc.Encode(textstream.EventError{Message: errUnexpectedEnd.Error()})
		}
		if err != nil {
			if t.ctx.Err() != nil {
				return t.ctx.Err()
			}
			return err
		}

		evt, err := processEvent(eventType, data)
		if err != nil {
			return t.enc.Encode(textstream.EventError{Message: err.Error()})
		}
		if evt == nil {
			// Non-text event (ping, message_start, etc.) - keep reading.
			continue
		}
		if err := t.enc.Encode(evt); err != nil {
			return err
		}
		if _, ok := evt.(textstream.EventContentDelta); !ok {
			return nil
		}
	}
}

// readSSEEvent reads lines until a complete SSE event is assembled.
// Returns the event type and the data payload.
func (t *translator) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for t.scanner.Scan() {
		line := t.scanner.Text()

		if line == "" {
			// Empty line signals end of event.
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimPrefix(line, "data: "))
		}
		// Ignore comments (lines starting with ':') and unknown fields.
	}

	if err := t.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: %w", err)
	}

	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent maps an SSE event to a textstream event. It returns nil for
// events that carry no text and do not end the stream.
func processEvent(eventType, data string) (textstream.Event, error) {
	switch eventType {
	case "content_block_delta":
		return handleContentBlockDelta(data)
	case "message_stop":
		return textstream.EventDone{}, nil
	case "error":
		return handleError(data)
	default:
		// ping, message_start, content_block_start/stop, message_delta and
		// unknown event types.
		return nil, nil
	}
}

func handleContentBlockDelta(data string) (textstream.Event, error) {
	var evt sseContentBlockDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return nil, fmt.Errorf("anthropic: failed to parse content_block_delta: %w", err)
	}
	if evt.Delta.Type != "text_delta" || evt.Delta.Text == "" {
		return nil, nil
	}
	return textstream.EventContentDelta{Text: evt.Delta.Text}, nil
}

func handleError(data string) (textstream.Event, error) {
	var evt sseError
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return nil, fmt.Errorf("anthropic: failed to parse error event: %w", err)
	}
	return textstream.EventError{
		Message: fmt.Sprintf("anthropic: %s: %s", evt.Error.Type, evt.Error.Message),
	}, nil
}
