package textstream

import (
	"bytes"
	"strings"
)

// FramePrefix starts every line that carries a JSON payload.
const FramePrefix = "data: "

// DefaultMaxFrameSize bounds the length of a single line.
const DefaultMaxFrameSize = 1 << 20

// Decoder turns arbitrarily split byte chunks into frame payloads. It keeps
// at most one incomplete line between calls.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	// MaxFrameSize limits the length of a single line in bytes, not
	// counting its line ending. It applies whether the line arrives in
	// one chunk or many. Zero means DefaultMaxFrameSize.
	MaxFrameSize int

	buf []byte
}

// Decode appends chunk to the internal buffer and returns the payloads of
// all complete frame lines, in stream order. The trailing partial line is
// retained for the next call.
//
// A line longer than MaxFrameSize makes Decode return ErrFrameTooLarge
// along with the payloads of the lines before it. The buffer is discarded.
func (d *Decoder) Decode(chunk []byte) ([]string, error) {
	d.buf = append(d.buf, chunk...)

	var payloads []string
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		if d.tooLong(d.buf[:idx]) {
			d.buf = nil
			return payloads, ErrFrameTooLarge
		}
		if p, ok := framePayload(d.buf[:idx]); ok {
			payloads = append(payloads, p)
		}
		d.buf = d.buf[idx+1:]
	}

	// Compact so the backing array never grows past one line.
	if len(d.buf) == 0 {
		d.buf = nil
	} else if cap(d.buf) > 2*len(d.buf) {
		d.buf = append([]byte(nil), d.buf...)
	}

	if d.tooLong(d.buf) {
		d.buf = nil
		return payloads, ErrFrameTooLarge
	}
	return payloads, nil
}

// tooLong reports whether line, complete or partial, exceeds the limit.
// A trailing '\r' may be the first half of a CRLF and is not counted.
func (d *Decoder) tooLong(line []byte) bool {
	return len(bytes.TrimSuffix(line, []byte{'\r'})) > d.maxFrameSize()
}

// Flush returns the payload of a trailing line that was never terminated,
// if it is a frame, and empties the buffer. Call it once at end of stream.
func (d *Decoder) Flush() []string {
	line := d.buf
	d.buf = nil
	if p, ok := framePayload(line); ok {
		return []string{p}
	}
	return nil
}

// Reset discards any buffered partial line.
func (d *Decoder) Reset() {
	d.buf = nil
}

// Buffered returns the number of bytes held for the next chunk.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func (d *Decoder) maxFrameSize() int {
	if d.MaxFrameSize > 0 {
		return d.MaxFrameSize
	}
	return DefaultMaxFrameSize
}

// framePayload extracts the payload of one line. Blank lines and lines
// without the frame prefix are not frames.
func framePayload(line []byte) (string, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(bytes.TrimSpace(line)) == 0 {
		return "", false
	}
	if !bytes.HasPrefix(line, []byte(FramePrefix)) {
		return "", false
	}
	return strings.ToValidUTF8(string(line[len(FramePrefix):]), "�"), true
}
