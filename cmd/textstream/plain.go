package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fwojciec/textstream"
)

// runPlain runs one session and writes the text to w as it streams. It
// returns the session's error, if any.
func runPlain(ctx context.Context, ctrl *textstream.Controller, prompt, identity string, w io.Writer) error {
	p := &printer{w: w}
	unsubscribe := ctrl.Subscribe(p.print)
	defer unsubscribe()

	err := ctrl.Start(ctx, prompt, identity)
	p.finish()
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case err != nil:
		return err
	}
	return p.err
}

// printer writes the part of each snapshot's text that has not been
// written yet.
type printer struct {
	w io.Writer

	mu      sync.Mutex
	written string
	err     error
}

func (p *printer) print(s textstream.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	if !strings.HasPrefix(s.Text, p.written) {
		// Cleared; a later session starts from scratch.
		p.written = ""
	}
	if delta := s.Text[len(p.written):]; delta != "" {
		if _, err := io.WriteString(p.w, delta); err != nil {
			p.err = fmt.Errorf("write output: %w", err)
			return
		}
		p.written = s.Text
	}
}

// finish ends the output with a newline.
func (p *printer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil && p.written != "" && !strings.HasSuffix(p.written, "\n") {
		_, p.err = io.WriteString(p.w, "\n")
	}
}
