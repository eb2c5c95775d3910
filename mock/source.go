// Package mock provides test doubles for textstream interfaces using
// function fields.
package mock

import (
	"context"
	"io"

	"github.com/fwojciec/textstream"
)

// Interface compliance checks.
var (
	_ textstream.Source = (*Source)(nil)
	_ io.ReadCloser     = (*Body)(nil)
)

// Source is a test double for textstream.Source.
// Set OpenFn before calling Open.
type Source struct {
	OpenFn func(ctx context.Context, req textstream.Request) (io.ReadCloser, error)
}

// Open delegates to OpenFn.
func (s *Source) Open(ctx context.Context, req textstream.Request) (io.ReadCloser, error) {
	return s.OpenFn(ctx, req)
}

// Body is a test double for a response body.
// Set ReadFn before calling Read; CloseFn is optional.
type Body struct {
	ReadFn  func(p []byte) (int, error)
	CloseFn func() error
}

// Read delegates to ReadFn.
func (b *Body) Read(p []byte) (int, error) {
	return b.ReadFn(p)
}

// Close delegates to CloseFn, or returns nil if CloseFn is not set.
func (b *Body) Close() error {
	if b.CloseFn == nil {
		return nil
	}
	return b.CloseFn()
}

// Chunks returns a Body whose successive reads return exactly the given
// chunks, then io.EOF. A chunk larger than the read buffer is returned over
// several reads.
func Chunks(chunks ...string) *Body {
	pending := append([]string(nil), chunks...)
	return &Body{
		ReadFn: func(p []byte) (int, error) {
			for len(pending) > 0 && pending[0] == "" {
				pending = pending[1:]
			}
			if len(pending) == 0 {
				return 0, io.EOF
			}
			n := copy(p, pending[0])
			pending[0] = pending[0][n:]
			return n, nil
		},
	}
}

// StaticSource returns a Source that answers every request with body.
func StaticSource(body io.ReadCloser) *Source {
	return &Source{
		OpenFn: func(context.Context, textstream.Request) (io.ReadCloser, error) {
			return body, nil
		},
	}
}
