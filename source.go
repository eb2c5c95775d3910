package textstream

import (
	"context"
	"io"
)

// Source opens a framed byte stream for a prompt. Implementations must
// honour ctx: cancelling it has to unblock a pending Read on the returned
// body promptly.
type Source interface {
	Open(ctx context.Context, req Request) (io.ReadCloser, error)
}

// Request is what a Source receives for one session.
type Request struct {
	Message  string `json:"message"`
	Identity string `json:"identity"`
}
