package textstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultReadSize is the buffer size used for each read from the body.
const DefaultReadSize = 4096

var errNoBody = errors.New("source returned no body")

// Controller runs streaming sessions against a Source: it opens the body,
// pumps bytes through a Decoder and ParsePayload into a Machine, and
// publishes every resulting snapshot to its subscribers.
//
// At most one session streams at a time. Stop and Clear may be called from
// any goroutine while Start is pumping.
type Controller struct {
	src          Source
	logger       *slog.Logger
	readSize     int
	maxFrameSize int
	now          func() time.Time
	newID        func() string

	registry Registry

	mu         sync.Mutex
	machine    Machine
	progress   progress
	generation uint64
	cancel     context.CancelFunc
	session    sessionInfo
	transcript *Transcript
}

type sessionInfo struct {
	prompt    string
	identity  string
	startedAt time.Time
}

// Option configures a [Controller].
type Option func(*Controller)

// WithLogger sets the logger used for diagnostics such as dropped frames.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithReadSize sets the size of each read from the response body.
func WithReadSize(n int) Option {
	return func(c *Controller) { c.readSize = n }
}

// WithMaxFrameSize limits the size of a single frame line.
func WithMaxFrameSize(n int) Option {
	return func(c *Controller) { c.maxFrameSize = n }
}

// WithExpectedLength gives the progress estimate a target text length.
func WithExpectedLength(n int) Option {
	return func(c *Controller) { c.progress.expected = n }
}

// WithClock sets the time source used for transcripts.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator sets the function that names new sessions.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// NewController creates a Controller reading from src.
func NewController(src Source, opts ...Option) *Controller {
	c := &Controller{
		src:      src,
		logger:   slog.New(slog.DiscardHandler),
		readSize: DefaultReadSize,
		now:      time.Now,
		newID:    func() string { return ulid.Make().String() },
	}
	for _, o := range opts {
		o(c)
	}
	if c.readSize <= 0 {
		c.readSize = DefaultReadSize
	}
	c.registry.Logger = c.logger
	return c
}

// Subscribe registers fn for every future snapshot. See [Registry.Subscribe].
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.registry.Subscribe(fn)
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State()
}

// Progress returns the session's progress estimate in [0, 100].
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.value
}

// Transcript returns a record of the most recent session that completed,
// failed or was stopped.
func (c *Controller) Transcript() (Transcript, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transcript == nil {
		return Transcript{}, ErrNoTranscript
	}
	return *c.transcript, nil
}

// Start runs one session for prompt and blocks until it ends.
//
// It returns ErrSessionAlreadyActive without touching the running session
// if one is streaming. Otherwise it returns nil when the session completes
// or is ended by Stop or Clear, a *SourceError or *TransportError when it
// fails, and ctx.Err() when ctx is cancelled (which ends the session like
// Stop).
func (c *Controller) Start(ctx context.Context, prompt, identity string) error {
	c.mu.Lock()
	snap, ok := c.machine.Start(c.newID())
	if !ok {
		c.mu.Unlock()
		return ErrSessionAlreadyActive
	}
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.generation++
	gen := c.generation
	c.cancel = cancel
	c.session = sessionInfo{prompt: prompt, identity: identity, startedAt: c.now()}
	c.progress.reset()
	c.publishLocked(snap)
	c.mu.Unlock()
	c.registry.Flush()

	body, err := c.src.Open(sctx, Request{Message: prompt, Identity: identity})
	if err == nil && body == nil {
		err = errNoBody
	}
	if err != nil {
		return c.finishWithError(ctx, gen, err)
	}
	defer body.Close()

	dec := &Decoder{MaxFrameSize: c.maxFrameSize}
	buf := make([]byte, c.readSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if ended, err := c.ingest(gen, dec, buf[:n]); ended {
				return err
			}
		}
		switch {
		case rerr == io.EOF:
			return c.finishEOF(gen, dec)
		case rerr != nil:
			return c.finishWithError(ctx, gen, rerr)
		}
	}
}

// Stop ends the streaming session, if any, without marking it complete or
// failed. The in-flight read is cancelled and any bytes it returns are
// discarded.
//
// State reflects the stop when Stop returns. If another goroutine is
// delivering snapshots at that moment, the stop snapshot is queued behind
// them and delivered by that goroutine, so subscribers may see it after
// Stop returns.
func (c *Controller) Stop() {
	c.mu.Lock()
	snap, ok := c.machine.Stop()
	if !ok {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	c.recordLocked(snap)
	c.publishLocked(snap)
	c.mu.Unlock()
	c.registry.Flush()
}

// Clear resets the state to idle from any phase. It does not cancel the
// request of a running session, but that session's remaining bytes are
// ignored. Call Stop first to cancel it. Delivery of the cleared snapshot
// follows the same rule as for Stop.
func (c *Controller) Clear() {
	c.mu.Lock()
	snap := c.machine.Clear()
	c.progress.reset()
	c.publishLocked(snap)
	c.mu.Unlock()
	c.registry.Flush()
}

// ingest applies one chunk. It reports whether the session has ended,
// along with the error Start should return.
func (c *Controller) ingest(gen uint64, dec *Decoder, chunk []byte) (bool, error) {
	c.mu.Lock()
	defer c.registry.Flush()
	defer c.mu.Unlock()

	if !c.currentLocked(gen) {
		return true, nil
	}
	payloads, decErr := dec.Decode(chunk)
	if ended, err := c.applyLocked(payloads); ended {
		return true, err
	}
	if decErr != nil {
		return true, c.failLocked(&TransportError{Err: decErr})
	}
	return false, nil
}

// finishEOF handles the end of the body. A stream that ends without a
// completion frame is treated as complete.
func (c *Controller) finishEOF(gen uint64, dec *Decoder) error {
	c.mu.Lock()
	defer c.registry.Flush()
	defer c.mu.Unlock()

	if !c.currentLocked(gen) {
		return nil
	}
	if ended, err := c.applyLocked(dec.Flush()); ended {
		return err
	}
	snap, _ := c.machine.Apply(EventDone{})
	c.recordLocked(snap)
	c.publishLocked(snap)
	return nil
}

// finishWithError handles a failed Open or Read.
func (c *Controller) finishWithError(ctx context.Context, gen uint64, err error) error {
	c.mu.Lock()
	defer c.registry.Flush()
	defer c.mu.Unlock()

	if !c.currentLocked(gen) {
		// Stopped or cleared; the error is the cancellation itself.
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		snap, _ := c.machine.Stop()
		c.cancel = nil
		c.recordLocked(snap)
		c.publishLocked(snap)
		return ctxErr
	}
	var te *TransportError
	if !errors.As(err, &te) {
		te = &TransportError{Err: err}
	}
	return c.failLocked(te)
}

// applyLocked parses payloads and applies their events in order until the
// session reaches a terminal phase.
func (c *Controller) applyLocked(payloads []string) (bool, error) {
	for _, p := range payloads {
		events, err := ParsePayload(p)
		if err != nil {
			c.logger.Warn("dropping malformed frame",
				"session", c.machine.State().SessionID,
				"payload", p,
				"error", err,
			)
			continue
		}
		for _, evt := range events {
			snap, ok := c.machine.Apply(evt)
			if !ok {
				continue
			}
			c.publishLocked(snap)
			if snap.Streaming {
				continue
			}
			c.recordLocked(snap)
			if e, isErr := evt.(EventError); isErr {
				return true, &SourceError{Message: e.Message}
			}
			return true, nil
		}
	}
	return false, nil
}

func (c *Controller) failLocked(err error) error {
	snap, _ := c.machine.Fail(err.Error())
	c.recordLocked(snap)
	c.publishLocked(snap)
	return err
}

// currentLocked reports whether gen is still the live, streaming session.
func (c *Controller) currentLocked(gen uint64) bool {
	return gen == c.generation && c.machine.State().Streaming
}

func (c *Controller) publishLocked(s State) {
	c.progress.observe(s)
	c.registry.Enqueue(s)
}

func (c *Controller) recordLocked(s State) {
	c.transcript = &Transcript{
		ID:        s.SessionID,
		Prompt:    c.session.prompt,
		Identity:  c.session.identity,
		Text:      s.Text,
		Complete:  s.Complete,
		Error:     s.Error,
		StartedAt: c.session.startedAt,
		EndedAt:   c.now(),
	}
}
