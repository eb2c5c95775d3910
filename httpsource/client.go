package httpsource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/textstream"
	"github.com/sony/gobreaker/v2"
)

// Interface compliance check.
var _ textstream.Source = (*Client)(nil)

// Client opens streams by POSTing the request to a fixed endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	header     http.Header
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	logger     *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout bounds the whole
// stream, so streaming callers usually leave it zero.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Add(key, value) }
}

// WithLogger sets the logger for circuit breaker state changes.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// BreakerConfig configures the circuit breaker installed by WithBreaker.
// Zero fields use defaults.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before allowing a trial request.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

// WithBreaker makes Open fail fast while the token source keeps failing.
// A failed open is never retried; the breaker only short-circuits later
// attempts until a trial request succeeds.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		maxFailures := cfg.MaxFailures
		if maxFailures == 0 {
			maxFailures = defaultMaxFailures
		}
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		interval := cfg.Interval
		if interval == 0 {
			interval = defaultInterval
		}
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        "textstream:" + c.endpoint,
			MaxRequests: 1,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("circuit breaker state change",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
			IsSuccessful: func(err error) bool {
				// A caller cancelling its own stream says nothing about
				// the health of the source.
				return err == nil || errors.Is(err, context.Canceled)
			},
		})
	}
}

// New creates a [Client] for the given endpoint URL.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		header:     make(http.Header),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open sends req and returns the response body. A non-2xx status or a
// failed round trip is returned as a *textstream.TransportError.
func (c *Client) Open(ctx context.Context, req textstream.Request) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("httpsource: %w", err)
	}

	do := func() (*http.Response, error) {
		return c.do(ctx, body)
	}
	var resp *http.Response
	if c.breaker != nil {
		resp, err = c.breaker.Execute(do)
	} else {
		resp, err = do()
	}
	if err != nil {
		var te *textstream.TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &textstream.TransportError{Err: fmt.Errorf("httpsource: %w", err)}
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", acceptHeader)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}
	return resp, nil
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &textstream.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("httpsource: failed to read body: %w", err),
		}
	}
	return &textstream.TransportError{
		StatusCode: resp.StatusCode,
		Err:        errors.New(errorMessage(resp.Status, body)),
	}
}

// errorMessage picks the most specific message available in an error body.
func errorMessage(status string, body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		switch e := apiErr.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return status
}
