package transport

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// Retrying is an http.RoundTripper that retries network failures and 5xx
// responses with backoff. 4xx responses are returned as-is; deciding what a
// client error means belongs to the API clients, not the transport.
type Retrying struct {
	next     http.RoundTripper
	attempts uint
	delay    time.Duration
	log      *slog.Logger
}

// New wraps next with retry behaviour. A nil next uses http.DefaultTransport.
func New(next http.RoundTripper, attempts uint, delay time.Duration) *Retrying {
	if next == nil {
		next = http.DefaultTransport
	}
	if attempts == 0 {
		attempts = 3
	}
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	return &Retrying{
		next:     next,
		attempts: attempts,
		delay:    delay,
		log:      slog.Default().With("component", "transport"),
	}
}

// NewClient returns an *http.Client with retrying transport and a per-request
// timeout suitable for the metadata providers.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: New(nil, 3, 250*time.Millisecond),
	}
}

type serverError struct {
	status int
	resp   *http.Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: %d", e.status)
}

// RoundTrip implements http.RoundTripper.
func (t *Retrying) RoundTrip(req *http.Request) (*http.Response, error) {
	// Only idempotent requests are safe to replay. Bodies are not rewindable
	// here, so anything carrying one goes through once.
	if req.Body != nil || (req.Method != http.MethodGet && req.Method != http.MethodHead) {
		return t.next.RoundTrip(req)
	}

	resp, err := retry.DoWithData(
		func() (*http.Response, error) {
			resp, err := t.next.RoundTrip(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 500 {
				// Drain so the connection can be reused before the retry.
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil, &serverError{status: resp.StatusCode, resp: resp}
			}
			return resp, nil
		},
		retry.Attempts(t.attempts),
		retry.Delay(t.delay),
		retry.Context(req.Context()),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			t.log.Debug("retrying request", "url", req.URL.String(), "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if se, ok := err.(*serverError); ok {
			// Out of attempts on a 5xx: synthesize an empty-bodied response so
			// callers observe the status instead of a transport error.
			se.resp.Body = io.NopCloser(http.NoBody)
			return se.resp, nil
		}
		return nil, err
	}
	return resp, nil
}
