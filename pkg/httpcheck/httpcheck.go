// Package httpcheck issues bounded HTTP GET probes.
package httpcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"autodev/pkg/agent"
)

// DefaultTimeout bounds every probe.
const DefaultTimeout = 5 * time.Second

// maxDrain caps how much of a response body is read before closing.
const maxDrain = 64 << 10

// Checker performs GET requests and reports the status code.
type Checker struct {
	client  *http.Client
	timeout time.Duration
}

// New returns a Checker. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Timeout returns the per-request timeout.
func (c *Checker) Timeout() time.Duration {
	return c.timeout
}

// Status performs GET url and returns the response status code. Network
// failures, timeouts and malformed URLs return agent.ErrTransport.
func (c *Checker) Status(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("%w: GET %s: %w", agent.ErrTransport, url, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: GET %s: %w", agent.ErrTransport, url, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	return resp.StatusCode, nil
}
