// Package fetch wraps the HTTP client used for the file transfers
// themselves. FFIs run tens of megabytes, so there is no overall request
// timeout; header latency is bounded and cancellation runs through the
// request context.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/astrodl/ffibulk/internal/domain"
)

type Client struct {
	httpClient *http.Client
}

// NewClient sizes the connection pool for the worker count so the pool
// does not thrash connections under full fan-out.
func NewClient(workers int) *Client {
	if workers <= 0 {
		workers = 1
	}

	transport := &http.Transport{
		MaxIdleConns:          workers * 2,
		MaxIdleConnsPerHost:   workers,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
	}
}

// Get streams the resource body. A transport error or non-2xx status maps
// to domain.ErrItemFetch, the one unrecoverable per-item condition.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrItemFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrItemFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrItemFetch, url, resp.Status)
	}

	return resp.Body, nil
}
