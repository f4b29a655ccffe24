package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client defines a local wrapper on the standard http.Client tuned for
// the fleet fan-out: pooled keep-alive connections with a bounded idle
// lifetime and HTTP/2 attempted where the peer supports it.
type Client struct {
	client *http.Client
}

// ClientConfig defines initial configuration when creating a Client.
type ClientConfig struct {
	// Timeout bounds one GET attempt end to end, body read included.
	Timeout time.Duration
	// IdleConnTimeout bounds how long a pooled connection may sit idle
	// before being closed.
	IdleConnTimeout time.Duration
}

// NewClient creates a new HTTP client.
func NewClient(cfg ClientConfig) *Client {
	const defaultTimeout = time.Second

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 60 * time.Second
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxConnsPerHost:     10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     cfg.IdleConnTimeout,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

// Get issues a GET to url and returns the response body. A status of
// 400 or above is an error; the body is drained either way so the
// connection returns to the pool.
func (cl *Client) Get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := cl.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%s responded %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
