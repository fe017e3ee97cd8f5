// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain implements the HTTP collaborators of the wallet: an esplora
// client for UTXOs, fee rates and broadcasting, and an ord client reporting
// inscription outputs.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/btcsuite/ordtx/wallet"
)

const (
	// defaultTimeout bounds a single HTTP request.
	defaultTimeout = 30 * time.Second

	// maxResponseBody caps how much of a response is read.
	maxResponseBody = 10 << 20

	// maxErrorBody caps how much of an error response is quoted.
	maxErrorBody = 512
)

// ErrNoURL is returned when a client is configured without a base URL.
var ErrNoURL = errors.New("no base url configured")

// ClientConfig holds the settings shared by the HTTP collaborators.
type ClientConfig struct {
	// URL is the base URL of the API, for example
	// https://mempool.space/api.
	URL string

	// HTTPClient performs the requests. Defaults to a client with a 30
	// second timeout.
	HTTPClient *http.Client

	// RateLimiter throttles requests. Optional.
	RateLimiter *RateLimiter

	// Retry bounds retries of transient failures. The zero value makes a
	// single attempt.
	Retry RetryConfig
}

// client performs rate limited, retried JSON requests against one API.
type client struct {
	base    *url.URL
	http    *http.Client
	limiter *RateLimiter
	retry   RetryConfig
}

// newClient validates cfg and creates a client.
func newClient(cfg ClientConfig) (*client, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}

	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", base.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &client{
		base:    base,
		http:    httpClient,
		limiter: cfg.RateLimiter,
		retry:   cfg.Retry,
	}, nil
}

// endpoint returns the absolute URL of path below the base URL.
func (c *client) endpoint(path ...string) string {
	escaped := make([]string, 0, len(path))
	for _, p := range path {
		escaped = append(escaped, url.PathEscape(p))
	}

	return c.base.String() + "/" + strings.Join(escaped, "/")
}

// request describes one HTTP call.
type request struct {
	method      string
	url         string
	accept      string
	contentType string
	body        []byte
}

// do sends req, retrying transient failures, and returns the body of a
// successful response.
func (c *client) do(ctx context.Context, req request) ([]byte, error) {
	return Retry(ctx, c.retry, func() ([]byte, error) {
		return c.once(ctx, req)
	})
}

// once performs a single attempt of req.
func (c *client) once(ctx context.Context, req request) ([]byte, error) {
	if c.limiter != nil {
		err := c.limiter.Wait(ctx, c.base.Host)
		if err != nil {
			return nil, rateLimitError(ctx, err)
		}
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, req.method, req.url, body,
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if req.accept != "" {
		httpReq.Header.Set("Accept", req.accept)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	log.Tracef("%s %s", req.method, req.url)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Cancellation is reported as is, anything else is a
		// transport failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, fmt.Errorf("%w: %s %s: %w", wallet.ErrNetwork,
			req.method, req.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, fmt.Errorf("%w: read response: %w",
			wallet.ErrNetwork, err)
	}

	if err := statusError(resp.StatusCode, data); err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.url, err)
	}

	return data, nil
}

// rateLimitError classifies a failed limiter wait. The limiter fails early
// when the deadline of ctx would pass before a token is available.
func rateLimitError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	return fmt.Errorf("%w: rate limit: %w", wallet.ErrNetwork, err)
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	// Code is the HTTP status code.
	Code int

	// Message is the start of the response body.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}

	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Unwrap classifies the status. Throttling and gateway timeouts are
// transient and count as network errors; every other failure is reported
// by the server.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout,
		http.StatusBadGateway, http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:

		return wallet.ErrNetwork

	default:
		return wallet.ErrServer
	}
}

// statusError returns nil for a 2xx status and a StatusError otherwise.
func statusError(code int, body []byte) error {
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}

	return &StatusError{Code: code, Message: msg}
}

// decodeJSON unmarshals a response body, classifying a malformed body as a
// network error since the indexer answered with something unusable.
func decodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode response: %w", wallet.ErrNetwork,
			err)
	}

	return nil
}
