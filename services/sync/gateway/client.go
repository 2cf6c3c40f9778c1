// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tidewaterlabs/shelfsync/pkg/logging"
)

// DefaultTimeout bounds a single request end to end. Timeouts surface as
// ErrTimeout; the controller treats them like any other network failure.
const DefaultTimeout = 15 * time.Second

// DefaultRateLimit is requests per second against the remote API, which
// enforces its own limits; staying under them client-side avoids burning
// a user action on a guaranteed 429.
const DefaultRateLimit = 5

// TokenSource supplies the bearer token for authenticated requests.
// session.Context satisfies this.
type TokenSource interface {
	Token() string
}

// Client is the HTTP implementation of Gateway.
//
// # Thread Safety
//
// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenSource
	userAgent  string
	log        *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit sets the outbound requests-per-second cap.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(log *logging.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithHTTPClient substitutes the underlying http.Client. Tests use this
// to point at an httptest server with a short timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a gateway client for the API at baseURL.
//
// tokens may be nil for a client that only issues anonymous reads.
func NewClient(baseURL string, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit+1),
		tokens:     tokens,
		userAgent:  "shelfsync/1.0",
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute implements Gateway.
//
// The limiter gates the request before it is built, so a cancelled wait
// costs nothing. Classification rules:
//
//   - context cancellation → Cancelled (silent by contract)
//   - deadline exceeded or transport timeout → Timeout
//   - any other transport failure → NetworkUnavailable
//   - 401/403 → Unauthorized, 404 → NotFound
//   - remaining 4xx/5xx → ServerRejected with the server message verbatim
func (c *Client) Execute(ctx context.Context, req Descriptor, out any) error {
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return c.finish(req, start, classifyTransport(err))
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return c.finish(req, start, NewError(ClassServerRejected, 0, "", err))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.finish(req, start, classifyTransport(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.finish(req, start, classifyStatus(resp))
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return c.finish(req, start,
				NewError(ClassServerRejected, resp.StatusCode, "malformed response body", err))
		}
	}
	return c.finish(req, start, nil)
}

func (c *Client) buildRequest(ctx context.Context, req Descriptor) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}

// finish records metrics and logs before returning err unchanged.
func (c *Client) finish(req Descriptor, start time.Time, err error) error {
	elapsed := time.Since(start)
	class := "ok"
	if err != nil {
		class = string(ClassOf(err))
	}
	recordRequest(req.Method, class, elapsed)

	if err != nil && !IsCancelled(err) {
		c.log.Debug("request failed",
			"method", req.Method,
			"path", req.Path,
			"class", class,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}
	return err
}

// classifyTransport maps an error from http.Client.Do (or limiter wait)
// into the taxonomy.
func classifyTransport(err error) *Error {
	switch {
	case errors.Is(err, context.Canceled):
		return NewError(ClassCancelled, 0, "", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ClassTimeout, 0, "", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(ClassTimeout, 0, "", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NewError(ClassNetworkUnavailable, 0, "", err)
	}
	return NewError(ClassNetworkUnavailable, 0, "", err)
}

// serverMessage is the error envelope the API uses for rejections.
type serverMessage struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classifyStatus maps a 4xx/5xx response into the taxonomy, preserving
// the server's message verbatim when one is present.
func classifyStatus(resp *http.Response) *Error {
	// Bounded read: a rejection body is small; never slurp arbitrary data.
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := strings.TrimSpace(string(data))
	var envelope serverMessage
	if json.Unmarshal(data, &envelope) == nil {
		if envelope.Error != "" {
			msg = envelope.Error
		} else if envelope.Message != "" {
			msg = envelope.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewError(ClassUnauthorized, resp.StatusCode, msg, nil)
	case http.StatusNotFound:
		return NewError(ClassNotFound, resp.StatusCode, msg, nil)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return NewError(ClassTimeout, resp.StatusCode, msg, nil)
	default:
		return NewError(ClassServerRejected, resp.StatusCode, msg, nil)
	}
}

var _ Gateway = (*Client)(nil)
