// Package apiclient is the single request pipeline every resource client
// goes through. Outbound requests carry the stored bearer token when one
// exists; a 401 from any call clears the credential store and signals that
// the session was invalidated before the failure is returned to the caller.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/merchant-console/credentials"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestInterceptor observes or modifies every outbound request
type RequestInterceptor func(req *http.Request)

// ResponseInterceptor observes every response that was received, whatever its status
type ResponseInterceptor func(req *http.Request, resp *http.Response)

// SessionInvalidatedHandler is notified once per authentication failure
type SessionInvalidatedHandler func(ctx context.Context)

type Client struct {
	baseURL    string
	httpClient *http.Client
	store      credentials.Store
	logger     zerolog.Logger
	metrics    *Metrics

	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor

	invalidatedHandlers []SessionInvalidatedHandler
	handlersLock        sync.RWMutex
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records request counts and latencies
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRequestInterceptor appends an interceptor run after the bearer credential is attached
func WithRequestInterceptor(i RequestInterceptor) ClientOption {
	return func(c *Client) {
		c.requestInterceptors = append(c.requestInterceptors, i)
	}
}

// WithResponseInterceptor appends an interceptor run after the authentication check
func WithResponseInterceptor(i ResponseInterceptor) ClientOption {
	return func(c *Client) {
		c.responseInterceptors = append(c.responseInterceptors, i)
	}
}

func WithSessionInvalidatedHandler(h SessionInvalidatedHandler) ClientOption {
	return func(c *Client) {
		c.invalidatedHandlers = append(c.invalidatedHandlers, h)
	}
}

// New creates a client for the backend rooted at baseURL (e.g. "http://localhost:8000/api/v1").
func New(baseURL string, store credentials.Store, options ...ClientOption) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("[apiclient New] credential store is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("[apiclient New] invalid base url: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.metrics != nil {
		instrumented := *c.httpClient
		instrumented.Transport = c.metrics.Transport(c.httpClient.Transport)
		c.httpClient = &instrumented
	}

	c.requestInterceptors = append([]RequestInterceptor{c.attachBearer}, c.requestInterceptors...)
	c.responseInterceptors = append([]ResponseInterceptor{c.invalidateOnUnauthenticated}, c.responseInterceptors...)

	return c, nil
}

// OnSessionInvalidated registers a handler after construction, typically the
// owning session so it can drop its identity when the backend rejects the token.
func (c *Client) OnSessionInvalidated(h SessionInvalidatedHandler) {
	c.handlersLock.Lock()
	defer c.handlersLock.Unlock()
	c.invalidatedHandlers = append(c.invalidatedHandlers, h)
}

// BaseURL returns the backend root the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends one request. body, when non-nil, is JSON encoded; a 2xx response
// body is decoded into out when out is non-nil. Failures are returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return &Error{Kind: KindUnexpected, Err: err}
	}

	for _, intercept := range c.requestInterceptors {
		intercept(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("api request failed")
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	for _, intercept := range c.responseInterceptors {
		intercept(req, resp)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return &Error{Kind: KindUnexpected, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) notifyInvalidated(ctx context.Context) {
	c.handlersLock.RLock()
	handlers := make([]SessionInvalidatedHandler, len(c.invalidatedHandlers))
	copy(handlers, c.invalidatedHandlers)
	c.handlersLock.RUnlock()

	for _, h := range handlers {
		h(ctx)
	}
}
