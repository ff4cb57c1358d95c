/*
Copyright © 2025 Ian Shuley

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package provider is the client side of the identity provider's HTTP API:
// the staged flow executor, the user query endpoint and the bootstrap admin
// probe.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"authbridge/pkg/errors"
	"authbridge/pkg/version"
)

const (
	// DefaultTimeout bounds every single HTTP call
	DefaultTimeout = 10 * time.Second

	// DefaultFlowSlug is the authentication flow used when none is configured
	DefaultFlowSlug = "default-authentication-flow"

	maxResponseBytes = 1 << 20
)

// Config configures a Client
type Config struct {
	BaseURL  string
	Token    string
	FlowSlug string
	Timeout  time.Duration

	// Transport overrides the HTTP transport; nil uses http.DefaultTransport
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client talks to the identity provider. The bearer token is fixed at
// construction and never changed.
type Client struct {
	baseURL   string
	token     string
	flowSlug  string
	timeout   time.Duration
	transport http.RoundTripper
	logger    *zap.Logger
}

// NewClient validates cfg and creates a Client
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewInvalidInputError("provider.url", fmt.Sprintf("must be an absolute URL, got %q", cfg.BaseURL))
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		token:     cfg.Token,
		flowSlug:  cfg.FlowSlug,
		timeout:   cfg.Timeout,
		transport: cfg.Transport,
		logger:    cfg.Logger,
	}
	if c.flowSlug == "" {
		c.flowSlug = DefaultFlowSlug
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.transport == nil {
		c.transport = http.DefaultTransport
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Timeout returns the per-call timeout
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) flowURL() string {
	return c.baseURL + "/api/v3/flows/executor/" + url.PathEscape(c.flowSlug) + "/"
}

func (c *Client) usersURL(query url.Values) string {
	u := c.baseURL + "/api/v3/core/users/"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// response is a fully read HTTP response
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// do performs one request bounded by the client timeout. Transport failures
// come back as PROVIDER_TIMEOUT or PROVIDER_UNREACHABLE; any HTTP status is
// returned to the caller to classify.
func (c *Client) do(ctx context.Context, httpClient *http.Client, operation, method, target string, payload any) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(operation, err)
	}

	c.logger.Debug("Provider call completed",
		zap.String("operation", operation),
		zap.Int("status", resp.StatusCode))
	return &response{status: resp.StatusCode, body: data}, nil
}

func (c *Client) httpClient(jar http.CookieJar) *http.Client {
	return &http.Client{
		Transport: c.transport,
		Jar:       jar,
		Timeout:   c.timeout,
	}
}

func classifyTransportError(operation string, err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NewProviderTimeoutError(operation, err)
	}
	return errors.NewProviderUnreachableError(operation, err)
}
