// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package store implements a small client for the JSON document API of the
// remote search store that aggregated traces are indexed in.
package store // import "github.com/wpprofiler/hookreporter/store"

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody limits how much of an error response is kept in StatusError.
	maxErrorBody = 4096
)

// Config holds the settings for connecting to the remote store.
type Config struct {
	// Endpoint is the API origin, e.g. https://scalr.api.appbase.io.
	Endpoint string
	// Index is the name of the index (app) the documents are stored in.
	Index string
	// Credentials are sent as HTTP basic auth, in user:password form.
	Credentials string
	// Timeout bounds every single request. Zero selects a default.
	Timeout time.Duration
	// UserAgent is sent with every request if set.
	UserAgent string
}

// Validate checks that the mandatory settings are present.
func (cfg *Config) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("store endpoint is not set")
	}
	if cfg.Index == "" {
		return errors.New("store index is not set")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return fmt.Errorf("invalid store endpoint: %w", err)
	}
	return nil
}

// StatusError is returned for responses with a non-2xx status code.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client performs authenticated requests against the index of a remote store.
type Client struct {
	baseURL    string
	authHeader string
	userAgent  string
	httpClient *http.Client
}

// New creates a new Client from cfg.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(cfg.Endpoint, "/") + "/" + url.PathEscape(cfg.Index),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(&http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			}),
		},
	}
	if cfg.Credentials != "" {
		c.authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Credentials))
	}
	return c, nil
}

// Get fetches path below the index and returns the response body.
// The body may be empty.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post sends body to path below the index, typically to create a document.
func (c *Client) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put sends body to path below the index, typically to update a mapping.
func (c *Client) Put(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method,
		c.baseURL+"/"+strings.TrimPrefix(path, "/"), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request for %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}
	log.Debugf("%s %s: %d (%d bytes)", method, path, resp.StatusCode, len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   string(data),
		}
	}
	return data, nil
}
