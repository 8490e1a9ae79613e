// Package similarity wraps the remote similar-issues service: the HTTP
// transport, the wire types, and the ledger reconciliation that turns a raw
// neighbor list into a grouping decision.
package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const similarIssuesPath = "/v0/issues/similar-issues"

// APIError represents a non-2xx HTTP response from the similarity service.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("similarity: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is the HTTP transport for the similarity service. No retries: a
// failed call is a definitive no-match for this event, and the circuit
// breaker handles sustained trouble.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client with Bearer auth and a base URL.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SimilarIssues posts the request and returns the neighbor list, closest
// match first, exactly as the service ordered it. Returns *APIError for
// non-2xx responses.
func (c *Client) SimilarIssues(ctx context.Context, request Request) ([]Result, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("similarity: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+similarIssuesPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(raw)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("similarity: decode response: %w", err)
	}
	return env.Responses, nil
}
