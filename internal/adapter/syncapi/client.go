// Package syncapi is the HTTP client for the remote API the sync queue
// drains against.
package syncapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/khula/khulasync/internal/domain"
)

// Client implements usecase.SyncAPI over a REST-style remote:
//
//	POST   {base}/{entityType}           create
//	PUT    {base}/{entityType}/{id}      update
//	DELETE {base}/{entityType}/{id}      delete
//
// Create and Update return the server's copy of the record.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAuthToken sends a bearer token on every request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// NewClient creates a new Client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create submits a new record.
func (c *Client) Create(ctx context.Context, entityType domain.EntityType, payload json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, c.entityURL(entityType, ""), payload)
}

// Update submits changes to an existing record.
func (c *Client) Update(ctx context.Context, entityType domain.EntityType, entityID string, payload json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, c.entityURL(entityType, entityID), payload)
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, entityType domain.EntityType, entityID string) error {
	_, err := c.do(ctx, http.MethodDelete, c.entityURL(entityType, entityID), nil)
	return err
}

// entityURL builds the remote path for an entity type. The path segment is
// the type's collection name, which is not a uniform pluralization: the
// userProfile endpoint is singular.
func (c *Client) entityURL(entityType domain.EntityType, entityID string) string {
	segment, err := entityType.Collection()
	if err != nil {
		segment = string(entityType)
	}

	url := c.baseURL + "/" + segment
	if entityID != "" {
		url += "/" + entityID
	}
	return url
}

func (c *Client) do(ctx context.Context, method, url string, payload json.RawMessage) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync api %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sync api %s %s: reading response: %w", method, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("sync api %s %s: status %d: %s", method, url, resp.StatusCode, truncate(respBody, 256))
	}

	if len(respBody) == 0 {
		return nil, nil
	}
	return respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
