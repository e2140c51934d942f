// Package remote implements backend.VectorBackend over the hosted
// vector-index service's REST API.
//
// The service embeds text server-side: upsert and search carry raw text
// plus a model name, and no vector ever crosses the wire in either
// direction.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vectormem/vectormem-go/pkg/backend"
)

const defaultTimeout = 30 * time.Second

// Client is a REST client for the hosted vector-index service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config is the configuration for the remote backend.
type Config struct {
	// BaseURL is the service endpoint, e.g. "https://vectors.example.com".
	BaseURL string

	// APIKey authenticates every request.
	APIKey string

	// HTTPClient overrides the default HTTP client (optional).
	HTTPClient *http.Client
}

// NewClient creates a new remote backend client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("remote: API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// apiError is the service's error envelope.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// do issues one request and decodes the response body into out (when out
// is non-nil). Conflict and not-found statuses map to the shared backend
// sentinels so callers can branch on them without knowing HTTP.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("remote: %s %s: %w", method, path, backend.ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("remote: %s %s: %w", method, path, backend.ErrIndexExists)
	case resp.StatusCode >= 400:
		var apiErr apiError
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("remote: %s %s: status %d: %s", method, path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("remote: %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

// ListIndexes returns all indexes visible to the API key.
func (c *Client) ListIndexes(ctx context.Context) ([]backend.IndexInfo, error) {
	var resp struct {
		Indexes []backend.IndexInfo `json:"indexes"`
	}
	if err := c.do(ctx, http.MethodGet, "/indexes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Indexes, nil
}

// CreateIndex creates a new index. A name conflict surfaces as
// backend.ErrIndexExists.
func (c *Client) CreateIndex(ctx context.Context, req *backend.CreateIndexRequest) (*backend.IndexInfo, error) {
	var info backend.IndexInfo
	if err := c.do(ctx, http.MethodPost, "/indexes", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UpsertText embeds and stores a single text record, returning its id.
func (c *Client) UpsertText(ctx context.Context, indexID string, req *backend.UpsertRequest) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/indexes/%s/records", url.PathEscape(indexID))
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SearchText runs a semantic search against the index.
func (c *Client) SearchText(ctx context.Context, indexID string, req *backend.SearchRequest) ([]backend.Hit, error) {
	var resp struct {
		Hits []backend.Hit `json:"hits"`
	}
	path := fmt.Sprintf("/indexes/%s/search", url.PathEscape(indexID))
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return resp.Hits, nil
}

// GetRecord fetches a record by id.
func (c *Client) GetRecord(ctx context.Context, indexID, recordID string) (*backend.Record, error) {
	var record backend.Record
	path := fmt.Sprintf("/indexes/%s/records/%s", url.PathEscape(indexID), url.PathEscape(recordID))
	if err := c.do(ctx, http.MethodGet, path, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateRecord replaces the stored metadata of a record.
func (c *Client) UpdateRecord(ctx context.Context, indexID, recordID string, metadata map[string]interface{}) error {
	body := map[string]interface{}{"metadata": metadata}
	path := fmt.Sprintf("/indexes/%s/records/%s", url.PathEscape(indexID), url.PathEscape(recordID))
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// DeleteRecord deletes a record by id. Deleting an absent record succeeds.
func (c *Client) DeleteRecord(ctx context.Context, indexID, recordID string) error {
	path := fmt.Sprintf("/indexes/%s/records/%s", url.PathEscape(indexID), url.PathEscape(recordID))
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if errors.Is(err, backend.ErrNotFound) {
		return nil
	}
	return err
}

// Close releases the client's resources. The HTTP client keeps no
// per-client state worth tearing down.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
