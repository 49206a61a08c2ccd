package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	backoff    func(int) time.Duration
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: Backoff,
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value     any    `json:"value"`
	MergeMode string `json:"merge_mode,omitempty"`
	Source    string `json:"source,omitempty"`
}

// LinkRequest is the body for PUT /links.
type LinkRequest struct {
	From    string  `json:"from_key"`
	To      string  `json:"to_key"`
	Weight  float64 `json:"weight"`
	Summary string  `json:"summary,omitempty"`
}

// PutNode stores or updates a node at the given path.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	return withRetry(ctx, c.backoff, func() error {
		return c.do(ctx, http.MethodPut, "/kv/"+key, body, http.StatusOK, http.StatusCreated)
	})
}

// DeleteNode deletes a node and optionally its children. A missing node is
// not an error.
func (c *Client) DeleteNode(ctx context.Context, key string, recursive bool) error {
	path := "/kv/" + key
	if recursive {
		path += "?children=true"
	}
	return withRetry(ctx, c.backoff, func() error {
		return c.do(ctx, http.MethodDelete, path, nil, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	})
}

// PutLink creates or updates an edge between two nodes.
func (c *Client) PutLink(ctx context.Context, req LinkRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal link: %w", err)
	}
	return withRetry(ctx, c.backoff, func() error {
		return c.do(ctx, http.MethodPut, "/links", body, http.StatusOK, http.StatusCreated)
	})
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, ok ...int) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return &RetryableError{Err: fmt.Errorf("%s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{StatusCode: resp.StatusCode, Err: err}
	}
	return err
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
