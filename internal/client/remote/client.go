// Package remote is the HTTP client of the remote authority's JSON API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/common"
)

// TokenFunc returns the bearer token for outgoing requests, or "" for none.
type TokenFunc func(ctx context.Context) (string, error)

// Client talks to the remote authority rooted at BaseURL.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
}

func New(baseURL string, timeout time.Duration, token TokenFunc) *Client {
	if token == nil {
		token = func(context.Context) (string, error) { return "", nil }
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   token,
	}
}

// SyncResponse is the body of a successful POST /sync.
type SyncResponse struct {
	Success   bool   `json:"success"`
	Synced    bool   `json:"synced"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Submit sends body to the given route. Any transport failure or non-2xx
// status is reported as common.ErrTransport.
func (c *Client) Submit(ctx context.Context, route models.Route, body json.RawMessage) error {
	return c.do(ctx, route.Method, route.Path, body, nil)
}

// Sync posts a whole queue entry to the generic /sync endpoint.
func (c *Client) Sync(ctx context.Context, e *models.QueueEntry) (*SyncResponse, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode entry %s: %w", e.ID, err)
	}
	var resp SyncResponse
	if err := c.do(ctx, http.MethodPost, "/sync", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRecords fetches the vaccination records the remote holds for ownerID.
func (c *Client) ListRecords(ctx context.Context, ownerID string) ([]models.VaccinationRecord, error) {
	var resp struct {
		Records []models.VaccinationRecord `json:"records"`
	}
	path := "/records?ownerId=" + url.QueryEscape(ownerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("%w: build %s %s: %v", common.ErrTransport, method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("resolve token: %w", err)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", common.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %v", common.ErrTransport, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%w: %s %s: %d %s", common.ErrTransport, method, path, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%w: %s %s: status %d", common.ErrTransport, method, path, resp.StatusCode)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decode %s %s: %v", common.ErrTransport, method, path, err)
		}
	}
	return nil
}
