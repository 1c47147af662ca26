package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"boardsync/domain"
)

const workspaceResponseMaxSize = 16 * 1024 * 1024 // 16 MiB

// Client is the HTTP implementation of Remote, talking to the remote
// workspace store's GET/POST /api/workspace endpoints.
type Client struct {
	baseURL    string
	userID     string
	authHeader string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBearerToken attaches an Authorization header to every request.
func WithBearerToken(token string) ClientOption {
	return func(c *Client) { c.authHeader = "Bearer " + token }
}

// NewClient creates a remote store client rooted at baseURL.
func NewClient(baseURL, userID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		userID:     userID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type saveRequest struct {
	Data      domain.Workspace `json:"data"`
	Version   int64            `json:"version"`
	RequestID string           `json:"requestId"`
	UserID    string           `json:"userId,omitempty"`
}

type saveResponse struct {
	Version int64  `json:"version"`
	Error   string `json:"error,omitempty"`
}

// Load fetches the whole workspace document. A payload missing expected
// collections degrades to empty defaults rather than an error, so the caller
// always gets a usable tree.
func (c *Client) Load(ctx context.Context) (domain.Workspace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/workspace", nil)
	if err != nil {
		return domain.Workspace{}, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Workspace{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Workspace{}, fmt.Errorf("load workspace: unexpected status %d", resp.StatusCode)
	}

	var ws domain.Workspace
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(resp.Body, workspaceResponseMaxSize))
	if err := dec.Decode(&ws); err != nil {
		return domain.Workspace{}, fmt.Errorf("load workspace: decode: %w", err)
	}
	return ws.Normalize(), nil
}

// Save submits the workspace tagged with its version. A 409 from the remote
// maps to ErrVersionConflict; any other non-2xx status is a transport-class
// failure.
func (c *Client) Save(ctx context.Context, ws domain.Workspace, requestID string) (int64, error) {
	body, err := sonic.Marshal(saveRequest{
		Data:      ws,
		Version:   ws.Version,
		RequestID: requestID,
		UserID:    c.userID,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/workspace", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return 0, ErrVersionConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("save workspace: unexpected status %d", resp.StatusCode)
	}

	var sr saveResponse
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(resp.Body, workspaceResponseMaxSize))
	if err := dec.Decode(&sr); err != nil {
		return 0, fmt.Errorf("save workspace: decode: %w", err)
	}
	return sr.Version, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
}
