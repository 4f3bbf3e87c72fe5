// Package daemonctl is the CLI side of the control API: a thin HTTP client
// against the daemon's localhost server.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"rythmx/internal/api"
)

// ErrDaemonNotRunning reports that nothing answers on the control address.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client talks to a running daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for the daemon bound at bind (host:port).
func New(bind string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("daemonctl: control address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	return &Client{
		baseURL:    strings.TrimRight(bind, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Status fetches daemon status. Returns ErrDaemonNotRunning when the
// control address does not answer.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var payload api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// TriggerCycle requests an asynchronous cycle run.
func (c *Client) TriggerCycle(ctx context.Context, mode string, force bool) (*api.CycleTriggerResponse, error) {
	params := url.Values{}
	if mode = strings.TrimSpace(mode); mode != "" {
		params.Set("mode", mode)
	}
	if force {
		params.Set("force", "1")
	}
	var payload api.CycleTriggerResponse
	err := c.do(ctx, http.MethodPost, "/api/cycle", params, nil, &payload)
	if err != nil {
		// A busy scheduler still returns a decodable trigger payload.
		var apiErr *StatusError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			return &api.CycleTriggerResponse{Triggered: false, Reason: "already_running", Mode: mode}, nil
		}
		return nil, err
	}
	return &payload, nil
}

// Queue lists acquisition queue items, optionally filtered by status.
func (c *Client) Queue(ctx context.Context, statuses ...string) (*api.QueueListResponse, error) {
	params := url.Values{}
	for _, status := range statuses {
		if status = strings.TrimSpace(status); status != "" {
			params.Add("status", status)
		}
	}
	var payload api.QueueListResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue", params, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Enqueue adds a release to the acquisition queue by hand.
func (c *Client) Enqueue(ctx context.Context, req api.EnqueueRequest) (*api.EnqueueResponse, error) {
	var payload api.EnqueueResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CheckQueue runs one acquisition pass now.
func (c *Client) CheckQueue(ctx context.Context) (*api.QueueCheckResponse, error) {
	var payload api.QueueCheckResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue/check", nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ClearCache drops cached releases, for one artist or all of them.
func (c *Client) ClearCache(ctx context.Context, artist string) (*api.CacheClearResponse, error) {
	params := url.Values{}
	if artist = strings.TrimSpace(artist); artist != "" {
		params.Set("artist", artist)
	}
	var payload api.CacheClearResponse
	if err := c.do(ctx, http.MethodPost, "/api/cache/clear", params, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ResolveIdentity runs identity resolution for one artist and returns the
// full resolution, candidates included.
func (c *Client) ResolveIdentity(ctx context.Context, artist string, force bool) (*api.IdentityResolution, error) {
	params := url.Values{"artist": {artist}}
	if force {
		params.Set("force", "1")
	}
	var payload api.IdentityResolution
	if err := c.do(ctx, http.MethodPost, "/api/identity/resolve", params, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Discovery fetches scored recommendation candidates from the library's
// discovery pool.
func (c *Client) Discovery(ctx context.Context, limit int, newReleasesOnly bool) (*api.DiscoveryResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if newReleasesOnly {
		params.Set("new", "1")
	}
	var payload api.DiscoveryResponse
	if err := c.do(ctx, http.MethodGet, "/api/discovery", params, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// History fetches recent cycle outcomes.
func (c *Client) History(ctx context.Context, limit int) (*api.HistoryResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var payload api.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/history", params, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// StatusError is a non-2xx control API reply.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("daemon replied %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("daemon replied %d", e.Code)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isConnectionRefused(err) {
			return ErrDaemonNotRunning
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
