// Package plexpush mirrors assembled playlists to a Plex-compatible media
// server. Push failures are reported to the caller but are expected to be
// tolerated; the playlist still exists locally.
package plexpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one Plex server. The token is carried in a header and is
// never logged or echoed in errors.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the transport, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New builds a client for the server at baseURL.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" || token == "" {
		return nil, errors.New("plexpush: server URL and token are both required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type mediaContainer struct {
	MediaContainer struct {
		MachineIdentifier string `json:"machineIdentifier"`
		FriendlyName      string `json:"friendlyName"`
		Metadata          []struct {
			RatingKey string `json:"ratingKey"`
			Title     string `json:"title"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload *mediaContainer) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s after %s: %w", method, path, time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if payload == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// ServerName verifies connectivity and returns the server's friendly name.
func (c *Client) ServerName(ctx context.Context) (string, error) {
	var payload mediaContainer
	if err := c.do(ctx, http.MethodGet, "/", nil, &payload); err != nil {
		return "", err
	}
	return payload.MediaContainer.FriendlyName, nil
}

func (c *Client) machineID(ctx context.Context) (string, error) {
	var payload mediaContainer
	if err := c.do(ctx, http.MethodGet, "/", nil, &payload); err != nil {
		return "", err
	}
	if payload.MediaContainer.MachineIdentifier == "" {
		return "", errors.New("server reported no machine identifier")
	}
	return payload.MediaContainer.MachineIdentifier, nil
}

// findPlaylist returns the rating key of the playlist with the given title,
// or empty when none exists.
func (c *Client) findPlaylist(ctx context.Context, name string) (string, error) {
	var payload mediaContainer
	if err := c.do(ctx, http.MethodGet, "/playlists", nil, &payload); err != nil {
		return "", err
	}
	for _, entry := range payload.MediaContainer.Metadata {
		if entry.Title == name {
			return entry.RatingKey, nil
		}
	}
	return "", nil
}

func itemsURI(machineID string, ratingKeys []string) string {
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s",
		machineID, strings.Join(ratingKeys, ","))
}

// CreateOrUpdatePlaylist makes the named playlist contain exactly the given
// tracks, creating it when absent and replacing its items when present.
// Returns the playlist's rating key.
func (c *Client) CreateOrUpdatePlaylist(ctx context.Context, name string, ratingKeys []string) (string, error) {
	if len(ratingKeys) == 0 {
		return "", errors.New("no tracks to push")
	}
	machineID, err := c.machineID(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve machine identifier: %w", err)
	}
	existing, err := c.findPlaylist(ctx, name)
	if err != nil {
		return "", fmt.Errorf("look up playlist %q: %w", name, err)
	}
	uri := itemsURI(machineID, ratingKeys)

	if existing != "" {
		if err := c.do(ctx, http.MethodDelete, "/playlists/"+existing+"/items", nil, nil); err != nil {
			return "", fmt.Errorf("clear playlist %q: %w", name, err)
		}
		params := url.Values{"uri": {uri}}
		if err := c.do(ctx, http.MethodPut, "/playlists/"+existing+"/items", params, nil); err != nil {
			return "", fmt.Errorf("refill playlist %q: %w", name, err)
		}
		return existing, nil
	}

	params := url.Values{
		"title": {name},
		"type":  {"audio"},
		"smart": {"0"},
		"uri":   {uri},
	}
	var payload mediaContainer
	if err := c.do(ctx, http.MethodPost, "/playlists", params, &payload); err != nil {
		return "", fmt.Errorf("create playlist %q: %w", name, err)
	}
	if len(payload.MediaContainer.Metadata) == 0 {
		return "", fmt.Errorf("create playlist %q: empty response", name)
	}
	return payload.MediaContainer.Metadata[0].RatingKey, nil
}
