// Package deezer implements the Deezer API client used for release
// discovery. The public API is unkeyed; requests are paced by the client's
// limiter.
package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rythmx/internal/musicapi"
	"rythmx/internal/ratelimit"
	"rythmx/internal/textutil"
)

type artistResult struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type albumResult struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	RecordType  string `json:"record_type"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// Client provides access to the Deezer API.
type Client struct {
	baseURL    string
	limiter    *ratelimit.Limiter
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Deezer client pacing requests to one per minInterval.
func New(baseURL string, minInterval time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("deezer base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    ratelimit.New(minInterval),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, payload any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("await rate limit: %w", err)
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse deezer url: %w", err)
	}
	if params != nil {
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deezer %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return fmt.Errorf("decode deezer response: %w", err)
	}
	return nil
}

// SearchArtistID returns the top artist match for name, or zero when the
// catalog has no candidate. Cleanup variants of the query are retried when
// the literal form finds nothing.
func (c *Client) SearchArtistID(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("artist name must not be empty")
	}
	for _, variant := range textutil.SearchVariants(name) {
		params := url.Values{}
		params.Set("q", variant)
		params.Set("limit", "1")
		var payload listResponse[artistResult]
		if err := c.get(ctx, "/search/artist", params, &payload); err != nil {
			return 0, err
		}
		if len(payload.Data) > 0 {
			return payload.Data[0].ID, nil
		}
	}
	return 0, nil
}

// RecentAlbums returns the artist's releases dated on or after since.
func (c *Client) RecentAlbums(ctx context.Context, artistID int64, since time.Time) ([]musicapi.Release, error) {
	if artistID == 0 {
		return nil, errors.New("artist id must be set")
	}
	params := url.Values{}
	params.Set("limit", "100")
	var payload listResponse[albumResult]
	if err := c.get(ctx, "/artist/"+strconv.FormatInt(artistID, 10)+"/albums", params, &payload); err != nil {
		return nil, err
	}
	cutoff := since.Format("2006-01-02")
	releases := make([]musicapi.Release, 0, len(payload.Data))
	for _, album := range payload.Data {
		if album.Title == "" {
			continue
		}
		if album.ReleaseDate != "" && album.ReleaseDate < cutoff {
			continue
		}
		title, kind := musicapi.ClassifyTitle(album.Title, musicapi.ParseKind(album.RecordType))
		releases = append(releases, musicapi.Release{
			Title:           title,
			Date:            album.ReleaseDate,
			Kind:            kind,
			Source:          "deezer",
			ProviderAlbumID: strconv.FormatInt(album.ID, 10),
		})
	}
	return releases, nil
}
