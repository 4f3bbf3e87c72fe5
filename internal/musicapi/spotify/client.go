// Package spotify implements the Spotify Web API client used for release
// discovery. Authentication uses the client-credentials flow; tokens are
// cached until shortly before expiry and refreshed transparently.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"rythmx/internal/musicapi"
	"rythmx/internal/ratelimit"
	"rythmx/internal/textutil"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type artistItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type searchResponse struct {
	Artists struct {
		Items []artistItem `json:"items"`
	} `json:"artists"`
}

type albumItem struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	AlbumType            string       `json:"album_type"`
	ReleaseDate          string       `json:"release_date"`
	ReleaseDatePrecision string       `json:"release_date_precision"`
	TotalTracks          int          `json:"total_tracks"`
	Artists              []artistItem `json:"artists"`
}

type albumsResponse struct {
	Items []albumItem `json:"items"`
}

// Client provides access to the Spotify Web API.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	limiter      *ratelimit.Limiter
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
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

// New creates a Spotify client pacing requests to one per minInterval.
func New(clientID, clientSecret, baseURL, tokenURL string, minInterval time.Duration, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("spotify client credentials required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("spotify base url required")
	}
	tokenURL = strings.TrimSpace(tokenURL)
	if tokenURL == "" {
		return nil, errors.New("spotify token url required")
	}
	client := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		tokenURL:     tokenURL,
		limiter:      ratelimit.New(minInterval),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify token endpoint returned %d", resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("spotify token response missing access_token")
	}
	c.token = payload.AccessToken
	// Refresh a minute early so in-flight requests never race expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, payload any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("await rate limit: %w", err)
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse spotify url: %w", err)
	}
	if params != nil {
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return fmt.Errorf("decode spotify response: %w", err)
	}
	return nil
}

// SearchArtistID returns the top artist match for name, or empty when the
// catalog has no candidate. Cleanup variants of the query are retried when
// the literal form finds nothing.
func (c *Client) SearchArtistID(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("artist name must not be empty")
	}
	for _, variant := range textutil.SearchVariants(name) {
		params := url.Values{}
		params.Set("q", variant)
		params.Set("type", "artist")
		params.Set("limit", "1")
		var payload searchResponse
		if err := c.get(ctx, "/search", params, &payload); err != nil {
			return "", err
		}
		if len(payload.Artists.Items) > 0 {
			return payload.Artists.Items[0].ID, nil
		}
	}
	return "", nil
}

// RecentAlbums returns the artist's albums and singles dated on or after
// since.
func (c *Client) RecentAlbums(ctx context.Context, artistID string, since time.Time) ([]musicapi.Release, error) {
	artistID = strings.TrimSpace(artistID)
	if artistID == "" {
		return nil, errors.New("artist id must be set")
	}
	params := url.Values{}
	params.Set("include_groups", "album,single")
	params.Set("limit", "50")
	var payload albumsResponse
	if err := c.get(ctx, "/artists/"+artistID+"/albums", params, &payload); err != nil {
		return nil, err
	}
	cutoff := since.Format("2006-01-02")
	releases := make([]musicapi.Release, 0, len(payload.Items))
	for _, album := range payload.Items {
		if album.Name == "" {
			continue
		}
		if album.ReleaseDate != "" && album.ReleaseDate < cutoff {
			continue
		}
		kind := musicapi.ParseKind(album.AlbumType)
		// Spotify folds EPs into album_type=single; track count separates them.
		if kind == musicapi.KindSingle && album.TotalTracks >= 4 {
			kind = musicapi.KindEP
		}
		title, kind := musicapi.ClassifyTitle(album.Name, kind)
		var artist string
		if len(album.Artists) > 0 {
			artist = album.Artists[0].Name
		}
		releases = append(releases, musicapi.Release{
			Artist:          artist,
			Title:           title,
			Date:            album.ReleaseDate,
			Kind:            kind,
			Source:          "spotify",
			ProviderAlbumID: album.ID,
		})
	}
	return releases, nil
}
