// Package lastfm implements the Last.fm client providing the listening
// history that drives discovery: top artists, per-artist top tracks, and
// loved tracks. The API key is carried in query parameters and never logged.
package lastfm

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
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// ValidPeriods lists the ranges Last.fm accepts for top-artist queries.
var ValidPeriods = []string{"overall", "7day", "1month", "3month", "6month", "12month"}

// TopArtist is one entry from the user's listening history.
type TopArtist struct {
	Name      string
	PlayCount int
}

type topArtistsResponse struct {
	TopArtists struct {
		Artist []struct {
			Name      string `json:"name"`
			PlayCount string `json:"playcount"`
		} `json:"artist"`
	} `json:"topartists"`
}

type topTracksResponse struct {
	TopTracks struct {
		Track []struct {
			Name string `json:"name"`
		} `json:"track"`
	} `json:"toptracks"`
}

type lovedTracksResponse struct {
	LovedTracks struct {
		Track []struct {
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"track"`
	} `json:"lovedtracks"`
}

type errorResponse struct {
	ErrorCode int    `json:"error"`
	Message   string `json:"message"`
}

// Client provides access to the Last.fm API.
type Client struct {
	apiKey     string
	user       string
	baseURL    string
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

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// New creates a Last.fm client for the given user.
func New(apiKey, user string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("lastfm api key required")
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, errors.New("lastfm user required")
	}
	client := &Client{
		apiKey:     apiKey,
		user:       user,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values, payload any) error {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse lastfm url: %w", err)
	}
	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	endpoint.RawQuery = params.Encode()

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
		// Last.fm puts the real failure reason in the body.
		var failure errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&failure); decodeErr == nil && failure.Message != "" {
			return fmt.Errorf("lastfm %s failed: %s (code %d, latency=%v)", method, failure.Message, failure.ErrorCode, latency)
		}
		return fmt.Errorf("lastfm %s returned %d (latency=%v)", method, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return fmt.Errorf("decode lastfm response: %w", err)
	}
	return nil
}

// TopArtists returns the user's most-played artists over period.
func (c *Client) TopArtists(ctx context.Context, period string, limit int) ([]TopArtist, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	valid := false
	for _, p := range ValidPeriods {
		if p == period {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("unsupported period %q", period)
	}
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{}
	params.Set("user", c.user)
	params.Set("period", period)
	params.Set("limit", strconv.Itoa(limit))
	var payload topArtistsResponse
	if err := c.call(ctx, "user.gettopartists", params, &payload); err != nil {
		return nil, err
	}
	artists := make([]TopArtist, 0, len(payload.TopArtists.Artist))
	for _, entry := range payload.TopArtists.Artist {
		if entry.Name == "" {
			continue
		}
		plays, _ := strconv.Atoi(entry.PlayCount)
		artists = append(artists, TopArtist{Name: entry.Name, PlayCount: plays})
	}
	return artists, nil
}

// ArtistTopTracks returns an artist's globally most popular track names.
func (c *Client) ArtistTopTracks(ctx context.Context, artist string, limit int) ([]string, error) {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return nil, errors.New("artist name must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("autocorrect", "1")
	params.Set("limit", strconv.Itoa(limit))
	var payload topTracksResponse
	if err := c.call(ctx, "artist.gettoptracks", params, &payload); err != nil {
		return nil, err
	}
	tracks := make([]string, 0, len(payload.TopTracks.Track))
	for _, track := range payload.TopTracks.Track {
		if track.Name != "" {
			tracks = append(tracks, track.Name)
		}
	}
	return tracks, nil
}

// LovedArtistNames returns the distinct artists behind the user's loved
// tracks, in first-seen order.
func (c *Client) LovedArtistNames(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 200
	}
	params := url.Values{}
	params.Set("user", c.user)
	params.Set("limit", strconv.Itoa(limit))
	var payload lovedTracksResponse
	if err := c.call(ctx, "user.getlovedtracks", params, &payload); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	names := make([]string, 0, len(payload.LovedTracks.Track))
	for _, track := range payload.LovedTracks.Track {
		name := track.Artist.Name
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// TestConnection verifies the API key and user are usable.
func (c *Client) TestConnection(ctx context.Context) error {
	params := url.Values{}
	params.Set("user", c.user)
	var payload map[string]any
	return c.call(ctx, "user.getinfo", params, &payload)
}
