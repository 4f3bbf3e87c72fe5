// Package itunes implements the iTunes Search API client used for release
// discovery and artist identity candidates. The public API is unkeyed but
// harshly throttled, so every request passes through the client's limiter.
package itunes

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

// Artist is one musicArtist result from the search endpoint.
type Artist struct {
	ID   int64
	Name string
}

type lookupResult struct {
	WrapperType    string `json:"wrapperType"`
	ArtistID       int64  `json:"artistId"`
	ArtistName     string `json:"artistName"`
	CollectionID   int64  `json:"collectionId"`
	CollectionName string `json:"collectionName"`
	CollectionType string `json:"collectionType"`
	TrackName      string `json:"trackName"`
	ReleaseDate    string `json:"releaseDate"`
}

type lookupResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []lookupResult `json:"results"`
}

// Client provides access to the iTunes Search API.
type Client struct {
	baseURL    string
	country    string
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

// New creates an iTunes client pacing requests to one per minInterval.
func New(baseURL, country string, minInterval time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("itunes base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		country:    strings.TrimSpace(country),
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
		return fmt.Errorf("parse itunes url: %w", err)
	}
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
		return fmt.Errorf("itunes %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return fmt.Errorf("decode itunes response: %w", err)
	}
	return nil
}

// SearchArtists returns up to limit musicArtist matches for name, retrying
// cleanup variants of the query when the literal form finds nothing.
func (c *Client) SearchArtists(ctx context.Context, name string, limit int) ([]Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("artist name must not be empty")
	}
	if limit <= 0 {
		limit = 5
	}
	for _, variant := range textutil.SearchVariants(name) {
		params := url.Values{}
		params.Set("term", variant)
		params.Set("entity", "musicArtist")
		params.Set("limit", strconv.Itoa(limit))
		if c.country != "" {
			params.Set("country", c.country)
		}
		var payload lookupResponse
		if err := c.get(ctx, "/search", params, &payload); err != nil {
			return nil, err
		}
		if payload.ResultCount == 0 {
			continue
		}
		artists := make([]Artist, 0, len(payload.Results))
		for _, result := range payload.Results {
			if result.ArtistID == 0 {
				continue
			}
			artists = append(artists, Artist{ID: result.ArtistID, Name: result.ArtistName})
		}
		if len(artists) > 0 {
			return artists, nil
		}
	}
	return nil, nil
}

// SearchArtistID returns the best artist match for name, or zero when the
// catalog has no candidate.
func (c *Client) SearchArtistID(ctx context.Context, name string) (int64, error) {
	artists, err := c.SearchArtists(ctx, name, 1)
	if err != nil {
		return 0, err
	}
	if len(artists) == 0 {
		return 0, nil
	}
	return artists[0].ID, nil
}

// TopTracks returns up to limit track names for an artist, most popular
// first as the catalog orders them.
func (c *Client) TopTracks(ctx context.Context, artistID int64, limit int) ([]string, error) {
	if artistID == 0 {
		return nil, errors.New("artist id must be set")
	}
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("id", strconv.FormatInt(artistID, 10))
	params.Set("entity", "song")
	// The first result is the artist wrapper, not a song.
	params.Set("limit", strconv.Itoa(limit+1))
	var payload lookupResponse
	if err := c.get(ctx, "/lookup", params, &payload); err != nil {
		return nil, err
	}
	tracks := make([]string, 0, limit)
	for _, result := range payload.Results {
		if result.WrapperType != "track" || result.TrackName == "" {
			continue
		}
		tracks = append(tracks, result.TrackName)
		if len(tracks) == limit {
			break
		}
	}
	return tracks, nil
}

// RecentAlbums returns the artist's releases dated on or after since.
func (c *Client) RecentAlbums(ctx context.Context, artistID int64, since time.Time) ([]musicapi.Release, error) {
	if artistID == 0 {
		return nil, errors.New("artist id must be set")
	}
	params := url.Values{}
	params.Set("id", strconv.FormatInt(artistID, 10))
	params.Set("entity", "album")
	params.Set("limit", "200")
	var payload lookupResponse
	if err := c.get(ctx, "/lookup", params, &payload); err != nil {
		return nil, err
	}
	releases := make([]musicapi.Release, 0, len(payload.Results))
	for _, result := range payload.Results {
		if result.WrapperType != "collection" || result.CollectionName == "" {
			continue
		}
		date := normalizeDate(result.ReleaseDate)
		if date != "" && date < since.Format("2006-01-02") {
			continue
		}
		title, kind := musicapi.ClassifyTitle(result.CollectionName, musicapi.ParseKind(result.CollectionType))
		releases = append(releases, musicapi.Release{
			Artist:          result.ArtistName,
			Title:           title,
			Date:            date,
			Kind:            kind,
			Source:          "itunes",
			ProviderAlbumID: strconv.FormatInt(result.CollectionID, 10),
		})
	}
	return releases, nil
}

// iTunes reports timestamps like 2026-02-13T08:00:00Z; cache rows keep the
// date portion only.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 10 {
		return raw[:10]
	}
	return raw
}
