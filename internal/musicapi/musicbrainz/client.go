// Package musicbrainz implements the MusicBrainz API client. MusicBrainz
// allows roughly one request per second per client, so the limiter here is
// not optional and the client never joins the default discovery chain; it
// participates only when configured explicitly.
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rythmx/internal/musicapi"
	"rythmx/internal/ratelimit"
)

type artistResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type artistSearchResponse struct {
	Artists []artistResult `json:"artists"`
}

type releaseGroup struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	PrimaryType      string `json:"primary-type"`
	FirstReleaseDate string `json:"first-release-date"`
}

type releaseGroupResponse struct {
	ReleaseGroups []releaseGroup `json:"release-groups"`
}

type urlLookupResponse struct {
	Relations []struct {
		Artist artistResult `json:"artist"`
	} `json:"relations"`
}

// Client provides access to the MusicBrainz API.
type Client struct {
	baseURL    string
	userAgent  string
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

// New creates a MusicBrainz client. The user agent is mandatory per the
// service's terms.
func New(baseURL, userAgent string, minInterval time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("musicbrainz base url required")
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return nil, errors.New("musicbrainz user agent required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
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
		return fmt.Errorf("parse musicbrainz url: %w", err)
	}
	params.Set("fmt", "json")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("musicbrainz %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return fmt.Errorf("decode musicbrainz response: %w", err)
	}
	return nil
}

// SearchArtistID returns the best-scored MBID for name, or empty when the
// catalog has no candidate.
func (c *Client) SearchArtistID(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("artist name must not be empty")
	}
	params := url.Values{}
	params.Set("query", fmt.Sprintf("artist:%q", name))
	params.Set("limit", "1")
	var payload artistSearchResponse
	if err := c.get(ctx, "/artist", params, &payload); err != nil {
		return "", err
	}
	if len(payload.Artists) == 0 {
		return "", nil
	}
	return payload.Artists[0].ID, nil
}

// ResolveBySpotifyURL looks up the MBID linked to a Spotify artist page.
// A known Spotify ID gives a far more reliable MBID than name search.
func (c *Client) ResolveBySpotifyURL(ctx context.Context, spotifyArtistID string) (string, error) {
	spotifyArtistID = strings.TrimSpace(spotifyArtistID)
	if spotifyArtistID == "" {
		return "", errors.New("spotify artist id must be set")
	}
	params := url.Values{}
	params.Set("resource", "https://open.spotify.com/artist/"+spotifyArtistID)
	params.Set("inc", "artist-rels")
	var payload urlLookupResponse
	if err := c.get(ctx, "/url", params, &payload); err != nil {
		return "", err
	}
	for _, relation := range payload.Relations {
		if relation.Artist.ID != "" {
			return relation.Artist.ID, nil
		}
	}
	return "", nil
}

// RecentAlbums returns the artist's release groups dated on or after since.
func (c *Client) RecentAlbums(ctx context.Context, mbid string, since time.Time) ([]musicapi.Release, error) {
	mbid = strings.TrimSpace(mbid)
	if mbid == "" {
		return nil, errors.New("artist mbid must be set")
	}
	params := url.Values{}
	params.Set("artist", mbid)
	params.Set("type", "album|ep|single")
	params.Set("limit", "100")
	var payload releaseGroupResponse
	if err := c.get(ctx, "/release-group", params, &payload); err != nil {
		return nil, err
	}
	cutoff := since.Format("2006-01-02")
	releases := make([]musicapi.Release, 0, len(payload.ReleaseGroups))
	for _, group := range payload.ReleaseGroups {
		if group.Title == "" {
			continue
		}
		if group.FirstReleaseDate != "" && group.FirstReleaseDate < cutoff {
			continue
		}
		title, kind := musicapi.ClassifyTitle(group.Title, musicapi.ParseKind(group.PrimaryType))
		releases = append(releases, musicapi.Release{
			Title:           title,
			Date:            group.FirstReleaseDate,
			Kind:            kind,
			Source:          "musicbrainz",
			ProviderAlbumID: group.ID,
		})
	}
	return releases, nil
}
