package discovery

import (
	"context"
	"strconv"
	"time"

	"rythmx/internal/musicapi"
	"rythmx/internal/musicapi/deezer"
	"rythmx/internal/musicapi/itunes"
	"rythmx/internal/musicapi/musicbrainz"
	"rythmx/internal/musicapi/spotify"
)

// Source is one release provider in the chain. Artist IDs are strings at
// this level; numeric catalogs convert at the adapter boundary.
type Source interface {
	Name() string
	ResolveArtistID(ctx context.Context, name string) (string, error)
	RecentAlbums(ctx context.Context, artistID string, since time.Time) ([]musicapi.Release, error)
}

type itunesSource struct{ client *itunes.Client }

// NewITunesSource adapts an iTunes client into the chain.
func NewITunesSource(client *itunes.Client) Source { return itunesSource{client} }

func (itunesSource) Name() string { return "itunes" }

func (s itunesSource) ResolveArtistID(ctx context.Context, name string) (string, error) {
	id, err := s.client.SearchArtistID(ctx, name)
	if err != nil || id == 0 {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (s itunesSource) RecentAlbums(ctx context.Context, artistID string, since time.Time) ([]musicapi.Release, error) {
	id, err := strconv.ParseInt(artistID, 10, 64)
	if err != nil {
		return nil, err
	}
	return s.client.RecentAlbums(ctx, id, since)
}

type deezerSource struct{ client *deezer.Client }

// NewDeezerSource adapts a Deezer client into the chain.
func NewDeezerSource(client *deezer.Client) Source { return deezerSource{client} }

func (deezerSource) Name() string { return "deezer" }

func (s deezerSource) ResolveArtistID(ctx context.Context, name string) (string, error) {
	id, err := s.client.SearchArtistID(ctx, name)
	if err != nil || id == 0 {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (s deezerSource) RecentAlbums(ctx context.Context, artistID string, since time.Time) ([]musicapi.Release, error) {
	id, err := strconv.ParseInt(artistID, 10, 64)
	if err != nil {
		return nil, err
	}
	return s.client.RecentAlbums(ctx, id, since)
}

type spotifySource struct{ client *spotify.Client }

// NewSpotifySource adapts a Spotify client into the chain.
func NewSpotifySource(client *spotify.Client) Source { return spotifySource{client} }

func (spotifySource) Name() string { return "spotify" }

func (s spotifySource) ResolveArtistID(ctx context.Context, name string) (string, error) {
	return s.client.SearchArtistID(ctx, name)
}

func (s spotifySource) RecentAlbums(ctx context.Context, artistID string, since time.Time) ([]musicapi.Release, error) {
	return s.client.RecentAlbums(ctx, artistID, since)
}

type musicbrainzSource struct{ client *musicbrainz.Client }

// NewMusicBrainzSource adapts a MusicBrainz client into the chain. The
// default chain never includes it; its public rate limit is too aggressive
// for per-artist fan-out, so it joins only by explicit configuration.
func NewMusicBrainzSource(client *musicbrainz.Client) Source { return musicbrainzSource{client} }

func (musicbrainzSource) Name() string { return "musicbrainz" }

func (s musicbrainzSource) ResolveArtistID(ctx context.Context, name string) (string, error) {
	return s.client.SearchArtistID(ctx, name)
}

func (s musicbrainzSource) RecentAlbums(ctx context.Context, artistID string, since time.Time) ([]musicapi.Release, error) {
	return s.client.RecentAlbums(ctx, artistID, since)
}
