// Package library defines the contract a local music library backend must
// satisfy and the registry backends register themselves with. Backends are
// read-only: the daemon only ever asks what the library contains.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"rythmx/internal/config"
	"rythmx/internal/musicapi"
)

// ErrBackendNotSupported is returned when config names a backend no
// compiled-in implementation claims.
var ErrBackendNotSupported = errors.New("library backend not supported")

// Track is one owned track.
type Track struct {
	RatingKey      string
	Title          string
	TrackNumber    int
	SpotifyTrackID string
	Album          string
	AlbumYear      int
}

// SimilarArtist is one entry from the library's taste graph.
type SimilarArtist struct {
	Occurrences int
	SpotifyID   string
}

// PoolTrack is one candidate from the library's discovery pool.
type PoolTrack struct {
	TrackName      string
	Artist         string
	Album          string
	SpotifyTrackID string
	Popularity     float64
	ReleaseDate    string
	NewRelease     bool
}

// AlbumQuery carries everything known about a release when asking whether
// the library owns it. Empty fields simply skip their matching tier.
type AlbumQuery struct {
	Artist          string
	Album           string
	LibraryArtistID string
	ArtistIDs       musicapi.ArtistIDs
	ITunesAlbumID   string
	DeezerAlbumID   string
	SpotifyAlbumID  string
}

// Library is the read-only contract every backend implements.
type Library interface {
	// ArtistID returns the backend's internal artist identifier, or empty
	// when the artist is not in the library.
	ArtistID(ctx context.Context, name string) (string, error)
	// ProviderArtistIDs returns provider catalog IDs the backend recorded
	// for the artist during its own enrichment.
	ProviderArtistIDs(ctx context.Context, name string) (musicapi.ArtistIDs, error)
	// CheckAlbumOwned returns the rating key of an owned track from the
	// release, or empty when the library does not own it.
	CheckAlbumOwned(ctx context.Context, query AlbumQuery) (string, error)
	// FindTrackByName returns a track's rating key by artist and title, or
	// empty when not owned.
	FindTrackByName(ctx context.Context, artist, title string) (string, error)
	// CheckOwnedExact reports ownership by Spotify track ID.
	CheckOwnedExact(ctx context.Context, spotifyTrackID string) (bool, error)
	// CheckOwnedByDeezerID reports ownership by Deezer track ID.
	CheckOwnedByDeezerID(ctx context.Context, deezerID string) (bool, error)
	// TracksForArtist returns every owned track for an internal artist ID.
	TracksForArtist(ctx context.Context, artistID string) ([]Track, error)
	// TracksForAlbum returns the owned tracks of one album.
	TracksForAlbum(ctx context.Context, artistID, album string) ([]Track, error)
	// SimilarArtists returns the backend's taste graph keyed by artist name.
	SimilarArtists(ctx context.Context, limit int) (map[string]SimilarArtist, error)
	// DiscoveryPool returns candidate tracks the backend collected for
	// recommendation scoring.
	DiscoveryPool(ctx context.Context, limit int, newReleasesOnly bool) ([]PoolTrack, error)
	// Accessible reports whether the backing store can be reached.
	Accessible(ctx context.Context) bool
	// TrackCount returns the library's total track count.
	TrackCount(ctx context.Context) (int, error)
	Close() error
}

// Factory builds a backend from config.
type Factory func(cfg *config.Config, logger *slog.Logger) (Library, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under a tag. Backends call this from
// init, mirroring database/sql driver registration.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("library: Register with nil factory")
	}
	if _, dup := registry[name]; dup {
		panic("library: Register called twice for backend " + name)
	}
	registry[name] = factory
}

// Backends returns the registered backend tags, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the backend named by cfg.Library.Backend. Unknown tags
// return ErrBackendNotSupported so callers can tell misconfiguration from
// an inaccessible library.
func Open(cfg *config.Config, logger *slog.Logger) (Library, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Library.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrBackendNotSupported, cfg.Library.Backend, Backends())
	}
	return factory(cfg, logger)
}
