// Package soulsync reads a SoulSync library database. The database is
// owned by another application, so it is opened read-only and immutable;
// nothing here ever writes to it.
package soulsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"rythmx/internal/config"
	"rythmx/internal/library"
	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
	"rythmx/internal/textutil"
)

func init() {
	library.Register("soulsync", func(cfg *config.Config, logger *slog.Logger) (library.Library, error) {
		return Open(cfg.Library.DatabasePath, logger)
	})
}

var _ library.Library = (*Backend)(nil)

// Backend implements library.Library over a SoulSync sqlite database.
type Backend struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens the SoulSync database at path read-only.
func Open(path string, logger *slog.Logger) (*Backend, error) {
	if path == "" {
		return nil, errors.New("soulsync: database path is empty")
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&immutable=1", path))
	if err != nil {
		return nil, fmt.Errorf("open soulsync database: %w", err)
	}
	return &Backend{
		db:     db,
		path:   path,
		logger: logging.NewComponentLogger(logger, "soulsync"),
	}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

// Accessible reports whether the database file can be queried.
func (b *Backend) Accessible(ctx context.Context) bool {
	var one int
	if err := b.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		b.logger.Warn("library database not accessible",
			logging.String("path", b.path), logging.Error(err))
		return false
	}
	return true
}

func (b *Backend) TrackCount(ctx context.Context) (int, error) {
	var count int
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return count, nil
}

// ArtistID resolves an artist name to the library's internal artist ID.
// Exact case-insensitive match first, then a normalized scan that tolerates
// punctuation and article differences.
func (b *Backend) ArtistID(ctx context.Context, name string) (string, error) {
	var id int64
	err := b.db.QueryRowContext(ctx,
		"SELECT id FROM artists WHERE lower(name) = lower(?)", name).Scan(&id)
	if err == nil {
		return strconv.FormatInt(id, 10), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup artist %q: %w", name, err)
	}

	want := textutil.Normalize(name)
	if want == "" {
		return "", nil
	}
	rows, err := b.db.QueryContext(ctx, "SELECT id, name FROM artists")
	if err != nil {
		return "", fmt.Errorf("scan artists: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var candidate string
		if err := rows.Scan(&id, &candidate); err != nil {
			return "", fmt.Errorf("scan artist row: %w", err)
		}
		if textutil.Normalize(candidate) == want {
			return strconv.FormatInt(id, 10), nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("scan artists: %w", err)
	}
	return "", nil
}

// ProviderArtistIDs collects catalog IDs SoulSync recorded for the artist.
// The Spotify ID may live in the similar-artists or discovery tables before
// it reaches the artists table, so those are consulted in that order.
func (b *Backend) ProviderArtistIDs(ctx context.Context, name string) (musicapi.ArtistIDs, error) {
	var ids musicapi.ArtistIDs

	var itunes, spotify, deezer sql.NullString
	err := b.db.QueryRowContext(ctx,
		`SELECT itunes_artist_id, spotify_artist_id, deezer_id
		 FROM artists WHERE lower(name) = lower(?)`, name).
		Scan(&itunes, &spotify, &deezer)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ids, fmt.Errorf("lookup artist ids for %q: %w", name, err)
	}
	if err == nil {
		ids.ITunes = itunes.String
		ids.Spotify = spotify.String
		ids.Deezer = deezer.String
	}

	if ids.Spotify == "" {
		var sid sql.NullString
		err := b.db.QueryRowContext(ctx,
			`SELECT similar_artist_spotify_id FROM similar_artists
			 WHERE lower(similar_artist_name) = lower(?)
			   AND similar_artist_spotify_id IS NOT NULL LIMIT 1`, name).Scan(&sid)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return ids, fmt.Errorf("lookup similar artist %q: %w", name, err)
		}
		ids.Spotify = sid.String
	}
	if ids.Spotify == "" {
		var sid sql.NullString
		err := b.db.QueryRowContext(ctx,
			`SELECT spotify_artist_id FROM discovery_pool
			 WHERE lower(artist_name) = lower(?)
			   AND spotify_artist_id IS NOT NULL LIMIT 1`, name).Scan(&sid)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return ids, fmt.Errorf("lookup discovery pool %q: %w", name, err)
		}
		ids.Spotify = sid.String
	}
	return ids, nil
}

// CheckAlbumOwned walks the ownership tiers from most to least precise and
// returns the rating key of the first matching track. Provider album IDs
// beat provider artist IDs, which beat plain text matching, so a rename or
// a shared artist name cannot produce a false positive ahead of an ID hit.
func (b *Backend) CheckAlbumOwned(ctx context.Context, q library.AlbumQuery) (string, error) {
	type tier struct {
		name  string
		query string
		args  []any
	}
	var tiers []tier

	if q.LibraryArtistID != "" && q.Album != "" {
		tiers = append(tiers, tier{"internal_id", `
			SELECT t.id FROM tracks t
			JOIN albums al ON t.album_id = al.id
			WHERE al.artist_id = ? AND lower(al.title) = lower(?) LIMIT 1`,
			[]any{q.LibraryArtistID, q.Album}})
	}
	if q.ITunesAlbumID != "" {
		tiers = append(tiers, tier{"itunes_album", `
			SELECT t.id FROM tracks t
			JOIN albums al ON t.album_id = al.id
			WHERE al.itunes_album_id = ? LIMIT 1`,
			[]any{q.ITunesAlbumID}})
	}
	if q.DeezerAlbumID != "" {
		tiers = append(tiers, tier{"deezer_album", `
			SELECT t.id FROM tracks t
			JOIN albums al ON t.album_id = al.id
			WHERE al.deezer_id = ? LIMIT 1`,
			[]any{q.DeezerAlbumID}})
	}
	if q.SpotifyAlbumID != "" {
		tiers = append(tiers, tier{"spotify_album", `
			SELECT t.id FROM tracks t
			JOIN albums al ON t.album_id = al.id
			WHERE al.spotify_album_id = ? LIMIT 1`,
			[]any{q.SpotifyAlbumID}})
	}
	if q.ArtistIDs.ITunes != "" && q.Album != "" {
		tiers = append(tiers, tier{"itunes_artist", `
			SELECT t.id FROM tracks t
			JOIN albums al ON t.album_id = al.id
			JOIN artists a ON al.artist_id = a.id
			WHERE a.itunes_artist_id = ? AND lower(al.title) = lower(?) LIMIT 1`,
			[]any{q.ArtistIDs.ITunes, q.Album}})
	}
	if q.ArtistIDs.Spotify != "" && q.Album != "" {
		tiers = append(tiers, tier{"spotify_artist", `
			SELECT t.id FROM tracks t
			JOIN albums al ON t.album_id = al.id
			JOIN artists a ON al.artist_id = a.id
			WHERE a.spotify_artist_id = ? AND lower(al.title) = lower(?) LIMIT 1`,
			[]any{q.ArtistIDs.Spotify, q.Album}})
	}
	if q.Artist != "" && q.Album != "" {
		tiers = append(tiers, tier{"text", `
			SELECT t.id FROM tracks t
			JOIN albums al ON t.album_id = al.id
			JOIN artists a ON al.artist_id = a.id
			WHERE lower(a.name) = lower(?) AND lower(al.title) = lower(?) LIMIT 1`,
			[]any{q.Artist, q.Album}})
	}

	for _, t := range tiers {
		var id int64
		err := b.db.QueryRowContext(ctx, t.query, t.args...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("ownership tier %s: %w", t.name, err)
		}
		b.logger.Debug("album owned",
			logging.String(logging.FieldArtist, q.Artist),
			logging.String(logging.FieldAlbum, q.Album),
			logging.String("tier", t.name))
		return strconv.FormatInt(id, 10), nil
	}
	return "", nil
}

// FindTrackByName matches a track by artist and title, exact first and
// normalized as a fallback.
func (b *Backend) FindTrackByName(ctx context.Context, artist, title string) (string, error) {
	var id int64
	err := b.db.QueryRowContext(ctx, `
		SELECT t.id FROM tracks t
		JOIN artists a ON t.artist_id = a.id
		WHERE lower(a.name) = lower(?) AND lower(t.title) = lower(?) LIMIT 1`,
		artist, title).Scan(&id)
	if err == nil {
		return strconv.FormatInt(id, 10), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup track %q by %q: %w", title, artist, err)
	}

	wantArtist := textutil.Normalize(artist)
	wantTitle := textutil.NormalizeTitle(title)
	if wantArtist == "" || wantTitle == "" {
		return "", nil
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT t.id, a.name, t.title FROM tracks t
		JOIN artists a ON t.artist_id = a.id
		WHERE lower(a.name) LIKE lower(?)`, "%"+firstWord(artist)+"%")
	if err != nil {
		return "", fmt.Errorf("scan tracks for %q: %w", artist, err)
	}
	defer rows.Close()
	for rows.Next() {
		var candidateArtist, candidateTitle string
		if err := rows.Scan(&id, &candidateArtist, &candidateTitle); err != nil {
			return "", fmt.Errorf("scan track row: %w", err)
		}
		if textutil.Normalize(candidateArtist) == wantArtist &&
			textutil.NormalizeTitle(candidateTitle) == wantTitle {
			return strconv.FormatInt(id, 10), nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("scan tracks: %w", err)
	}
	return "", nil
}

// CheckOwnedExact reports ownership by Spotify track ID.
func (b *Backend) CheckOwnedExact(ctx context.Context, spotifyTrackID string) (bool, error) {
	if spotifyTrackID == "" {
		return false, nil
	}
	var one int
	err := b.db.QueryRowContext(ctx,
		"SELECT 1 FROM tracks WHERE spotify_track_id = ? LIMIT 1", spotifyTrackID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup spotify track %s: %w", spotifyTrackID, err)
	}
	return true, nil
}

// CheckOwnedByDeezerID reports ownership by Deezer track ID.
func (b *Backend) CheckOwnedByDeezerID(ctx context.Context, deezerID string) (bool, error) {
	if deezerID == "" {
		return false, nil
	}
	var one int
	err := b.db.QueryRowContext(ctx,
		"SELECT 1 FROM tracks WHERE deezer_id = ? LIMIT 1", deezerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup deezer track %s: %w", deezerID, err)
	}
	return true, nil
}

func (b *Backend) TracksForArtist(ctx context.Context, artistID string) ([]library.Track, error) {
	return b.queryTracks(ctx, `
		SELECT t.id, t.title, t.track_number, t.spotify_track_id,
		       al.title, al.year
		FROM tracks t
		JOIN albums al ON t.album_id = al.id
		WHERE t.artist_id = ?
		ORDER BY al.year DESC, al.title, t.track_number`, artistID)
}

func (b *Backend) TracksForAlbum(ctx context.Context, artistID, album string) ([]library.Track, error) {
	return b.queryTracks(ctx, `
		SELECT t.id, t.title, t.track_number, t.spotify_track_id,
		       al.title, al.year
		FROM tracks t
		JOIN albums al ON t.album_id = al.id
		WHERE t.artist_id = ? AND lower(al.title) = lower(?)
		ORDER BY t.track_number`, artistID, album)
}

func (b *Backend) queryTracks(ctx context.Context, query string, args ...any) ([]library.Track, error) {
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()
	var tracks []library.Track
	for rows.Next() {
		var (
			id          int64
			track       library.Track
			trackNumber sql.NullInt64
			spotifyID   sql.NullString
			albumYear   sql.NullInt64
		)
		if err := rows.Scan(&id, &track.Title, &trackNumber, &spotifyID,
			&track.Album, &albumYear); err != nil {
			return nil, fmt.Errorf("scan track row: %w", err)
		}
		track.RatingKey = strconv.FormatInt(id, 10)
		track.TrackNumber = int(trackNumber.Int64)
		track.SpotifyTrackID = spotifyID.String
		track.AlbumYear = int(albumYear.Int64)
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan tracks: %w", err)
	}
	return tracks, nil
}

// SimilarArtists returns the taste graph SoulSync built, most frequently
// co-listed artists first.
func (b *Backend) SimilarArtists(ctx context.Context, limit int) (map[string]library.SimilarArtist, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT similar_artist_name, occurrence_count, similar_artist_spotify_id
		FROM similar_artists
		ORDER BY occurrence_count DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar artists: %w", err)
	}
	defer rows.Close()
	out := make(map[string]library.SimilarArtist)
	for rows.Next() {
		var (
			name      string
			count     int
			spotifyID sql.NullString
		)
		if err := rows.Scan(&name, &count, &spotifyID); err != nil {
			return nil, fmt.Errorf("scan similar artist row: %w", err)
		}
		out[name] = library.SimilarArtist{Occurrences: count, SpotifyID: spotifyID.String}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan similar artists: %w", err)
	}
	return out, nil
}

// DiscoveryPool returns candidate tracks SoulSync collected, most popular
// first. When newReleasesOnly is set only tracks released in the last 90
// days are returned.
func (b *Backend) DiscoveryPool(ctx context.Context, limit int, newReleasesOnly bool) ([]library.PoolTrack, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT track_name, artist_name, album_name, spotify_track_id, popularity, release_date
		FROM discovery_pool`
	args := []any{}
	if newReleasesOnly {
		cutoff := time.Now().UTC().AddDate(0, 0, -90).Format("2006-01-02")
		query += " WHERE release_date >= ?"
		args = append(args, cutoff)
	}
	query += " ORDER BY popularity DESC LIMIT ?"
	args = append(args, limit)

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query discovery pool: %w", err)
	}
	defer rows.Close()
	var out []library.PoolTrack
	for rows.Next() {
		var (
			track      library.PoolTrack
			album      sql.NullString
			spotifyID  sql.NullString
			popularity sql.NullFloat64
			released   sql.NullString
		)
		if err := rows.Scan(&track.TrackName, &track.Artist, &album,
			&spotifyID, &popularity, &released); err != nil {
			return nil, fmt.Errorf("scan discovery pool row: %w", err)
		}
		track.Album = album.String
		track.SpotifyTrackID = spotifyID.String
		track.Popularity = popularity.Float64
		track.ReleaseDate = released.String
		track.NewRelease = newReleasesOnly
		out = append(out, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan discovery pool: %w", err)
	}
	return out, nil
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' {
			return s[:i]
		}
	}
	return s
}
