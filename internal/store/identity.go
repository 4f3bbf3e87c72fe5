package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertIdentity merges an identity resolution into the cache. Provider ID
// columns are additive: an empty field in id never clears a value an
// earlier resolution recorded. Confidence, method, and the resolution
// timestamp always take the new values.
func (s *Store) UpsertIdentity(ctx context.Context, identity Identity) error {
	if identity.Artist == "" {
		return errors.New("identity artist must be set")
	}
	resolvedAt := identity.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artist_identity (
            artist_name, itunes_artist_id, deezer_artist_id, spotify_artist_id,
            musicbrainz_artist_id, catalog_artist_name, confidence, method, resolved_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(artist_name) DO UPDATE SET
            itunes_artist_id = COALESCE(excluded.itunes_artist_id, artist_identity.itunes_artist_id),
            deezer_artist_id = COALESCE(excluded.deezer_artist_id, artist_identity.deezer_artist_id),
            spotify_artist_id = COALESCE(excluded.spotify_artist_id, artist_identity.spotify_artist_id),
            musicbrainz_artist_id = COALESCE(excluded.musicbrainz_artist_id, artist_identity.musicbrainz_artist_id),
            catalog_artist_name = COALESCE(excluded.catalog_artist_name, artist_identity.catalog_artist_name),
            confidence = excluded.confidence,
            method = COALESCE(excluded.method, artist_identity.method),
            resolved_at = excluded.resolved_at`,
		identity.Artist,
		nullableString(identity.IDs.ITunes),
		nullableString(identity.IDs.Deezer),
		nullableString(identity.IDs.Spotify),
		nullableString(identity.IDs.MusicBrainz),
		nullableString(identity.CatalogArtistName),
		identity.Confidence,
		nullableString(identity.Method),
		timestamp(resolvedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert identity %s: %w", identity.Artist, err)
	}
	return nil
}

// GetIdentity returns the cached identity for artist, or ErrNotFound.
func (s *Store) GetIdentity(ctx context.Context, artist string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT artist_name, itunes_artist_id, deezer_artist_id, spotify_artist_id,
                musicbrainz_artist_id, catalog_artist_name, confidence, method, resolved_at
         FROM artist_identity WHERE artist_name = ?`, artist)
	return scanIdentity(row)
}

func scanIdentity(scanner interface{ Scan(dest ...any) error }) (*Identity, error) {
	var (
		name        string
		itunesID    sql.NullString
		deezerID    sql.NullString
		spotifyID   sql.NullString
		mbID        sql.NullString
		catalogName sql.NullString
		confidence  int
		method      sql.NullString
		resolvedRaw string
	)
	err := scanner.Scan(&name, &itunesID, &deezerID, &spotifyID, &mbID, &catalogName, &confidence, &method, &resolvedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	identity := &Identity{
		Artist:            name,
		CatalogArtistName: catalogName.String,
		Confidence:        confidence,
		Method:            method.String,
	}
	identity.IDs.ITunes = itunesID.String
	identity.IDs.Deezer = deezerID.String
	identity.IDs.Spotify = spotifyID.String
	identity.IDs.MusicBrainz = mbID.String
	if resolved, err := parseTimeString(resolvedRaw); err == nil {
		identity.ResolvedAt = resolved
	}
	return identity, nil
}
