package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertPlaylist creates or updates a playlist's metadata and returns its
// row.
func (s *Store) UpsertPlaylist(ctx context.Context, name, source string, autoSync bool) (*Playlist, error) {
	if name == "" {
		return nil, errors.New("playlist name must be set")
	}
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playlists (name, source, auto_sync, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET
            source = excluded.source,
            auto_sync = excluded.auto_sync,
            updated_at = excluded.updated_at`,
		name, source, boolToInt(autoSync), now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert playlist %s: %w", name, err)
	}
	return s.PlaylistByName(ctx, name)
}

// PlaylistByName returns one playlist, or ErrNotFound.
func (s *Store) PlaylistByName(ctx context.Context, name string) (*Playlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, source, auto_sync, created_at, updated_at
         FROM playlists WHERE name = ?`, name)
	return scanPlaylist(row)
}

// ListPlaylists returns all managed playlists, newest first.
func (s *Store) ListPlaylists(ctx context.Context) ([]*Playlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, auto_sync, created_at, updated_at
         FROM playlists ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

// AutoSyncPlaylists returns playlists marked for rebuild each cycle.
func (s *Store) AutoSyncPlaylists(ctx context.Context) ([]*Playlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, auto_sync, created_at, updated_at
         FROM playlists WHERE auto_sync = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list auto-sync playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

// ReplacePlaylistEntries swaps a playlist's contents atomically.
func (s *Store) ReplacePlaylistEntries(ctx context.Context, playlistID int64, entries []PlaylistEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin playlist tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_entries WHERE playlist_id = ?", playlistID); err != nil {
		return fmt.Errorf("clear playlist %d: %w", playlistID, err)
	}
	for i, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playlist_entries (playlist_id, position, artist_name, album_title, rating_key)
             VALUES (?, ?, ?, ?, ?)`,
			playlistID, i, entry.Artist, entry.Album, nullableString(entry.RatingKey)); err != nil {
			return fmt.Errorf("insert playlist entry: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE playlists SET updated_at = ? WHERE id = ?", timestamp(time.Now()), playlistID); err != nil {
		return fmt.Errorf("touch playlist %d: %w", playlistID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit playlist entries: %w", err)
	}
	return nil
}

// PlaylistEntries returns a playlist's contents in position order.
func (s *Store) PlaylistEntries(ctx context.Context, playlistID int64) ([]PlaylistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, artist_name, album_title, rating_key
         FROM playlist_entries WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist entries: %w", err)
	}
	defer rows.Close()

	var entries []PlaylistEntry
	for rows.Next() {
		var (
			entry     PlaylistEntry
			ratingKey sql.NullString
		)
		if err := rows.Scan(&entry.Position, &entry.Artist, &entry.Album, &ratingKey); err != nil {
			return nil, fmt.Errorf("scan playlist entry: %w", err)
		}
		entry.RatingKey = ratingKey.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanPlaylist(scanner interface{ Scan(dest ...any) error }) (*Playlist, error) {
	var (
		playlist   Playlist
		autoSync   int
		createdRaw string
		updatedRaw string
	)
	err := scanner.Scan(&playlist.ID, &playlist.Name, &playlist.Source, &autoSync, &createdRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan playlist: %w", err)
	}
	playlist.AutoSync = autoSync != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		playlist.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		playlist.UpdatedAt = updated
	}
	return &playlist, nil
}
