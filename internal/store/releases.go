package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rythmx/internal/musicapi"
)

// sentinelSource marks a cache row recording that a fetch ran and found
// nothing. It distinguishes "provider had no releases" from "never asked".
const sentinelSource = "sentinel"

// ReplaceReleases replaces the cached releases for artist with a fresh
// fetch result. An empty result writes a sentinel row so the next read is
// a hit-empty rather than a miss.
func (s *Store) ReplaceReleases(ctx context.Context, artist string, releases []musicapi.Release) error {
	if artist == "" {
		return errors.New("artist must be set")
	}
	now := timestamp(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release cache tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM release_cache WHERE artist_name = ?", artist); err != nil {
		return fmt.Errorf("clear release cache for %s: %w", artist, err)
	}

	if len(releases) == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO release_cache (artist_name, source, album_title, fetched_at) VALUES (?, ?, '', ?)`,
			artist, sentinelSource, now); err != nil {
			return fmt.Errorf("write sentinel for %s: %w", artist, err)
		}
	}
	for _, release := range releases {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO release_cache (
                artist_name, source, album_title, release_date, kind, provider_album_id, fetched_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			artist,
			release.Source,
			release.Title,
			nullableString(release.Date),
			nullableString(string(release.Kind)),
			nullableString(release.ProviderAlbumID),
			now,
		); err != nil {
			return fmt.Errorf("cache release %s/%s: %w", artist, release.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit release cache: %w", err)
	}
	return nil
}

// GetReleases reads the cached releases for artist. The second return
// distinguishes the three cache states: (nil, false) means never fetched or
// stale, (empty, true) means a fetch ran and found nothing, and a non-empty
// slice with true is a populated hit.
func (s *Store) GetReleases(ctx context.Context, artist string, maxAge time.Duration) ([]musicapi.Release, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, album_title, release_date, kind, provider_album_id, fetched_at
         FROM release_cache WHERE artist_name = ? ORDER BY release_date DESC, id`, artist)
	if err != nil {
		return nil, false, fmt.Errorf("query release cache for %s: %w", artist, err)
	}
	defer rows.Close()

	var (
		releases  []musicapi.Release
		fetchedAt time.Time
		found     bool
	)
	for rows.Next() {
		var (
			source     string
			title      string
			date       sql.NullString
			kind       sql.NullString
			providerID sql.NullString
			fetchedRaw string
		)
		if err := rows.Scan(&source, &title, &date, &kind, &providerID, &fetchedRaw); err != nil {
			return nil, false, fmt.Errorf("scan release cache row: %w", err)
		}
		found = true
		if ts, err := parseTimeString(fetchedRaw); err == nil && ts.After(fetchedAt) {
			fetchedAt = ts
		}
		if source == sentinelSource {
			continue
		}
		releases = append(releases, musicapi.Release{
			Artist:          artist,
			Title:           title,
			Date:            date.String,
			Kind:            musicapi.Kind(kind.String),
			Source:          source,
			ProviderAlbumID: providerID.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate release cache: %w", err)
	}

	if !found {
		return nil, false, nil
	}
	if maxAge > 0 && time.Since(fetchedAt) > maxAge {
		return nil, false, nil
	}
	if releases == nil {
		releases = []musicapi.Release{}
	}
	return releases, true, nil
}

// ClearReleases drops the cache rows for one artist.
func (s *Store) ClearReleases(ctx context.Context, artist string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM release_cache WHERE artist_name = ?", artist); err != nil {
		return fmt.Errorf("clear release cache for %s: %w", artist, err)
	}
	return nil
}

// ClearAllReleases drops the whole release cache, forcing refetches on the
// next cycle.
func (s *Store) ClearAllReleases(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM release_cache"); err != nil {
		return fmt.Errorf("clear release cache: %w", err)
	}
	return nil
}

// ReleaseCacheCount returns the number of cached release rows, sentinels
// included.
func (s *Store) ReleaseCacheCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM release_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("count release cache: %w", err)
	}
	return count, nil
}
