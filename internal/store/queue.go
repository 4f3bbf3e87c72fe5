package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rythmx/internal/musicapi"
)

const queueColumns = `id, artist_name, album_title, release_date, kind, source,
    status, rating_key, failure_reason, created_at, updated_at, submitted_at`

// Enqueue adds a release to the acquisition queue. Dedup is enforced by
// the (artist, album) unique constraint: when a row already exists in any
// status, the existing row is returned and created is false.
func (s *Store) Enqueue(ctx context.Context, release musicapi.Release) (*QueueItem, bool, error) {
	if release.Artist == "" || release.Title == "" {
		return nil, false, errors.New("queue items need artist and album")
	}
	now := timestamp(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO download_queue (
            artist_name, album_title, release_date, kind, source, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		release.Artist,
		release.Title,
		nullableString(release.Date),
		nullableString(string(release.Kind)),
		nullableString(release.Source),
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue %s/%s: %w", release.Artist, release.Title, err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("enqueue rows affected: %w", err)
	}

	item, err := s.queueItemByAlbum(ctx, release.Artist, release.Title)
	if err != nil {
		return nil, false, err
	}
	return item, inserted > 0, nil
}

// IsQueued reports whether an active (pending or submitted) queue row
// exists for the release. Terminal rows do not block re-queueing here;
// the unique constraint still returns the old row on Enqueue.
func (s *Store) IsQueued(ctx context.Context, artist, album string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM download_queue
         WHERE artist_name = ? AND album_title = ? AND status IN (?, ?)`,
		artist, album, StatusPending, StatusSubmitted).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check queue for %s/%s: %w", artist, album, err)
	}
	return count > 0, nil
}

// QueueItem returns one queue row by ID.
func (s *Store) QueueItem(ctx context.Context, id int64) (*QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+queueColumns+" FROM download_queue WHERE id = ?", id)
	return scanQueueItem(row)
}

func (s *Store) queueItemByAlbum(ctx context.Context, artist, album string) (*QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+queueColumns+" FROM download_queue WHERE artist_name = ? AND album_title = ?",
		artist, album)
	return scanQueueItem(row)
}

// ListQueue returns queue rows, optionally filtered by status, newest
// first.
func (s *Store) ListQueue(ctx context.Context, statuses ...QueueStatus) ([]*QueueItem, error) {
	query := "SELECT " + queueColumns + " FROM download_queue"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var items []*QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SubmittedBefore returns submitted rows whose submission predates cutoff.
func (s *Store) SubmittedBefore(ctx context.Context, cutoff time.Time) ([]*QueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+queueColumns+` FROM download_queue
         WHERE status = ? AND submitted_at IS NOT NULL AND submitted_at < ?
         ORDER BY submitted_at`,
		StatusSubmitted, timestamp(cutoff))
	if err != nil {
		return nil, fmt.Errorf("list stale submissions: %w", err)
	}
	defer rows.Close()

	var items []*QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkSubmitted transitions a pending row to submitted and stamps the
// submission time.
func (s *Store) MarkSubmitted(ctx context.Context, id int64) error {
	now := timestamp(time.Now())
	return s.updateStatus(ctx, id, StatusSubmitted,
		"UPDATE download_queue SET status = ?, submitted_at = ?, updated_at = ? WHERE id = ?",
		StatusSubmitted, now, now, id)
}

// MarkFound transitions a row to found, recording the library rating key
// when known.
func (s *Store) MarkFound(ctx context.Context, id int64, ratingKey string) error {
	return s.updateStatus(ctx, id, StatusFound,
		"UPDATE download_queue SET status = ?, rating_key = ?, updated_at = ? WHERE id = ?",
		StatusFound, nullableString(ratingKey), timestamp(time.Now()), id)
}

// MarkFailed transitions a row to failed with a reason.
func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	return s.updateStatus(ctx, id, StatusFailed,
		"UPDATE download_queue SET status = ?, failure_reason = ?, updated_at = ? WHERE id = ?",
		StatusFailed, nullableString(reason), timestamp(time.Now()), id)
}

// MarkSkipped transitions a row to skipped.
func (s *Store) MarkSkipped(ctx context.Context, id int64) error {
	return s.updateStatus(ctx, id, StatusSkipped,
		"UPDATE download_queue SET status = ?, updated_at = ? WHERE id = ?",
		StatusSkipped, timestamp(time.Now()), id)
}

func (s *Store) updateStatus(ctx context.Context, id int64, status QueueStatus, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark item %d %s: %w", id, status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark item %d rows affected: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// QueueStatistics counts queue rows per status.
func (s *Store) QueueStatistics(ctx context.Context) (QueueStats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(1) FROM download_queue GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(QueueStats, len(allStatuses))
	for rows.Next() {
		var (
			raw   string
			count int
		)
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, fmt.Errorf("scan queue stats: %w", err)
		}
		stats[QueueStatus(raw)] = count
	}
	return stats, rows.Err()
}

func scanQueueItem(scanner interface{ Scan(dest ...any) error }) (*QueueItem, error) {
	var (
		id           int64
		artist       string
		album        string
		releaseDate  sql.NullString
		kind         sql.NullString
		source       sql.NullString
		statusStr    string
		ratingKey    sql.NullString
		failReason   sql.NullString
		createdRaw   string
		updatedRaw   string
		submittedRaw sql.NullString
	)
	err := scanner.Scan(&id, &artist, &album, &releaseDate, &kind, &source,
		&statusStr, &ratingKey, &failReason, &createdRaw, &updatedRaw, &submittedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan queue item: %w", err)
	}

	item := &QueueItem{
		ID:            id,
		Artist:        artist,
		Album:         album,
		ReleaseDate:   releaseDate.String,
		Kind:          musicapi.Kind(kind.String),
		Source:        source.String,
		Status:        QueueStatus(statusStr),
		RatingKey:     ratingKey.String,
		FailureReason: failReason.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	if submittedRaw.Valid {
		if submitted, err := parseTimeString(submittedRaw.String); err == nil {
			item.SubmittedAt = &submitted
		}
	}
	return item, nil
}
