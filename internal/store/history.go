package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AddHistory records one release decision for a cycle.
func (s *Store) AddHistory(ctx context.Context, entry HistoryEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (cycle_id, mode, artist_name, album_title, outcome, reason, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.CycleID, entry.Mode, entry.Artist, entry.Album,
		entry.Outcome, nullableString(entry.Reason), timestamp(createdAt))
	if err != nil {
		return fmt.Errorf("add history for %s/%s: %w", entry.Artist, entry.Album, err)
	}
	return nil
}

// RecentHistory returns the latest history entries, newest first.
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cycle_id, mode, artist_name, album_title, outcome, reason, created_at
         FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry      HistoryEntry
			reason     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.CycleID, &entry.Mode, &entry.Artist,
			&entry.Album, &entry.Outcome, &reason, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.Reason = reason.String
		if created, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// HistoryStats counts history outcomes for one cycle.
func (s *Store) HistoryStats(ctx context.Context, cycleID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT outcome, COUNT(1) FROM history WHERE cycle_id = ? GROUP BY outcome", cycleID)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan history stats: %w", err)
		}
		stats[outcome] = count
	}
	return stats, rows.Err()
}
