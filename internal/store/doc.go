// Package store manages the daemon's own SQLite database: runtime settings,
// the artist identity cache, the release cache with its sentinel rows, the
// acquisition queue, playlists, and per-cycle history. All timestamps are
// stored as RFC 3339 strings in UTC.
package store
