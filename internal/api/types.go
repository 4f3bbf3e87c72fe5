// Package api holds the JSON shapes exchanged between the daemon's control
// server and the CLI client. Both sides import this package so the wire
// contract lives in one place.
package api

import (
	"time"

	"rythmx/internal/store"
)

// DaemonStatus is the GET /api/status payload.
type DaemonStatus struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	Version      string          `json:"version,omitempty"`
	StorePath    string          `json:"store_path,omitempty"`
	LockFilePath string          `json:"lock_file_path,omitempty"`
	Scheduler    SchedulerStatus `json:"scheduler"`
	Library      LibraryStatus   `json:"library"`
	Queue        map[string]int  `json:"queue"`
}

// SchedulerStatus mirrors the scheduler's externally visible state.
type SchedulerStatus struct {
	Running    bool         `json:"running"`
	Enabled    bool         `json:"enabled"`
	Mode       string       `json:"mode"`
	CycleHours int          `json:"cycle_hours"`
	LastRun    *time.Time   `json:"last_run,omitempty"`
	LastResult *CycleResult `json:"last_result,omitempty"`
}

// CycleResult summarizes one discovery cycle.
type CycleResult struct {
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	Message          string `json:"message,omitempty"`
	CycleID          string `json:"cycle_id,omitempty"`
	Mode             string `json:"mode,omitempty"`
	ArtistsQualified int    `json:"artists_qualified"`
	ReleasesFound    int    `json:"releases_found"`
	Owned            int    `json:"owned"`
	Unowned          int    `json:"unowned"`
	Queued           int    `json:"queued"`
	PlaylistTracks   int    `json:"playlist_tracks"`
	PlaylistName     string `json:"playlist_name,omitempty"`
	PushedPlaylistID string `json:"pushed_playlist_id,omitempty"`
	Provider         string `json:"provider,omitempty"`
}

// LibraryStatus reports library backend health.
type LibraryStatus struct {
	Backend    string `json:"backend"`
	Accessible bool   `json:"accessible"`
	TrackCount int    `json:"track_count"`
}

// CycleTriggerResponse is the POST /api/cycle payload. The trigger is
// fire-and-forget; callers poll status for the outcome.
type CycleTriggerResponse struct {
	Triggered bool   `json:"triggered"`
	Reason    string `json:"reason,omitempty"`
	Mode      string `json:"mode"`
}

// QueueItem is one acquisition queue row on the wire.
type QueueItem struct {
	ID            int64      `json:"id"`
	Artist        string     `json:"artist"`
	Album         string     `json:"album"`
	ReleaseDate   string     `json:"release_date,omitempty"`
	Kind          string     `json:"kind"`
	Source        string     `json:"source,omitempty"`
	Status        string     `json:"status"`
	RatingKey     string     `json:"rating_key,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
}

// QueueListResponse is the GET /api/queue payload.
type QueueListResponse struct {
	Items []QueueItem    `json:"items"`
	Stats map[string]int `json:"stats,omitempty"`
}

// EnqueueRequest is the POST /api/queue body for manual enqueue.
type EnqueueRequest struct {
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Date   string `json:"date,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// EnqueueResponse reports the manual enqueue outcome. Created is false when
// an active item for the same release already existed.
type EnqueueResponse struct {
	Item    QueueItem `json:"item"`
	Created bool      `json:"created"`
}

// QueueCheckResponse is the POST /api/queue/check payload.
type QueueCheckResponse struct {
	Submitted int `json:"submitted"`
	Found     int `json:"found"`
	TimedOut  int `json:"timed_out"`
	Errors    int `json:"errors"`
}

// CacheClearResponse is the POST /api/cache/clear payload.
type CacheClearResponse struct {
	Cleared bool   `json:"cleared"`
	Artist  string `json:"artist,omitempty"`
}

// IdentityCandidate is one catalog match considered during resolution.
type IdentityCandidate struct {
	Name    string `json:"name"`
	ID      int64  `json:"id"`
	Score   int    `json:"score"`
	Overlap int    `json:"overlap"`
}

// IdentityResolution is the POST /api/identity/resolve payload.
type IdentityResolution struct {
	Artist            string              `json:"artist"`
	CatalogArtistID   string              `json:"catalog_artist_id,omitempty"`
	CatalogArtistName string              `json:"catalog_artist_name,omitempty"`
	Confidence        int                 `json:"confidence"`
	Method            string              `json:"method"`
	Reasons           []string            `json:"reasons,omitempty"`
	FromCache         bool                `json:"from_cache"`
	Candidates        []IdentityCandidate `json:"candidates,omitempty"`
}

// DiscoveryCandidate is one scored recommendation from the library's
// discovery pool.
type DiscoveryCandidate struct {
	Track          string  `json:"track"`
	Artist         string  `json:"artist"`
	Album          string  `json:"album,omitempty"`
	SpotifyTrackID string  `json:"spotify_track_id,omitempty"`
	ReleaseDate    string  `json:"release_date,omitempty"`
	NewRelease     bool    `json:"new_release"`
	Popularity     float64 `json:"popularity"`
	Score          float64 `json:"score"`
	Owned          bool    `json:"owned"`
}

// DiscoveryResponse is the GET /api/discovery payload.
type DiscoveryResponse struct {
	Candidates []DiscoveryCandidate `json:"candidates"`
}

// HistoryEntry is one recorded cycle outcome on the wire.
type HistoryEntry struct {
	CycleID   string    `json:"cycle_id"`
	Mode      string    `json:"mode"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is the GET /api/history payload.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// ErrorResponse is the body of any non-2xx control API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromQueueItem converts a store row to its wire shape.
func FromQueueItem(item *store.QueueItem) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	return QueueItem{
		ID:            item.ID,
		Artist:        item.Artist,
		Album:         item.Album,
		ReleaseDate:   item.ReleaseDate,
		Kind:          string(item.Kind),
		Source:        item.Source,
		Status:        string(item.Status),
		RatingKey:     item.RatingKey,
		FailureReason: item.FailureReason,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
		SubmittedAt:   item.SubmittedAt,
	}
}

// FromHistoryEntry converts a store history row to its wire shape.
func FromHistoryEntry(entry store.HistoryEntry) HistoryEntry {
	return HistoryEntry{
		CycleID:   entry.CycleID,
		Mode:      entry.Mode,
		Artist:    entry.Artist,
		Album:     entry.Album,
		Outcome:   entry.Outcome,
		Reason:    entry.Reason,
		CreatedAt: entry.CreatedAt,
	}
}
