package store

import (
	"fmt"
	"strings"
	"time"

	"rythmx/internal/musicapi"
)

// QueueStatus tracks an acquisition queue item through its lifecycle.
type QueueStatus string

const (
	StatusPending   QueueStatus = "pending"
	StatusSubmitted QueueStatus = "submitted"
	StatusFound     QueueStatus = "found"
	StatusFailed    QueueStatus = "failed"
	StatusSkipped   QueueStatus = "skipped"
)

var allStatuses = []QueueStatus{
	StatusPending, StatusSubmitted, StatusFound, StatusFailed, StatusSkipped,
}

var statusSet = func() map[QueueStatus]struct{} {
	set := make(map[QueueStatus]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (QueueStatus, error) {
	status := QueueStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown queue status %q", raw)
	}
	return status, nil
}

// Active reports whether the status blocks re-queueing of the same release.
func (s QueueStatus) Active() bool {
	return s == StatusPending || s == StatusSubmitted
}

// QueueItem is one acquisition queue row.
type QueueItem struct {
	ID            int64
	Artist        string
	Album         string
	ReleaseDate   string
	Kind          musicapi.Kind
	Source        string
	Status        QueueStatus
	RatingKey     string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SubmittedAt   *time.Time
}

// QueueStats counts queue items per status.
type QueueStats map[QueueStatus]int

// Identity is one artist identity cache row.
type Identity struct {
	Artist            string
	IDs               musicapi.ArtistIDs
	CatalogArtistName string
	Confidence        int
	Method            string
	ResolvedAt        time.Time
}

// Playlist is a managed playlist's metadata.
type Playlist struct {
	ID        int64
	Name      string
	Source    string
	AutoSync  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaylistEntry is one album row within a playlist.
type PlaylistEntry struct {
	Position  int
	Artist    string
	Album     string
	RatingKey string
}

// HistoryEntry records one release decision within a cycle.
type HistoryEntry struct {
	ID        int64
	CycleID   string
	Mode      string
	Artist    string
	Album     string
	Outcome   string
	Reason    string
	CreatedAt time.Time
}

// History outcomes.
const (
	OutcomeOwned   = "owned"
	OutcomeQueued  = "queued"
	OutcomeSkipped = "skipped"
)
