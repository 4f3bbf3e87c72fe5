// Package acquisition drives the download queue: submitting pending items,
// noticing when submitted ones show up in the library, and failing the rest
// after a timeout. Actual submission to a downloader is a stub logging
// intent; the state machine around it is complete so an integration can
// slot in without touching the queue semantics.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rythmx/internal/library"
	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
	"rythmx/internal/store"
)

// Matcher answers whether the library owns a release.
type Matcher interface {
	CheckAlbumOwned(ctx context.Context, query library.AlbumQuery) (string, error)
}

// Queue is the persistence the worker drives. *store.Store satisfies it.
type Queue interface {
	ListQueue(ctx context.Context, statuses ...store.QueueStatus) ([]*store.QueueItem, error)
	GetIdentity(ctx context.Context, artist string) (*store.Identity, error)
	MarkSubmitted(ctx context.Context, id int64) error
	MarkFound(ctx context.Context, id int64, ratingKey string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

var _ Queue = (*store.Store)(nil)

// Summary counts what one queue pass did.
type Summary struct {
	Submitted int
	Found     int
	TimedOut  int
	Errors    int
}

// Worker runs queue passes.
type Worker struct {
	queue   Queue
	matcher Matcher
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New builds a worker. timeout is how long a submitted item may wait before
// it is marked failed; zero or negative falls back to 30 days.
func New(queue Queue, matcher Matcher, timeout time.Duration, logger *slog.Logger) *Worker {
	if timeout <= 0 {
		timeout = 30 * 24 * time.Hour
	}
	return &Worker{
		queue:   queue,
		matcher: matcher,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "acquisition"),
		now:     time.Now,
	}
}

// CheckQueue runs one pass: submit every pending item, re-check every
// submitted item against the library, and time out submitted items that
// overstayed. The ownership re-check runs before the timeout check, so an
// item that finally landed is recorded found even on its last day.
func (w *Worker) CheckQueue(ctx context.Context) (Summary, error) {
	var summary Summary

	pending, err := w.queue.ListQueue(ctx, store.StatusPending)
	if err != nil {
		return summary, fmt.Errorf("list pending queue items: %w", err)
	}
	for _, item := range pending {
		if err := w.submit(ctx, item); err != nil {
			summary.Errors++
			w.logger.Warn("submission failed",
				logging.String(logging.FieldArtist, item.Artist),
				logging.String(logging.FieldAlbum, item.Album),
				logging.Error(err))
			continue
		}
		summary.Submitted++
	}

	submitted, err := w.queue.ListQueue(ctx, store.StatusSubmitted)
	if err != nil {
		return summary, fmt.Errorf("list submitted queue items: %w", err)
	}
	cutoff := w.now().Add(-w.timeout)
	for _, item := range submitted {
		ratingKey, err := w.recheck(ctx, item)
		if err != nil {
			summary.Errors++
			w.logger.Warn("ownership re-check failed",
				logging.String(logging.FieldArtist, item.Artist),
				logging.String(logging.FieldAlbum, item.Album),
				logging.Error(err))
			continue
		}
		if ratingKey != "" {
			if err := w.queue.MarkFound(ctx, item.ID, ratingKey); err != nil {
				summary.Errors++
				continue
			}
			summary.Found++
			w.logger.Info("queued release found in library",
				logging.String(logging.FieldArtist, item.Artist),
				logging.String(logging.FieldAlbum, item.Album),
				logging.String("rating_key", ratingKey))
			continue
		}
		if item.SubmittedAt != nil && item.SubmittedAt.Before(cutoff) {
			reason := fmt.Sprintf("not found within %s of submission", w.timeout)
			if err := w.queue.MarkFailed(ctx, item.ID, reason); err != nil {
				summary.Errors++
				continue
			}
			summary.TimedOut++
			w.logger.Info("queued release timed out",
				logging.String(logging.FieldArtist, item.Artist),
				logging.String(logging.FieldAlbum, item.Album))
		}
	}
	return summary, nil
}

// submit hands a pending item to the downstream downloader. There is no
// downloader wired yet, so this records intent and advances the state.
func (w *Worker) submit(ctx context.Context, item *store.QueueItem) error {
	w.logger.Info("would submit for acquisition",
		logging.String(logging.FieldArtist, item.Artist),
		logging.String(logging.FieldAlbum, item.Album),
		logging.String("kind", string(item.Kind)))
	return w.queue.MarkSubmitted(ctx, item.ID)
}

// recheck runs the ownership matcher with whatever identity material the
// cache has for the item's artist.
func (w *Worker) recheck(ctx context.Context, item *store.QueueItem) (string, error) {
	query := library.AlbumQuery{Artist: item.Artist, Album: item.Album}
	identity, err := w.queue.GetIdentity(ctx, item.Artist)
	if err == nil {
		query.ArtistIDs = identity.IDs
	} else if !errors.Is(err, store.ErrNotFound) {
		w.logger.Warn("identity lookup failed during re-check",
			logging.String(logging.FieldArtist, item.Artist), logging.Error(err))
	}
	return w.matcher.CheckAlbumOwned(ctx, query)
}

// Enqueueable reports whether a release may be queued now: not already
// active in the queue and not dated in the future.
func Enqueueable(ctx context.Context, st *store.Store, release musicapi.Release, now time.Time) (bool, error) {
	if release.FutureDated(now) {
		return false, nil
	}
	queued, err := st.IsQueued(ctx, release.Artist, release.Title)
	if err != nil {
		return false, err
	}
	return !queued, nil
}
