package acquisition

import (
	"context"
	"testing"
	"time"

	"rythmx/internal/library"
	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
	"rythmx/internal/store"
	"rythmx/internal/testsupport"
)

type fakeMatcher struct {
	owned map[string]string // "artist/album" -> rating key
	calls int
	last  library.AlbumQuery
}

func (f *fakeMatcher) CheckAlbumOwned(ctx context.Context, query library.AlbumQuery) (string, error) {
	f.calls++
	f.last = query
	return f.owned[query.Artist+"/"+query.Album], nil
}

func enqueue(t *testing.T, st *store.Store, artist, album string) *store.QueueItem {
	t.Helper()
	item, created, err := st.Enqueue(context.Background(), musicapi.Release{
		Artist: artist, Title: album, Kind: musicapi.KindAlbum, Source: "itunes",
	})
	if err != nil || !created {
		t.Fatalf("Enqueue: created=%v err=%v", created, err)
	}
	return item
}

func TestCheckQueueSubmitsPending(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	matcher := &fakeMatcher{}
	worker := New(st, matcher, 0, logging.NewNop())
	ctx := context.Background()

	item := enqueue(t, st, "Artist", "Record")

	summary, err := worker.CheckQueue(ctx)
	if err != nil {
		t.Fatalf("CheckQueue: %v", err)
	}
	if summary.Submitted != 1 {
		t.Fatalf("summary = %+v, want one submission", summary)
	}
	updated, err := st.QueueItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("QueueItem: %v", err)
	}
	if updated.Status != store.StatusSubmitted || updated.SubmittedAt == nil {
		t.Fatalf("item after pass = %+v, want submitted with timestamp", updated)
	}
}

func TestCheckQueueMarksFoundWhenLibraryHasIt(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	matcher := &fakeMatcher{owned: map[string]string{"Artist/Record": "4242"}}
	worker := New(st, matcher, 0, logging.NewNop())
	ctx := context.Background()

	item := enqueue(t, st, "Artist", "Record")

	// A single pass submits the pending item and immediately re-checks it
	// against the library.
	summary, err := worker.CheckQueue(ctx)
	if err != nil {
		t.Fatalf("CheckQueue: %v", err)
	}
	if summary.Submitted != 1 || summary.Found != 1 {
		t.Fatalf("summary = %+v, want one submission and one found", summary)
	}
	updated, err := st.QueueItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("QueueItem: %v", err)
	}
	if updated.Status != store.StatusFound || updated.RatingKey != "4242" {
		t.Fatalf("item = %+v, want found with rating key", updated)
	}
}

func TestCheckQueueUsesCachedIdentityForMatching(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	matcher := &fakeMatcher{}
	worker := New(st, matcher, 0, logging.NewNop())
	ctx := context.Background()

	if err := st.UpsertIdentity(ctx, store.Identity{
		Artist:     "Artist",
		IDs:        musicapi.ArtistIDs{ITunes: "77", Spotify: "sp-77"},
		Confidence: 100,
		ResolvedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("UpsertIdentity: %v", err)
	}
	enqueue(t, st, "Artist", "Record")
	if _, err := worker.CheckQueue(ctx); err != nil {
		t.Fatalf("CheckQueue: %v", err)
	}
	if _, err := worker.CheckQueue(ctx); err != nil {
		t.Fatalf("CheckQueue: %v", err)
	}
	if matcher.last.ArtistIDs.ITunes != "77" || matcher.last.ArtistIDs.Spotify != "sp-77" {
		t.Fatalf("matcher query missing cached IDs: %+v", matcher.last)
	}
}

func TestCheckQueueTimesOutStaleSubmissions(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	matcher := &fakeMatcher{}
	worker := New(st, matcher, 30*24*time.Hour, logging.NewNop())
	ctx := context.Background()

	item := enqueue(t, st, "Artist", "Record")
	if _, err := worker.CheckQueue(ctx); err != nil {
		t.Fatalf("CheckQueue: %v", err)
	}

	worker.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	summary, err := worker.CheckQueue(ctx)
	if err != nil {
		t.Fatalf("CheckQueue: %v", err)
	}
	if summary.TimedOut != 1 {
		t.Fatalf("summary = %+v, want one timeout", summary)
	}
	updated, err := st.QueueItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("QueueItem: %v", err)
	}
	if updated.Status != store.StatusFailed || updated.FailureReason == "" {
		t.Fatalf("item = %+v, want failed with reason", updated)
	}
}

func TestCheckQueueRecheckBeatsTimeout(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	matcher := &fakeMatcher{owned: map[string]string{}}
	worker := New(st, matcher, 30*24*time.Hour, logging.NewNop())
	ctx := context.Background()

	item := enqueue(t, st, "Artist", "Record")
	if _, err := worker.CheckQueue(ctx); err != nil {
		t.Fatalf("CheckQueue: %v", err)
	}

	// Well past the timeout, but the library finally has the release: the
	// re-check must win.
	matcher.owned["Artist/Record"] = "99"
	worker.now = func() time.Time { return time.Now().Add(60 * 24 * time.Hour) }
	summary, err := worker.CheckQueue(ctx)
	if err != nil {
		t.Fatalf("CheckQueue: %v", err)
	}
	if summary.Found != 1 || summary.TimedOut != 0 {
		t.Fatalf("summary = %+v, want found without timeout", summary)
	}
	updated, err := st.QueueItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("QueueItem: %v", err)
	}
	if updated.Status != store.StatusFound {
		t.Fatalf("status = %q, want found", updated.Status)
	}
}

func TestEnqueueableRules(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	future := musicapi.Release{Artist: "A", Title: "Future", Date: "2099-01-01"}
	ok, err := Enqueueable(ctx, st, future, now)
	if err != nil || ok {
		t.Fatalf("future release enqueueable = %v, %v, want false", ok, err)
	}

	current := musicapi.Release{Artist: "A", Title: "Out Now", Date: "2026-07-01"}
	ok, err = Enqueueable(ctx, st, current, now)
	if err != nil || !ok {
		t.Fatalf("fresh release enqueueable = %v, %v, want true", ok, err)
	}

	enqueue(t, st, "A", "Out Now")
	ok, err = Enqueueable(ctx, st, current, now)
	if err != nil || ok {
		t.Fatalf("already-queued release enqueueable = %v, %v, want false", ok, err)
	}
}
