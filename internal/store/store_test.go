package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rythmx/internal/musicapi"
	"rythmx/internal/store"
	"rythmx/internal/testsupport"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return testsupport.MustOpenStore(t, cfg)
}

func TestIdentityUpsertIsAdditive(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	first := store.Identity{
		Artist:     "Caribou",
		Confidence: 92,
		Method:     "track_overlap_2",
	}
	first.IDs.ITunes = "111"
	first.IDs.Spotify = "sp-1"
	if err := st.UpsertIdentity(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// A later resolution knowing only the deezer ID must not clear the
	// itunes or spotify IDs.
	second := store.Identity{Artist: "Caribou", Confidence: 86, Method: "track_overlap_1"}
	second.IDs.Deezer = "dz-9"
	if err := st.UpsertIdentity(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	identity, err := st.GetIdentity(ctx, "Caribou")
	if err != nil {
		t.Fatalf("get identity: %v", err)
	}
	if identity.IDs.ITunes != "111" || identity.IDs.Spotify != "sp-1" {
		t.Fatalf("earlier IDs lost: %+v", identity.IDs)
	}
	if identity.IDs.Deezer != "dz-9" {
		t.Fatalf("new ID not stored: %+v", identity.IDs)
	}
	if identity.Confidence != 86 {
		t.Fatalf("confidence should take latest value, got %d", identity.Confidence)
	}
}

func TestIdentityUpsertIdempotent(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	identity := store.Identity{Artist: "Actress", Confidence: 100, Method: "track_overlap_3"}
	identity.IDs.ITunes = "42"
	for i := 0; i < 2; i++ {
		if err := st.UpsertIdentity(ctx, identity); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	got, err := st.GetIdentity(ctx, "Actress")
	if err != nil {
		t.Fatalf("get identity: %v", err)
	}
	if got.IDs.ITunes != "42" || got.Confidence != 100 {
		t.Fatalf("repeated merge changed state: %+v", got)
	}
}

func TestReleaseCacheThreeStates(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	maxAge := time.Hour

	// Never fetched: miss.
	releases, hit, err := st.GetReleases(ctx, "Kelela", maxAge)
	if err != nil {
		t.Fatalf("get (miss): %v", err)
	}
	if hit || releases != nil {
		t.Fatalf("expected miss, got hit=%v releases=%v", hit, releases)
	}

	// Fetched with no results: hit-empty via sentinel.
	if err := st.ReplaceReleases(ctx, "Kelela", nil); err != nil {
		t.Fatalf("replace empty: %v", err)
	}
	releases, hit, err = st.GetReleases(ctx, "Kelela", maxAge)
	if err != nil {
		t.Fatalf("get (sentinel): %v", err)
	}
	if !hit || len(releases) != 0 {
		t.Fatalf("expected hit-empty, got hit=%v releases=%v", hit, releases)
	}

	// Fetched with results.
	if err := st.ReplaceReleases(ctx, "Kelela", []musicapi.Release{
		{Title: "Raven", Date: "2026-02-10", Kind: musicapi.KindAlbum, Source: "spotify", ProviderAlbumID: "sp-raven"},
	}); err != nil {
		t.Fatalf("replace populated: %v", err)
	}
	releases, hit, err = st.GetReleases(ctx, "Kelela", maxAge)
	if err != nil {
		t.Fatalf("get (populated): %v", err)
	}
	if !hit || len(releases) != 1 || releases[0].Title != "Raven" {
		t.Fatalf("expected populated hit, got hit=%v releases=%+v", hit, releases)
	}
	if releases[0].Artist != "Kelela" {
		t.Fatalf("artist not restored on read: %+v", releases[0])
	}
}

func TestReleaseCacheStaleIsMiss(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	if err := st.ReplaceReleases(ctx, "Kelela", []musicapi.Release{
		{Title: "Raven", Source: "spotify"},
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	// Zero max age disables staleness; a nanosecond window forces it.
	if _, hit, err := st.GetReleases(ctx, "Kelela", time.Nanosecond); err != nil || hit {
		t.Fatalf("stale rows should read as miss, hit=%v err=%v", hit, err)
	}
	if _, hit, err := st.GetReleases(ctx, "Kelela", 0); err != nil || !hit {
		t.Fatalf("zero max age should never expire, hit=%v err=%v", hit, err)
	}
}

func TestEnqueueDedupReturnsExistingRow(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	release := musicapi.Release{Artist: "Koreless", Title: "Agor", Date: "2026-03-01", Kind: musicapi.KindAlbum, Source: "itunes"}

	item, created, err := st.Enqueue(ctx, release)
	if err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if !created || item.Status != store.StatusPending {
		t.Fatalf("first enqueue: created=%v status=%s", created, item.Status)
	}

	duplicate, created, err := st.Enqueue(ctx, release)
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if created {
		t.Fatal("duplicate enqueue reported as created")
	}
	if duplicate.ID != item.ID {
		t.Fatalf("duplicate returned new row: %d vs %d", duplicate.ID, item.ID)
	}
}

func TestIsQueuedOnlyBlocksActiveStatuses(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	release := musicapi.Release{Artist: "Koreless", Title: "Agor"}

	item, _, err := st.Enqueue(ctx, release)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	queued, err := st.IsQueued(ctx, "Koreless", "Agor")
	if err != nil || !queued {
		t.Fatalf("pending row should block: queued=%v err=%v", queued, err)
	}

	if err := st.MarkSubmitted(ctx, item.ID); err != nil {
		t.Fatalf("mark submitted: %v", err)
	}
	if queued, _ := st.IsQueued(ctx, "Koreless", "Agor"); !queued {
		t.Fatal("submitted row should block")
	}

	if err := st.MarkFound(ctx, item.ID, "rk-1"); err != nil {
		t.Fatalf("mark found: %v", err)
	}
	if queued, _ := st.IsQueued(ctx, "Koreless", "Agor"); queued {
		t.Fatal("found row should not block")
	}
}

func TestSubmittedBefore(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	item, _, err := st.Enqueue(ctx, musicapi.Release{Artist: "Laurel Halo", Title: "Atlas"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := st.MarkSubmitted(ctx, item.ID); err != nil {
		t.Fatalf("mark submitted: %v", err)
	}

	stale, err := st.SubmittedBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("submitted before (past cutoff): %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("fresh submission reported stale: %+v", stale)
	}

	stale, err = st.SubmittedBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("submitted before (future cutoff): %v", err)
	}
	if len(stale) != 1 || stale[0].ID != item.ID {
		t.Fatalf("expected one stale submission, got %+v", stale)
	}
}

func TestQueueStatistics(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	a, _, _ := st.Enqueue(ctx, musicapi.Release{Artist: "A", Title: "One"})
	b, _, _ := st.Enqueue(ctx, musicapi.Release{Artist: "B", Title: "Two"})
	_, _, _ = st.Enqueue(ctx, musicapi.Release{Artist: "C", Title: "Three"})
	_ = st.MarkSubmitted(ctx, a.ID)
	_ = st.MarkFailed(ctx, b.ID, "timeout")

	stats, err := st.QueueStatistics(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[store.StatusPending] != 1 || stats[store.StatusSubmitted] != 1 || stats[store.StatusFailed] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestSettingsOverrides(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	if got := st.SettingIntOrDefault(ctx, "min_listens", 5); got != 5 {
		t.Fatalf("default = %d, want 5", got)
	}
	if err := st.SetSetting(ctx, "min_listens", "12"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := st.SettingIntOrDefault(ctx, "min_listens", 5); got != 12 {
		t.Fatalf("override = %d, want 12", got)
	}
	if err := st.DeleteSetting(ctx, "min_listens"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetSetting(ctx, "min_listens"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPlaylistRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	playlist, err := st.UpsertPlaylist(ctx, "New Releases 2026-08", "cc", true)
	if err != nil {
		t.Fatalf("upsert playlist: %v", err)
	}
	entries := []PlaylistEntrySeed{
		{"Caribou", "Honey", "rk-1"},
		{"Kelela", "Raven", ""},
	}
	toReplace := make([]store.PlaylistEntry, len(entries))
	for i, seed := range entries {
		toReplace[i] = store.PlaylistEntry{Artist: seed.Artist, Album: seed.Album, RatingKey: seed.RatingKey}
	}
	if err := st.ReplacePlaylistEntries(ctx, playlist.ID, toReplace); err != nil {
		t.Fatalf("replace entries: %v", err)
	}

	got, err := st.PlaylistEntries(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(got) != 2 || got[0].Artist != "Caribou" || got[0].Position != 0 || got[1].Position != 1 {
		t.Fatalf("unexpected entries %+v", got)
	}

	autoSync, err := st.AutoSyncPlaylists(ctx)
	if err != nil || len(autoSync) != 1 {
		t.Fatalf("auto-sync playlists = %+v, err=%v", autoSync, err)
	}
}

// PlaylistEntrySeed keeps the fixture table readable.
type PlaylistEntrySeed struct {
	Artist    string
	Album     string
	RatingKey string
}

func TestHistoryStats(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	entries := []store.HistoryEntry{
		{CycleID: "c1", Mode: "cruise", Artist: "A", Album: "One", Outcome: store.OutcomeOwned},
		{CycleID: "c1", Mode: "cruise", Artist: "B", Album: "Two", Outcome: store.OutcomeQueued},
		{CycleID: "c1", Mode: "cruise", Artist: "C", Album: "Three", Outcome: store.OutcomeSkipped, Reason: "kind single"},
		{CycleID: "c2", Mode: "dry", Artist: "D", Album: "Four", Outcome: store.OutcomeOwned},
	}
	for _, entry := range entries {
		if err := st.AddHistory(ctx, entry); err != nil {
			t.Fatalf("add history: %v", err)
		}
	}

	stats, err := st.HistoryStats(ctx, "c1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[store.OutcomeOwned] != 1 || stats[store.OutcomeQueued] != 1 || stats[store.OutcomeSkipped] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}

	recent, err := st.RecentHistory(ctx, 2)
	if err != nil || len(recent) != 2 {
		t.Fatalf("recent history = %+v, err=%v", recent, err)
	}
	if recent[0].Artist != "D" {
		t.Fatalf("newest entry first expected, got %+v", recent[0])
	}
}

func TestParseStatus(t *testing.T) {
	if status, err := store.ParseStatus(" Pending "); err != nil || status != store.StatusPending {
		t.Fatalf("ParseStatus pending: %v %v", status, err)
	}
	if _, err := store.ParseStatus("queued"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestReset(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	_, _, _ = st.Enqueue(ctx, musicapi.Release{Artist: "A", Title: "One"})
	_ = st.SetSetting(ctx, "k", "v")
	if err := st.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	items, err := st.ListQueue(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("queue not cleared: %v err=%v", items, err)
	}
}
