package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rythmx/internal/identity"
	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
	"rythmx/internal/musicapi/itunes"
	"rythmx/internal/store"
	"rythmx/internal/testsupport"
)

type fakeTaste struct {
	titles []string
	err    error
	calls  int
}

func (f *fakeTaste) ArtistTopTracks(ctx context.Context, artist string, limit int) ([]string, error) {
	f.calls++
	return f.titles, f.err
}

type fakeCatalog struct {
	artists      []itunes.Artist
	topTracks    map[int64][]string
	searchCalls  int
	lookupCalls  int
	searchErr    error
}

func (f *fakeCatalog) SearchArtists(ctx context.Context, name string, limit int) ([]itunes.Artist, error) {
	f.searchCalls++
	return f.artists, f.searchErr
}

func (f *fakeCatalog) TopTracks(ctx context.Context, artistID int64, limit int) ([]string, error) {
	f.lookupCalls++
	return f.topTracks[artistID], nil
}

func newResolver(t *testing.T, taste *fakeTaste, catalog *fakeCatalog) (*identity.Resolver, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	resolver := identity.NewResolver(taste, catalog, st, identity.Options{}, logging.NewNop())
	return resolver, st
}

func TestResolveConfidenceMapping(t *testing.T) {
	cases := []struct {
		name           string
		catalogTracks  []string
		wantConfidence int
		wantMethod     string
	}{
		{"no overlap", []string{"Completely", "Different", "Songs"}, 80, "name_only"},
		{"one overlap", []string{"Song One", "Different", "Songs"}, 86, "track_overlap_1"},
		{"two overlaps", []string{"Song One", "Song Two", "Songs"}, 92, "track_overlap_2"},
		{"three overlaps", []string{"Song One", "Song Two", "Song Three"}, 100, "track_overlap_3plus"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			taste := &fakeTaste{titles: []string{"Song One", "Song Two", "Song Three"}}
			catalog := &fakeCatalog{
				artists:   []itunes.Artist{{ID: 11, Name: "Radiohead"}},
				topTracks: map[int64][]string{11: tc.catalogTracks},
			}
			resolver, _ := newResolver(t, taste, catalog)

			result, err := resolver.Resolve(context.Background(), "Radiohead", false)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if result.Confidence != tc.wantConfidence {
				t.Fatalf("confidence = %d, want %d", result.Confidence, tc.wantConfidence)
			}
			if result.Method != tc.wantMethod {
				t.Fatalf("method = %q, want %q", result.Method, tc.wantMethod)
			}
			if result.CatalogArtistID != "11" {
				t.Fatalf("catalog ID = %q, want 11", result.CatalogArtistID)
			}
		})
	}
}

func TestResolveOverlapBeatsNameScore(t *testing.T) {
	// The exact name match has zero track overlap; the substring match
	// shares three tracks and must win after the overlap boost.
	taste := &fakeTaste{titles: []string{"Alpha", "Beta", "Gamma", "Delta"}}
	catalog := &fakeCatalog{
		artists: []itunes.Artist{
			{ID: 1, Name: "Mirror"},
			{ID: 2, Name: "Mirror Band"},
		},
		topTracks: map[int64][]string{
			1: {"Nothing", "Shared", "Here"},
			2: {"Alpha", "Beta", "Gamma"},
		},
	}
	resolver, _ := newResolver(t, taste, catalog)

	result, err := resolver.Resolve(context.Background(), "Mirror", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.CatalogArtistID != "2" {
		t.Fatalf("winner = %q (%s), want 2 after overlap boost", result.CatalogArtistID, result.CatalogArtistName)
	}
	if result.Confidence != 100 {
		t.Fatalf("confidence = %d, want 100", result.Confidence)
	}
}

func TestResolveGenericTitlesDoNotCount(t *testing.T) {
	taste := &fakeTaste{titles: []string{"Intro", "Live", "Track 01", "Real Song"}}
	catalog := &fakeCatalog{
		artists:   []itunes.Artist{{ID: 5, Name: "Somebody"}},
		topTracks: map[int64][]string{5: {"Intro", "Live", "Track 01", "Other Song"}},
	}
	resolver, _ := newResolver(t, taste, catalog)

	result, err := resolver.Resolve(context.Background(), "Somebody", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Confidence != 80 {
		t.Fatalf("generic-only overlap should stay name_only, got confidence %d", result.Confidence)
	}
}

func TestResolveFeatureTagsNormalizedForOverlap(t *testing.T) {
	taste := &fakeTaste{titles: []string{"Collab (feat. Guest)", "Solo Work"}}
	catalog := &fakeCatalog{
		artists:   []itunes.Artist{{ID: 5, Name: "Host"}},
		topTracks: map[int64][]string{5: {"Collab", "Solo Work feat. Guest"}},
	}
	resolver, _ := newResolver(t, taste, catalog)

	result, err := resolver.Resolve(context.Background(), "Host", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Confidence != 92 {
		t.Fatalf("confidence = %d, want 92 with both titles matching", result.Confidence)
	}
}

func TestResolveEmptyNameNoNetwork(t *testing.T) {
	taste := &fakeTaste{}
	catalog := &fakeCatalog{}
	resolver, _ := newResolver(t, taste, catalog)

	result, err := resolver.Resolve(context.Background(), "   ", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Method != "empty_name" {
		t.Fatalf("method = %q, want empty_name", result.Method)
	}
	if result.CatalogArtistID != "" {
		t.Fatalf("empty name should resolve to nothing, got %q", result.CatalogArtistID)
	}
	if taste.calls != 0 || catalog.searchCalls != 0 {
		t.Fatal("empty name must not trigger network calls")
	}
}

func TestResolveNoCandidates(t *testing.T) {
	taste := &fakeTaste{titles: []string{"Some Song"}}
	catalog := &fakeCatalog{}
	resolver, st := newResolver(t, taste, catalog)
	ctx := context.Background()

	result, err := resolver.Resolve(ctx, "Obscure Artist", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.CatalogArtistID != "" {
		t.Fatalf("no candidates should resolve to nothing, got %q", result.CatalogArtistID)
	}
	if result.Confidence != 80 || result.Method != "itunes_no_candidates" {
		t.Fatalf("got confidence %d method %q", result.Confidence, result.Method)
	}

	// The miss is still cached so the queue of reasons survives, but the
	// null ID must not clobber anything on later merges.
	cached, err := st.GetIdentity(ctx, "Obscure Artist")
	if err != nil {
		t.Fatalf("GetIdentity: %v", err)
	}
	if cached.IDs.ITunes != "" {
		t.Fatalf("cached ID = %q, want empty", cached.IDs.ITunes)
	}
}

func TestResolveCacheHitSkipsNetwork(t *testing.T) {
	taste := &fakeTaste{titles: []string{"Song"}}
	catalog := &fakeCatalog{
		artists:   []itunes.Artist{{ID: 11, Name: "Cached Artist"}},
		topTracks: map[int64][]string{11: {"Song"}},
	}
	resolver, st := newResolver(t, taste, catalog)
	ctx := context.Background()

	if err := st.UpsertIdentity(ctx, store.Identity{
		Artist:     "Cached Artist",
		IDs:        musicapi.ArtistIDs{ITunes: "11"},
		Confidence: 100,
		Method:     "track_overlap_3plus",
		ResolvedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("UpsertIdentity: %v", err)
	}

	result, err := resolver.Resolve(ctx, "Cached Artist", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.FromCache || result.Method != "cache_hit" {
		t.Fatalf("expected cache hit, got %+v", result)
	}
	if catalog.searchCalls != 0 || taste.calls != 0 {
		t.Fatal("cache hit must not reach the network")
	}

	result, err = resolver.Resolve(ctx, "Cached Artist", true)
	if err != nil {
		t.Fatalf("Resolve force: %v", err)
	}
	if result.FromCache {
		t.Fatal("force must bypass the cache")
	}
	if catalog.searchCalls != 1 {
		t.Fatalf("force should search the catalog, calls = %d", catalog.searchCalls)
	}
}

func TestResolveLowConfidenceCacheRetries(t *testing.T) {
	taste := &fakeTaste{titles: []string{"Song"}}
	catalog := &fakeCatalog{
		artists:   []itunes.Artist{{ID: 11, Name: "Borderline"}},
		topTracks: map[int64][]string{11: {"Song"}},
	}
	resolver, st := newResolver(t, taste, catalog)
	ctx := context.Background()

	if err := st.UpsertIdentity(ctx, store.Identity{
		Artist:     "Borderline",
		IDs:        musicapi.ArtistIDs{ITunes: "11"},
		Confidence: 80,
		Method:     "name_only",
		ResolvedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("UpsertIdentity: %v", err)
	}

	result, err := resolver.Resolve(ctx, "Borderline", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.FromCache {
		t.Fatal("low-confidence cache entry must be re-resolved")
	}
	if catalog.searchCalls != 1 {
		t.Fatalf("expected fresh catalog search, calls = %d", catalog.searchCalls)
	}
	found := false
	for _, reason := range result.Reasons {
		if reason == "cache_low_confidence_retry" {
			found = true
		}
	}
	if !found {
		t.Fatalf("reasons = %v, want cache_low_confidence_retry", result.Reasons)
	}
}

func TestResolveTasteFailureDegradesToNameOnly(t *testing.T) {
	taste := &fakeTaste{err: errors.New("boom")}
	catalog := &fakeCatalog{
		artists:   []itunes.Artist{{ID: 11, Name: "Resilient"}},
		topTracks: map[int64][]string{11: {"Anything"}},
	}
	resolver, _ := newResolver(t, taste, catalog)

	result, err := resolver.Resolve(context.Background(), "Resilient", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Confidence != 80 || result.Method != "name_only" {
		t.Fatalf("got confidence %d method %q, want name-only fallback", result.Confidence, result.Method)
	}
	if catalog.lookupCalls != 0 {
		t.Fatal("no taste data means no overlap lookups")
	}
}
