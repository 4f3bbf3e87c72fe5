package soulsync

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"rythmx/internal/library"
	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
)

const fixtureSchema = `
CREATE TABLE artists (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	itunes_artist_id TEXT,
	spotify_artist_id TEXT,
	deezer_id TEXT
);
CREATE TABLE albums (
	id INTEGER PRIMARY KEY,
	artist_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	year INTEGER,
	itunes_album_id TEXT,
	deezer_id TEXT,
	spotify_album_id TEXT
);
CREATE TABLE tracks (
	id INTEGER PRIMARY KEY,
	artist_id INTEGER NOT NULL,
	album_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	track_number INTEGER,
	spotify_track_id TEXT,
	deezer_id TEXT
);
CREATE TABLE similar_artists (
	id INTEGER PRIMARY KEY,
	similar_artist_name TEXT NOT NULL,
	occurrence_count INTEGER NOT NULL,
	similar_artist_spotify_id TEXT
);
CREATE TABLE discovery_pool (
	id INTEGER PRIMARY KEY,
	track_name TEXT NOT NULL,
	artist_name TEXT NOT NULL,
	album_name TEXT,
	popularity REAL,
	release_date TEXT,
	spotify_artist_id TEXT,
	spotify_track_id TEXT
);
`

func newFixture(t *testing.T, statements ...string) *Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soulsync.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	if _, err := db.Exec(fixtureSchema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed fixture: %v\n%s", err, stmt)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close fixture writer: %v", err)
	}
	backend, err := Open(path, logging.NewNop())
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestArtistIDExactAndNormalized(t *testing.T) {
	backend := newFixture(t,
		`INSERT INTO artists (id, name) VALUES (7, 'The Beatles'), (9, 'AC/DC')`)
	ctx := context.Background()

	id, err := backend.ArtistID(ctx, "the beatles")
	if err != nil {
		t.Fatalf("ArtistID: %v", err)
	}
	if id != "7" {
		t.Fatalf("exact match = %q, want 7", id)
	}

	id, err = backend.ArtistID(ctx, "Beatles")
	if err != nil {
		t.Fatalf("ArtistID: %v", err)
	}
	if id != "7" {
		t.Fatalf("normalized match = %q, want 7", id)
	}

	id, err = backend.ArtistID(ctx, "AC DC")
	if err != nil {
		t.Fatalf("ArtistID: %v", err)
	}
	if id != "9" {
		t.Fatalf("punctuation-insensitive match = %q, want 9", id)
	}

	id, err = backend.ArtistID(ctx, "Nobody")
	if err != nil {
		t.Fatalf("ArtistID: %v", err)
	}
	if id != "" {
		t.Fatalf("unknown artist = %q, want empty", id)
	}
}

func TestProviderArtistIDsFallbackChain(t *testing.T) {
	backend := newFixture(t,
		`INSERT INTO artists (id, name, itunes_artist_id) VALUES (1, 'Portishead', '217594')`,
		`INSERT INTO similar_artists (similar_artist_name, occurrence_count, similar_artist_spotify_id)
		 VALUES ('Portishead', 4, 'sp-similar')`,
		`INSERT INTO discovery_pool (track_name, artist_name, spotify_artist_id)
		 VALUES ('Glory Box', 'Portishead', 'sp-pool')`)

	ids, err := backend.ProviderArtistIDs(context.Background(), "portishead")
	if err != nil {
		t.Fatalf("ProviderArtistIDs: %v", err)
	}
	want := musicapi.ArtistIDs{ITunes: "217594", Spotify: "sp-similar"}
	if ids != want {
		t.Fatalf("ids = %+v, want %+v", ids, want)
	}
}

func TestCheckAlbumOwnedTierPriority(t *testing.T) {
	// Two albums share the title so a text match would hit the wrong
	// artist; the iTunes album ID must win.
	backend := newFixture(t,
		`INSERT INTO artists (id, name, itunes_artist_id) VALUES
			(1, 'Low', '100'),
			(2, 'Low Roar', '200')`,
		`INSERT INTO albums (id, artist_id, title, itunes_album_id) VALUES
			(10, 1, 'Hey What', '555'),
			(11, 2, 'Hey What', NULL)`,
		`INSERT INTO tracks (id, artist_id, album_id, title, track_number) VALUES
			(1001, 1, 10, 'White Horses', 1),
			(1002, 2, 11, 'Other', 1)`)
	ctx := context.Background()

	key, err := backend.CheckAlbumOwned(ctx, library.AlbumQuery{
		Artist:        "Low Roar",
		Album:         "Hey What",
		ITunesAlbumID: "555",
	})
	if err != nil {
		t.Fatalf("CheckAlbumOwned: %v", err)
	}
	if key != "1001" {
		t.Fatalf("album ID tier returned %q, want 1001", key)
	}

	key, err = backend.CheckAlbumOwned(ctx, library.AlbumQuery{
		Artist: "Low Roar",
		Album:  "Hey What",
	})
	if err != nil {
		t.Fatalf("CheckAlbumOwned: %v", err)
	}
	if key != "1002" {
		t.Fatalf("text tier returned %q, want 1002", key)
	}

	key, err = backend.CheckAlbumOwned(ctx, library.AlbumQuery{
		Artist: "Low Roar",
		Album:  "Once in a Long, Long While",
	})
	if err != nil {
		t.Fatalf("CheckAlbumOwned: %v", err)
	}
	if key != "" {
		t.Fatalf("unowned album returned %q, want empty", key)
	}
}

func TestCheckAlbumOwnedArtistIDTier(t *testing.T) {
	backend := newFixture(t,
		`INSERT INTO artists (id, name, spotify_artist_id) VALUES (1, 'Renamed Band', 'sp-1')`,
		`INSERT INTO albums (id, artist_id, title) VALUES (10, 1, 'Debut')`,
		`INSERT INTO tracks (id, artist_id, album_id, title) VALUES (1001, 1, 10, 'Opener')`)

	key, err := backend.CheckAlbumOwned(context.Background(), library.AlbumQuery{
		Artist:    "Old Name",
		Album:     "Debut",
		ArtistIDs: musicapi.ArtistIDs{Spotify: "sp-1"},
	})
	if err != nil {
		t.Fatalf("CheckAlbumOwned: %v", err)
	}
	if key != "1001" {
		t.Fatalf("spotify artist tier returned %q, want 1001", key)
	}
}

func TestFindTrackByName(t *testing.T) {
	backend := newFixture(t,
		`INSERT INTO artists (id, name) VALUES (1, 'Sigur Rós')`,
		`INSERT INTO albums (id, artist_id, title) VALUES (10, 1, 'Takk...')`,
		`INSERT INTO tracks (id, artist_id, album_id, title) VALUES
			(1001, 1, 10, 'Hoppípolla')`)
	ctx := context.Background()

	key, err := backend.FindTrackByName(ctx, "Sigur Rós", "Hoppípolla")
	if err != nil {
		t.Fatalf("FindTrackByName: %v", err)
	}
	if key != "1001" {
		t.Fatalf("exact match = %q, want 1001", key)
	}

	key, err = backend.FindTrackByName(ctx, "sigur rós", "Hoppípolla (feat. Jónsi)")
	if err != nil {
		t.Fatalf("FindTrackByName: %v", err)
	}
	if key != "1001" {
		t.Fatalf("normalized match = %q, want 1001", key)
	}

	key, err = backend.FindTrackByName(ctx, "Sigur Rós", "Hoppípolla (Live)")
	if err != nil {
		t.Fatalf("FindTrackByName: %v", err)
	}
	if key != "" {
		t.Fatalf("annotated variant should not match, got %q", key)
	}
}

func TestCheckOwnedByTrackIDs(t *testing.T) {
	backend := newFixture(t,
		`INSERT INTO artists (id, name) VALUES (1, 'A')`,
		`INSERT INTO albums (id, artist_id, title) VALUES (10, 1, 'B')`,
		`INSERT INTO tracks (id, artist_id, album_id, title, spotify_track_id, deezer_id)
		 VALUES (1001, 1, 10, 'C', 'sp-track', 'dz-track')`)
	ctx := context.Background()

	owned, err := backend.CheckOwnedExact(ctx, "sp-track")
	if err != nil || !owned {
		t.Fatalf("CheckOwnedExact = %v, %v, want true", owned, err)
	}
	owned, err = backend.CheckOwnedExact(ctx, "missing")
	if err != nil || owned {
		t.Fatalf("CheckOwnedExact miss = %v, %v, want false", owned, err)
	}
	owned, err = backend.CheckOwnedByDeezerID(ctx, "dz-track")
	if err != nil || !owned {
		t.Fatalf("CheckOwnedByDeezerID = %v, %v, want true", owned, err)
	}
	owned, err = backend.CheckOwnedExact(ctx, "")
	if err != nil || owned {
		t.Fatalf("empty ID = %v, %v, want false without query", owned, err)
	}
}

func TestTracksForAlbumOrdering(t *testing.T) {
	backend := newFixture(t,
		`INSERT INTO artists (id, name) VALUES (1, 'A')`,
		`INSERT INTO albums (id, artist_id, title, year) VALUES (10, 1, 'Record', 2024)`,
		`INSERT INTO tracks (id, artist_id, album_id, title, track_number) VALUES
			(1002, 1, 10, 'Second', 2),
			(1001, 1, 10, 'First', 1)`)

	tracks, err := backend.TracksForAlbum(context.Background(), "1", "record")
	if err != nil {
		t.Fatalf("TracksForAlbum: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	if tracks[0].Title != "First" || tracks[1].Title != "Second" {
		t.Fatalf("tracks out of order: %+v", tracks)
	}
	if tracks[0].AlbumYear != 2024 || tracks[0].RatingKey != "1001" {
		t.Fatalf("track fields wrong: %+v", tracks[0])
	}
}

func TestSimilarArtistsAndPool(t *testing.T) {
	backend := newFixture(t,
		`INSERT INTO similar_artists (similar_artist_name, occurrence_count, similar_artist_spotify_id)
		 VALUES ('Boards of Canada', 12, 'sp-boc'), ('Autechre', 3, NULL)`,
		`INSERT INTO discovery_pool (track_name, artist_name, album_name, popularity, release_date, spotify_track_id)
		 VALUES ('New One', 'Fresh Act', 'Debut', 81.5, '2099-01-01', 'sp-new'),
			('Old One', 'Stale Act', NULL, 90.0, '2001-01-01', NULL)`)
	ctx := context.Background()

	similar, err := backend.SimilarArtists(ctx, 10)
	if err != nil {
		t.Fatalf("SimilarArtists: %v", err)
	}
	if similar["Boards of Canada"].Occurrences != 12 || similar["Boards of Canada"].SpotifyID != "sp-boc" {
		t.Fatalf("similar artist entry wrong: %+v", similar["Boards of Canada"])
	}

	pool, err := backend.DiscoveryPool(ctx, 10, true)
	if err != nil {
		t.Fatalf("DiscoveryPool: %v", err)
	}
	if len(pool) != 1 || pool[0].TrackName != "New One" || !pool[0].NewRelease {
		t.Fatalf("new-release pool wrong: %+v", pool)
	}
	if pool[0].SpotifyTrackID != "sp-new" {
		t.Fatalf("pool track missing spotify id: %+v", pool[0])
	}

	pool, err = backend.DiscoveryPool(ctx, 10, false)
	if err != nil {
		t.Fatalf("DiscoveryPool: %v", err)
	}
	if len(pool) != 2 || pool[0].TrackName != "Old One" {
		t.Fatalf("full pool should order by popularity: %+v", pool)
	}
}

func TestAccessibleAndTrackCount(t *testing.T) {
	backend := newFixture(t,
		`INSERT INTO artists (id, name) VALUES (1, 'A')`,
		`INSERT INTO albums (id, artist_id, title) VALUES (10, 1, 'B')`,
		`INSERT INTO tracks (id, artist_id, album_id, title) VALUES (1001, 1, 10, 'C')`)
	ctx := context.Background()

	if !backend.Accessible(ctx) {
		t.Fatal("fixture database should be accessible")
	}
	count, err := backend.TrackCount(ctx)
	if err != nil {
		t.Fatalf("TrackCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("TrackCount = %d, want 1", count)
	}
}
