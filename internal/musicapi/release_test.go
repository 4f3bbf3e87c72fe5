package musicapi

import (
	"testing"
	"time"
)

func TestClassifyTitle(t *testing.T) {
	cases := []struct {
		name      string
		title     string
		kind      Kind
		wantTitle string
		wantKind  Kind
	}{
		{"single suffix", "Midnight Run - Single", KindAlbum, "Midnight Run", KindSingle},
		{"ep suffix", "First Steps - EP", KindAlbum, "First Steps", KindEP},
		{"case insensitive", "quiet hours - single", KindUnknown, "quiet hours", KindSingle},
		{"no suffix keeps kind", "Mercurial World", KindAlbum, "Mercurial World", KindAlbum},
		{"no suffix unknown becomes album", "Mercurial World", KindUnknown, "Mercurial World", KindAlbum},
		{"suffix only is kept literal", " - Single", KindUnknown, "- Single", KindAlbum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			title, kind := ClassifyTitle(tc.title, tc.kind)
			if title != tc.wantTitle || kind != tc.wantKind {
				t.Fatalf("ClassifyTitle(%q, %q) = (%q, %q), want (%q, %q)",
					tc.title, tc.kind, title, kind, tc.wantTitle, tc.wantKind)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"album":       KindAlbum,
		"Compilation": KindAlbum,
		"EP":          KindEP,
		"single":      KindSingle,
		"":            KindAlbum,
		"mixtape":     KindAlbum,
	}
	for in, want := range cases {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReleaseKeyIgnoresFormatting(t *testing.T) {
	a := Release{Artist: "The Weeknd", Title: "Dawn FM (feat. Quincy Jones)"}
	b := Release{Artist: "Weeknd", Title: "Dawn FM"}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}
}

func TestFutureDated(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	future := Release{Date: "2026-06-12"}
	past := Release{Date: "2025-11-01"}
	undated := Release{}
	partial := Release{Date: "2027"}

	if !future.FutureDated(now) {
		t.Error("future release not detected")
	}
	if past.FutureDated(now) {
		t.Error("past release flagged as future")
	}
	if undated.FutureDated(now) {
		t.Error("undated release flagged as future")
	}
	if !partial.FutureDated(now) {
		t.Error("year-only future date not detected")
	}
}

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	releases := []Release{
		{Artist: "Caribou", Title: "Honey", Source: "spotify"},
		{Artist: "caribou", Title: "Honey", Source: "deezer"},
		{Artist: "Caribou", Title: "Suddenly", Source: "deezer"},
	}
	got := Dedup(releases)
	if len(got) != 2 {
		t.Fatalf("Dedup returned %d releases, want 2", len(got))
	}
	if got[0].Source != "spotify" {
		t.Fatalf("first occurrence not preserved, got source %q", got[0].Source)
	}
}

func TestArtistIDsMergeNeverOverwrites(t *testing.T) {
	known := ArtistIDs{ITunes: "111", Spotify: "abc"}
	merged := known.Merge(ArtistIDs{ITunes: "999", Deezer: "42"})
	if merged.ITunes != "111" {
		t.Fatalf("known itunes ID overwritten: %q", merged.ITunes)
	}
	if merged.Deezer != "42" {
		t.Fatalf("missing deezer ID not filled: %q", merged.Deezer)
	}
	if merged.Spotify != "abc" {
		t.Fatalf("spotify ID lost: %q", merged.Spotify)
	}
}
