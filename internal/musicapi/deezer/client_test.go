package deezer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(server.URL, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestSearchArtistID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/artist" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"id":259,"name":"Four Tet"}]}`))
	})
	id, err := client.SearchArtistID(context.Background(), "Four Tet")
	if err != nil {
		t.Fatalf("SearchArtistID: %v", err)
	}
	if id != 259 {
		t.Fatalf("id = %d, want 259", id)
	}
}

func TestSearchArtistIDEmptyCatalog(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})
	id, err := client.SearchArtistID(context.Background(), "Nobody Here")
	if err != nil {
		t.Fatalf("SearchArtistID: %v", err)
	}
	if id != 0 {
		t.Fatalf("id = %d, want 0", id)
	}
}

func TestRecentAlbums(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artist/259/albums" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[
			{"id":10,"title":"Three","release_date":"2026-03-08","record_type":"album"},
			{"id":11,"title":"Loved - EP","release_date":"2026-04-01","record_type":"album"},
			{"id":12,"title":"Rounds","release_date":"2003-05-05","record_type":"album"}
		]}`))
	})
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	releases, err := client.RecentAlbums(context.Background(), 259, since)
	if err != nil {
		t.Fatalf("RecentAlbums: %v", err)
	}
	if len(releases) != 2 {
		t.Fatalf("got %d releases, want 2", len(releases))
	}
	if releases[1].Title != "Loved" || releases[1].Kind != "ep" {
		t.Fatalf("suffix reclassification failed: %+v", releases[1])
	}
	if releases[0].ProviderAlbumID != "10" || releases[0].Source != "deezer" {
		t.Fatalf("provider fields wrong: %+v", releases[0])
	}
}
