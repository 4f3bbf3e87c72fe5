package lastfm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New("key", "listener", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestTopArtists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("method") != "user.gettopartists" || q.Get("user") != "listener" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"topartists":{"artist":[
			{"name":"Radiohead","playcount":"412"},
			{"name":"Portishead","playcount":"88"}
		]}}`))
	})
	artists, err := client.TopArtists(context.Background(), "3month", 50)
	if err != nil {
		t.Fatalf("TopArtists: %v", err)
	}
	if len(artists) != 2 || artists[0].Name != "Radiohead" || artists[0].PlayCount != 412 {
		t.Fatalf("unexpected artists %+v", artists)
	}
}

func TestTopArtistsRejectsBadPeriod(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid period")
	})
	if _, err := client.TopArtists(context.Background(), "fortnight", 10); err == nil {
		t.Fatal("expected error for unsupported period")
	}
}

func TestLovedArtistNamesDeduplicates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lovedtracks":{"track":[
			{"artist":{"name":"Björk"}},
			{"artist":{"name":"Björk"}},
			{"artist":{"name":"Arca"}}
		]}}`))
	})
	names, err := client.LovedArtistNames(context.Background(), 200)
	if err != nil {
		t.Fatalf("LovedArtistNames: %v", err)
	}
	if len(names) != 2 || names[0] != "Björk" || names[1] != "Arca" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestAPIErrorMessageSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":10,"message":"Invalid API key"}`))
	})
	_, err := client.ArtistTopTracks(context.Background(), "Anyone", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "Invalid API key") {
		t.Fatalf("error should carry API message, got %q", got)
	}
}
