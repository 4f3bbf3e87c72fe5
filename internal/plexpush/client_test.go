package plexpush

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type plexFixture struct {
	playlists map[string]string // title -> rating key
	requests  []string
}

func (f *plexFixture) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") != "secret" {
			t.Errorf("missing token on %s %s", r.Method, r.URL.Path)
		}
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/":
			fmt.Fprint(w, `{"MediaContainer":{"machineIdentifier":"machine-1","friendlyName":"Test Server"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/playlists":
			entries := make([]string, 0, len(f.playlists))
			for title, key := range f.playlists {
				entries = append(entries, fmt.Sprintf(`{"ratingKey":%q,"title":%q}`, key, title))
			}
			fmt.Fprintf(w, `{"MediaContainer":{"Metadata":[%s]}}`, strings.Join(entries, ","))
		case r.Method == http.MethodPost && r.URL.Path == "/playlists":
			uri := r.URL.Query().Get("uri")
			if !strings.Contains(uri, "server://machine-1/") {
				t.Errorf("create uri = %q, want machine identifier", uri)
			}
			f.playlists[r.URL.Query().Get("title")] = "pl-1"
			fmt.Fprint(w, `{"MediaContainer":{"Metadata":[{"ratingKey":"pl-1","title":"new"}]}}`)
		case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/items"):
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/items"):
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(t *testing.T, fixture *plexFixture) *Client {
	t.Helper()
	server := httptest.NewServer(fixture.handler(t))
	t.Cleanup(server.Close)
	client, err := New(server.URL, "secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestCreateOrUpdatePlaylistCreates(t *testing.T) {
	fixture := &plexFixture{playlists: map[string]string{}}
	client := newTestClient(t, fixture)

	key, err := client.CreateOrUpdatePlaylist(context.Background(), "New Releases 2026-08-28", []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("CreateOrUpdatePlaylist: %v", err)
	}
	if key != "pl-1" {
		t.Fatalf("rating key = %q, want pl-1", key)
	}
	for _, req := range fixture.requests {
		if strings.HasPrefix(req, "PUT") || strings.HasPrefix(req, "DELETE") {
			t.Fatalf("create path should not touch items endpoints: %v", fixture.requests)
		}
	}
}

func TestCreateOrUpdatePlaylistReplacesExisting(t *testing.T) {
	fixture := &plexFixture{playlists: map[string]string{"Existing": "pl-9"}}
	client := newTestClient(t, fixture)

	key, err := client.CreateOrUpdatePlaylist(context.Background(), "Existing", []string{"7"})
	if err != nil {
		t.Fatalf("CreateOrUpdatePlaylist: %v", err)
	}
	if key != "pl-9" {
		t.Fatalf("rating key = %q, want pl-9", key)
	}
	sawDelete, sawPut := false, false
	for _, req := range fixture.requests {
		if req == "DELETE /playlists/pl-9/items" {
			sawDelete = true
		}
		if req == "PUT /playlists/pl-9/items" {
			sawPut = true
		}
	}
	if !sawDelete || !sawPut {
		t.Fatalf("expected clear and refill, got %v", fixture.requests)
	}
}

func TestCreateOrUpdatePlaylistEmptyTracks(t *testing.T) {
	fixture := &plexFixture{playlists: map[string]string{}}
	client := newTestClient(t, fixture)

	if _, err := client.CreateOrUpdatePlaylist(context.Background(), "Empty", nil); err == nil {
		t.Fatal("empty track list should be rejected before any request")
	}
	if len(fixture.requests) != 0 {
		t.Fatalf("no requests expected, got %v", fixture.requests)
	}
}

func TestServerName(t *testing.T) {
	fixture := &plexFixture{playlists: map[string]string{}}
	client := newTestClient(t, fixture)

	name, err := client.ServerName(context.Background())
	if err != nil {
		t.Fatalf("ServerName: %v", err)
	}
	if name != "Test Server" {
		t.Fatalf("server name = %q, want Test Server", name)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New("", "token"); err == nil {
		t.Fatal("missing URL should error")
	}
	if _, err := New("http://plex:32400", ""); err == nil {
		t.Fatal("missing token should error")
	}
}
