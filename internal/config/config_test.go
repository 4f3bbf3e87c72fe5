package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[lastfm]
api_key = "key"
user = "listener"

[library]
database_path = "/tmp/library.db"

[providers]
order = ["itunes", "deezer"]
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Cruise.Mode != "dry" {
		t.Fatalf("default mode = %q, want dry", cfg.Cruise.Mode)
	}
	if cfg.Cruise.MaxPerCycle != 5 {
		t.Fatalf("default max_per_cycle = %d, want 5", cfg.Cruise.MaxPerCycle)
	}
	if cfg.Providers.ITunes.MinIntervalMS != 3100 {
		t.Fatalf("default itunes interval = %d, want 3100", cfg.Providers.ITunes.MinIntervalMS)
	}
	if got := cfg.DatabasePath(); !strings.HasSuffix(got, "rythmx.db") {
		t.Fatalf("database path = %q", got)
	}
}

func TestLoadRejectsMissingLastFMKey(t *testing.T) {
	t.Setenv("LASTFM_API_KEY", "")
	path := writeConfig(t, `
[lastfm]
user = "listener"

[library]
database_path = "/tmp/library.db"
`)
	os.Unsetenv("LASTFM_API_KEY")
	if _, _, _, err := Load(path); err == nil || !strings.Contains(err.Error(), "lastfm.api_key") {
		t.Fatalf("expected lastfm.api_key error, got %v", err)
	}
}

func TestLoadEnvFallbacks(t *testing.T) {
	t.Setenv("LASTFM_API_KEY", "env-key")
	path := writeConfig(t, `
[lastfm]
user = "listener"

[library]
database_path = "/tmp/library.db"

[providers]
order = ["deezer"]
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LastFM.APIKey != "env-key" {
		t.Fatalf("api key = %q, want env fallback", cfg.LastFM.APIKey)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_ = cfg

	bad := writeConfig(t, strings.Replace(minimalConfig, `["itunes", "deezer"]`, `["napster"]`, 1))
	if _, _, _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}

func TestSpotifyRequiresCredentials(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	os.Unsetenv("SPOTIFY_CLIENT_ID")
	os.Unsetenv("SPOTIFY_CLIENT_SECRET")
	path := writeConfig(t, strings.Replace(minimalConfig, `["itunes", "deezer"]`, `["spotify"]`, 1))
	if _, _, _, err := Load(path); err == nil || !strings.Contains(err.Error(), "spotify") {
		t.Fatalf("expected spotify credentials error, got %v", err)
	}
}

func TestIgnoreArtistsCanonicalized(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
[cruise]
ignore_artists = ["The Band!", "  AC/DC  "]
ignore_keywords = [" Remix ", "LIVE"]
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"the band", "acdc"}
	for i, got := range cfg.Cruise.IgnoreArtists {
		if got != want[i] {
			t.Errorf("ignore_artists[%d] = %q, want %q", i, got, want[i])
		}
	}
	if cfg.Cruise.IgnoreKeywords[0] != "remix" || cfg.Cruise.IgnoreKeywords[1] != "live" {
		t.Fatalf("ignore_keywords not lowercased: %v", cfg.Cruise.IgnoreKeywords)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if _, err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, err := CreateSample(path); err == nil {
		t.Fatal("expected error when target exists")
	}
}
