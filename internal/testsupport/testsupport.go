// Package testsupport provides shared fixtures for package tests: temp-dir
// configurations and ready-to-use stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"rythmx/internal/config"
	"rythmx/internal/store"
)

// NewConfig returns a validated config rooted in a per-test temp dir.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = ""
	cfg.LastFM.APIKey = "test-key"
	cfg.LastFM.User = "tester"
	cfg.Library.DatabasePath = filepath.Join(base, "library.db")
	cfg.Providers.Order = []string{"itunes", "deezer"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a store for cfg and closes it when the test ends.
func MustOpenStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}
