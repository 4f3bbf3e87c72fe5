package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// API contains the control API bind address.
type API struct {
	Bind string `toml:"bind"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// LastFM contains configuration for the Last.fm taste-data provider.
type LastFM struct {
	APIKey         string `toml:"api_key"`
	User           string `toml:"user"`
	Period         string `toml:"period"`
	TopArtistLimit int    `toml:"top_artist_limit"`
	TopTrackLimit  int    `toml:"top_track_limit"`
	LovedLimit     int    `toml:"loved_limit"`
}

// ITunes contains configuration for the iTunes Search API client.
type ITunes struct {
	BaseURL       string `toml:"base_url"`
	Country       string `toml:"country"`
	MinIntervalMS int    `toml:"min_interval_ms"`
}

// Deezer contains configuration for the Deezer API client.
type Deezer struct {
	BaseURL       string `toml:"base_url"`
	MinIntervalMS int    `toml:"min_interval_ms"`
}

// Spotify contains configuration for the Spotify Web API client.
type Spotify struct {
	ClientID      string `toml:"client_id"`
	ClientSecret  string `toml:"client_secret"`
	BaseURL       string `toml:"base_url"`
	TokenURL      string `toml:"token_url"`
	MinIntervalMS int    `toml:"min_interval_ms"`
}

// MusicBrainz contains configuration for the MusicBrainz API client.
// MusicBrainz never joins the default chain; it participates only when
// listed explicitly in providers.order.
type MusicBrainz struct {
	BaseURL       string `toml:"base_url"`
	UserAgent     string `toml:"user_agent"`
	MinIntervalMS int    `toml:"min_interval_ms"`
}

// Providers contains the release discovery chain configuration.
type Providers struct {
	Order       []string    `toml:"order"`
	ITunes      ITunes      `toml:"itunes"`
	Deezer      Deezer      `toml:"deezer"`
	Spotify     Spotify     `toml:"spotify"`
	MusicBrainz MusicBrainz `toml:"musicbrainz"`
}

// Library contains the local music library backend configuration.
type Library struct {
	Backend      string `toml:"backend"`
	DatabasePath string `toml:"database_path"`
}

// Cruise contains the discovery cycle configuration. Values here are
// defaults; settings stored in the database override them at runtime.
type Cruise struct {
	Enabled        bool     `toml:"enabled"`
	Mode           string   `toml:"mode"`
	CycleHours     int      `toml:"cycle_hours"`
	ScheduleMode   string   `toml:"schedule_mode"`
	Weekday        int      `toml:"weekday"`
	Hour           int      `toml:"hour"`
	RefreshWeekday int      `toml:"refresh_weekday"`
	RefreshHour    int      `toml:"refresh_hour"`
	MinListens     int      `toml:"min_listens"`
	LookbackDays   int      `toml:"lookback_days"`
	MaxPerCycle    int      `toml:"max_per_cycle"`
	CacheTTLHours  int      `toml:"cache_ttl_hours"`
	PlaylistPrefix string   `toml:"playlist_prefix"`
	IgnoreArtists  []string `toml:"ignore_artists"`
	IgnoreKeywords []string `toml:"ignore_keywords"`
	AllowedKinds   []string `toml:"allowed_kinds"`
}

// Identity contains artist identity resolution thresholds.
type Identity struct {
	CacheMaxAgeDays     int `toml:"cache_max_age_days"`
	ConfidenceThreshold int `toml:"confidence_threshold"`
}

// Acquisition contains the download queue worker configuration.
type Acquisition struct {
	SubmittedTimeoutDays int `toml:"submitted_timeout_days"`
}

// Plex contains media server playlist push configuration.
type Plex struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// Config encapsulates all configuration values for the daemon and CLI.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - API: control API bind address
//   - LastFM: taste-data provider credentials and limits
//   - Providers: release discovery chain, per-provider client settings
//   - Library: local library backend selection
//   - Cruise: cycle cadence, thresholds, and filters
//   - Identity: resolver cache reuse thresholds
//   - Acquisition: queue worker timeouts
//   - Plex: playlist push target
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	API         API         `toml:"api"`
	LastFM      LastFM      `toml:"lastfm"`
	Providers   Providers   `toml:"providers"`
	Library     Library     `toml:"library"`
	Cruise      Cruise      `toml:"cruise"`
	Identity    Identity    `toml:"identity"`
	Acquisition Acquisition `toml:"acquisition"`
	Plex        Plex        `toml:"plex"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rythmx/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rythmx.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DatabasePath returns the location of the daemon's own sqlite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "rythmx.db")
}

// LogPath returns the daemon log file location, or empty when no log
// directory is configured.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "rythmx.log")
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes the embedded sample configuration to path. It refuses
// to overwrite an existing file.
func CreateSample(path string) (string, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(expanded); err == nil {
		return "", fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return "", fmt.Errorf("write sample config: %w", err)
	}
	return expanded, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
