package config

import (
	"errors"
	"fmt"
	"strings"
)

var validPeriods = map[string]struct{}{
	"overall": {}, "7day": {}, "1month": {}, "3month": {}, "6month": {}, "12month": {},
}

var validModes = map[string]struct{}{
	"dry": {}, "playlist": {}, "cruise": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLastFM(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateCruise(); err != nil {
		return err
	}
	if err := c.validatePlex(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLastFM() error {
	if c.LastFM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/rythmx/config.toml"
		}
		return fmt.Errorf("lastfm.api_key is required. Set LASTFM_API_KEY env var or edit %s (create with 'rythmx config init')", defaultPath)
	}
	if c.LastFM.User == "" {
		return errors.New("lastfm.user must be set")
	}
	if _, ok := validPeriods[c.LastFM.Period]; !ok {
		return fmt.Errorf("lastfm.period: unsupported value %q", c.LastFM.Period)
	}
	return nil
}

func (c *Config) validateProviders() error {
	known := make(map[string]struct{}, len(ProviderNames))
	for _, name := range ProviderNames {
		known[name] = struct{}{}
	}
	seen := make(map[string]struct{}, len(c.Providers.Order))
	for _, name := range c.Providers.Order {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("providers.order: unknown provider %q", name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("providers.order: provider %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	usesSpotify := false
	for _, name := range c.Providers.Order {
		if name == "spotify" {
			usesSpotify = true
		}
	}
	if usesSpotify && (c.Providers.Spotify.ClientID == "" || c.Providers.Spotify.ClientSecret == "") {
		return errors.New("providers.spotify.client_id and client_secret must be set when spotify is in providers.order (or via SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET)")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if strings.TrimSpace(c.Library.DatabasePath) == "" {
		return errors.New("library.database_path must be set")
	}
	return nil
}

func (c *Config) validateCruise() error {
	if _, ok := validModes[c.Cruise.Mode]; !ok {
		return fmt.Errorf("cruise.mode: unsupported value %q (expected dry, playlist, or cruise)", c.Cruise.Mode)
	}
	switch c.Cruise.ScheduleMode {
	case "interval", "weekly":
	default:
		return fmt.Errorf("cruise.schedule_mode: unsupported value %q (expected interval or weekly)", c.Cruise.ScheduleMode)
	}
	if c.Cruise.Weekday < 0 || c.Cruise.Weekday > 6 {
		return errors.New("cruise.weekday must be between 0 (Sunday) and 6")
	}
	if c.Cruise.Hour < 0 || c.Cruise.Hour > 23 {
		return errors.New("cruise.hour must be between 0 and 23")
	}
	if c.Cruise.RefreshWeekday < 0 || c.Cruise.RefreshWeekday > 6 {
		return errors.New("cruise.refresh_weekday must be between 0 (Sunday) and 6")
	}
	if c.Cruise.RefreshHour < 0 || c.Cruise.RefreshHour > 23 {
		return errors.New("cruise.refresh_hour must be between 0 and 23")
	}
	for _, kind := range c.Cruise.AllowedKinds {
		switch kind {
		case "album", "ep", "single":
		default:
			return fmt.Errorf("cruise.allowed_kinds: unsupported kind %q", kind)
		}
	}
	return nil
}

func (c *Config) validatePlex() error {
	if c.Plex.URL == "" && c.Plex.Token == "" {
		return nil
	}
	if c.Plex.URL == "" || c.Plex.Token == "" {
		return errors.New("plex.url and plex.token must both be set to enable playlist push")
	}
	return nil
}
