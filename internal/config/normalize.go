package config

import (
	"fmt"
	"os"
	"strings"

	"rythmx/internal/textutil"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLibrary(); err != nil {
		return err
	}
	c.normalizeLastFM()
	c.normalizeProviders()
	c.normalizeCruise()
	c.normalizePlex()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeLibrary() error {
	c.Library.Backend = strings.ToLower(strings.TrimSpace(c.Library.Backend))
	if c.Library.Backend == "" {
		c.Library.Backend = defaultLibraryBackend
	}
	var err error
	if c.Library.DatabasePath, err = expandPath(c.Library.DatabasePath); err != nil {
		return fmt.Errorf("library.database_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLastFM() {
	if c.LastFM.APIKey == "" {
		if value, ok := os.LookupEnv("LASTFM_API_KEY"); ok {
			c.LastFM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LastFM.User = strings.TrimSpace(c.LastFM.User)
	c.LastFM.Period = strings.ToLower(strings.TrimSpace(c.LastFM.Period))
	if c.LastFM.Period == "" {
		c.LastFM.Period = defaultLastFMPeriod
	}
	if c.LastFM.TopArtistLimit <= 0 {
		c.LastFM.TopArtistLimit = defaultTopArtistLimit
	}
	if c.LastFM.TopTrackLimit <= 0 {
		c.LastFM.TopTrackLimit = defaultTopTrackLimit
	}
	if c.LastFM.LovedLimit <= 0 {
		c.LastFM.LovedLimit = defaultLovedLimit
	}
}

func (c *Config) normalizeProviders() {
	order := make([]string, 0, len(c.Providers.Order))
	for _, name := range c.Providers.Order {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			order = append(order, name)
		}
	}
	if len(order) == 0 {
		order = append(order, DefaultProviderOrder...)
	}
	c.Providers.Order = order

	if c.Providers.Spotify.ClientID == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_ID"); ok {
			c.Providers.Spotify.ClientID = strings.TrimSpace(value)
		}
	}
	if c.Providers.Spotify.ClientSecret == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_SECRET"); ok {
			c.Providers.Spotify.ClientSecret = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Providers.ITunes.BaseURL) == "" {
		c.Providers.ITunes.BaseURL = defaultITunesBaseURL
	}
	if strings.TrimSpace(c.Providers.ITunes.Country) == "" {
		c.Providers.ITunes.Country = defaultITunesCountry
	}
	if c.Providers.ITunes.MinIntervalMS <= 0 {
		c.Providers.ITunes.MinIntervalMS = defaultITunesInterval
	}
	if strings.TrimSpace(c.Providers.Deezer.BaseURL) == "" {
		c.Providers.Deezer.BaseURL = defaultDeezerBaseURL
	}
	if c.Providers.Deezer.MinIntervalMS <= 0 {
		c.Providers.Deezer.MinIntervalMS = defaultDeezerInterval
	}
	if strings.TrimSpace(c.Providers.Spotify.BaseURL) == "" {
		c.Providers.Spotify.BaseURL = defaultSpotifyBaseURL
	}
	if strings.TrimSpace(c.Providers.Spotify.TokenURL) == "" {
		c.Providers.Spotify.TokenURL = defaultSpotifyTokenURL
	}
	if c.Providers.Spotify.MinIntervalMS <= 0 {
		c.Providers.Spotify.MinIntervalMS = defaultSpotifyInterval
	}
	if strings.TrimSpace(c.Providers.MusicBrainz.BaseURL) == "" {
		c.Providers.MusicBrainz.BaseURL = defaultMBBaseURL
	}
	if strings.TrimSpace(c.Providers.MusicBrainz.UserAgent) == "" {
		c.Providers.MusicBrainz.UserAgent = defaultMBUserAgent
	}
	if c.Providers.MusicBrainz.MinIntervalMS <= 0 {
		c.Providers.MusicBrainz.MinIntervalMS = defaultMBInterval
	}
}

func (c *Config) normalizeCruise() {
	c.Cruise.Mode = strings.ToLower(strings.TrimSpace(c.Cruise.Mode))
	if c.Cruise.Mode == "" {
		c.Cruise.Mode = defaultCruiseMode
	}
	c.Cruise.ScheduleMode = strings.ToLower(strings.TrimSpace(c.Cruise.ScheduleMode))
	if c.Cruise.ScheduleMode == "" {
		c.Cruise.ScheduleMode = defaultScheduleMode
	}
	if c.Cruise.CycleHours <= 0 {
		c.Cruise.CycleHours = defaultCycleHours
	}
	if c.Cruise.MinListens <= 0 {
		c.Cruise.MinListens = defaultMinListens
	}
	if c.Cruise.LookbackDays <= 0 {
		c.Cruise.LookbackDays = defaultLookbackDays
	}
	if c.Cruise.MaxPerCycle <= 0 {
		c.Cruise.MaxPerCycle = defaultMaxPerCycle
	}
	if c.Cruise.CacheTTLHours <= 0 {
		c.Cruise.CacheTTLHours = defaultCacheTTLHours
	}
	if strings.TrimSpace(c.Cruise.PlaylistPrefix) == "" {
		c.Cruise.PlaylistPrefix = defaultPlaylistPrefix
	}
	if len(c.Cruise.AllowedKinds) == 0 {
		c.Cruise.AllowedKinds = []string{"album", "ep"}
	}
	for i, kind := range c.Cruise.AllowedKinds {
		c.Cruise.AllowedKinds[i] = strings.ToLower(strings.TrimSpace(kind))
	}

	// Ignore lists are stored in their canonical comparison form so that
	// config entries and filter-time lookups always agree.
	artists := make([]string, 0, len(c.Cruise.IgnoreArtists))
	for _, name := range c.Cruise.IgnoreArtists {
		if canonical := textutil.StripPunctuation(name); canonical != "" {
			artists = append(artists, canonical)
		}
	}
	c.Cruise.IgnoreArtists = artists

	keywords := make([]string, 0, len(c.Cruise.IgnoreKeywords))
	for _, word := range c.Cruise.IgnoreKeywords {
		if trimmed := strings.ToLower(strings.TrimSpace(word)); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	c.Cruise.IgnoreKeywords = keywords

	if c.Identity.CacheMaxAgeDays <= 0 {
		c.Identity.CacheMaxAgeDays = defaultIdentityCacheDays
	}
	if c.Identity.ConfidenceThreshold <= 0 {
		c.Identity.ConfidenceThreshold = defaultIdentityConfidence
	}
	if c.Acquisition.SubmittedTimeoutDays <= 0 {
		c.Acquisition.SubmittedTimeoutDays = defaultSubmittedTimeout
	}
}

func (c *Config) normalizePlex() {
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	if c.Plex.Token == "" {
		if value, ok := os.LookupEnv("PLEX_TOKEN"); ok {
			c.Plex.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
