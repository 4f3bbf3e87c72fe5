package config

const (
	defaultDataDir        = "~/.local/share/rythmx"
	defaultLogDir         = "~/.local/share/rythmx/logs"
	defaultAPIBind        = "127.0.0.1:7717"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLastFMPeriod   = "3month"
	defaultTopArtistLimit = 50
	defaultTopTrackLimit  = 10
	defaultLovedLimit     = 200

	defaultITunesBaseURL      = "https://itunes.apple.com"
	defaultITunesCountry      = "US"
	defaultITunesInterval     = 3100
	defaultDeezerBaseURL      = "https://api.deezer.com"
	defaultDeezerInterval     = 600
	defaultSpotifyBaseURL     = "https://api.spotify.com/v1"
	defaultSpotifyTokenURL    = "https://accounts.spotify.com/api/token"
	defaultSpotifyInterval    = 600
	defaultMBBaseURL          = "https://musicbrainz.org/ws/2"
	defaultMBUserAgent        = "rythmx/1.0 (https://github.com/rythmx/rythmx)"
	defaultMBInterval         = 1100
	defaultLibraryBackend     = "soulsync"
	defaultCruiseMode         = "dry"
	defaultCycleHours         = 24
	defaultScheduleMode       = "interval"
	defaultRefreshWeekday     = 4 // Thursday, new-release day eve
	defaultRefreshHour        = 5
	defaultMinListens         = 5
	defaultLookbackDays       = 90
	defaultMaxPerCycle        = 5
	defaultCacheTTLHours      = 24
	defaultPlaylistPrefix     = "New Releases"
	defaultIdentityCacheDays  = 30
	defaultIdentityConfidence = 85
	defaultSubmittedTimeout   = 30
)

// ProviderNames lists the release providers the chain can be built from.
var ProviderNames = []string{"spotify", "itunes", "deezer", "musicbrainz"}

// DefaultProviderOrder is the chain used when providers.order is empty.
// MusicBrainz is deliberately absent; its rate budget is too tight for
// routine discovery.
var DefaultProviderOrder = []string{"spotify", "itunes", "deezer"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		LastFM: LastFM{
			Period:         defaultLastFMPeriod,
			TopArtistLimit: defaultTopArtistLimit,
			TopTrackLimit:  defaultTopTrackLimit,
			LovedLimit:     defaultLovedLimit,
		},
		Providers: Providers{
			ITunes: ITunes{
				BaseURL:       defaultITunesBaseURL,
				Country:       defaultITunesCountry,
				MinIntervalMS: defaultITunesInterval,
			},
			Deezer: Deezer{
				BaseURL:       defaultDeezerBaseURL,
				MinIntervalMS: defaultDeezerInterval,
			},
			Spotify: Spotify{
				BaseURL:       defaultSpotifyBaseURL,
				TokenURL:      defaultSpotifyTokenURL,
				MinIntervalMS: defaultSpotifyInterval,
			},
			MusicBrainz: MusicBrainz{
				BaseURL:       defaultMBBaseURL,
				UserAgent:     defaultMBUserAgent,
				MinIntervalMS: defaultMBInterval,
			},
		},
		Library: Library{
			Backend: defaultLibraryBackend,
		},
		Cruise: Cruise{
			Enabled:        false,
			Mode:           defaultCruiseMode,
			CycleHours:     defaultCycleHours,
			ScheduleMode:   defaultScheduleMode,
			Weekday:        defaultRefreshWeekday,
			Hour:           defaultRefreshHour,
			RefreshWeekday: defaultRefreshWeekday,
			RefreshHour:    defaultRefreshHour,
			MinListens:     defaultMinListens,
			LookbackDays:   defaultLookbackDays,
			MaxPerCycle:    defaultMaxPerCycle,
			CacheTTLHours:  defaultCacheTTLHours,
			PlaylistPrefix: defaultPlaylistPrefix,
			AllowedKinds:   []string{"album", "ep"},
		},
		Identity: Identity{
			CacheMaxAgeDays:     defaultIdentityCacheDays,
			ConfidenceThreshold: defaultIdentityConfidence,
		},
		Acquisition: Acquisition{
			SubmittedTimeoutDays: defaultSubmittedTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
