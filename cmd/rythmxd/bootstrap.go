package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rythmx/internal/acquisition"
	"rythmx/internal/config"
	"rythmx/internal/daemon"
	"rythmx/internal/discovery"
	"rythmx/internal/identity"
	"rythmx/internal/lastfm"
	"rythmx/internal/library"
	_ "rythmx/internal/library/soulsync"
	"rythmx/internal/musicapi"
	"rythmx/internal/musicapi/deezer"
	"rythmx/internal/musicapi/itunes"
	"rythmx/internal/musicapi/musicbrainz"
	"rythmx/internal/musicapi/spotify"
	"rythmx/internal/plexpush"
	"rythmx/internal/scheduler"
	"rythmx/internal/store"
)

// buildComponents wires the full component graph from config: store,
// library backend, provider clients, discovery chain, identity resolver,
// acquisition worker, playlist pusher, and the scheduler on top.
func buildComponents(cfg *config.Config, logger *slog.Logger) (daemon.Components, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return daemon.Components{}, fmt.Errorf("open store: %w", err)
	}

	lib, err := library.Open(cfg, logger)
	if err != nil {
		_ = st.Close()
		return daemon.Components{}, fmt.Errorf("open library: %w", err)
	}

	taste, err := lastfm.New(cfg.LastFM.APIKey, cfg.LastFM.User)
	if err != nil {
		_ = lib.Close()
		_ = st.Close()
		return daemon.Components{}, fmt.Errorf("lastfm client: %w", err)
	}

	itunesClient, err := itunes.New(
		cfg.Providers.ITunes.BaseURL,
		cfg.Providers.ITunes.Country,
		time.Duration(cfg.Providers.ITunes.MinIntervalMS)*time.Millisecond,
	)
	if err != nil {
		_ = lib.Close()
		_ = st.Close()
		return daemon.Components{}, fmt.Errorf("itunes client: %w", err)
	}

	sources, err := buildSources(cfg, itunesClient, logger)
	if err != nil {
		_ = lib.Close()
		_ = st.Close()
		return daemon.Components{}, err
	}

	chain := discovery.NewChain(sources, st, discovery.Options{
		CacheTTL:       time.Duration(cfg.Cruise.CacheTTLHours) * time.Hour,
		IgnoreKeywords: cfg.Cruise.IgnoreKeywords,
		AllowedKinds:   parseKinds(cfg.Cruise.AllowedKinds),
	}, logger)

	resolver := identity.NewResolver(taste, itunesClient, st, identity.Options{
		ConfidenceThreshold: cfg.Identity.ConfidenceThreshold,
		CacheMaxAge:         time.Duration(cfg.Identity.CacheMaxAgeDays) * 24 * time.Hour,
	}, logger)

	worker := acquisition.New(st, lib,
		time.Duration(cfg.Acquisition.SubmittedTimeoutDays)*24*time.Hour, logger)

	var pusher scheduler.Pusher
	if cfg.Plex.URL != "" && cfg.Plex.Token != "" {
		plexClient, err := plexpush.New(cfg.Plex.URL, cfg.Plex.Token)
		if err != nil {
			_ = lib.Close()
			_ = st.Close()
			return daemon.Components{}, fmt.Errorf("plex client: %w", err)
		}
		pusher = plexClient
	}

	sched := scheduler.New(cfg, st, taste, resolver, chain, lib, pusher, worker, logger)

	return daemon.Components{
		Store:     st,
		Scheduler: sched,
		Resolver:  resolver,
		Worker:    worker,
		Library:   lib,
	}, nil
}

// buildSources assembles the provider chain in configured priority order.
// Spotify is skipped with a warning when credentials are missing so the
// rest of the chain still works.
func buildSources(cfg *config.Config, itunesClient *itunes.Client, logger *slog.Logger) ([]discovery.Source, error) {
	order := cfg.Providers.Order
	if len(order) == 0 {
		order = config.DefaultProviderOrder
	}

	sources := make([]discovery.Source, 0, len(order))
	for _, name := range order {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "itunes":
			sources = append(sources, discovery.NewITunesSource(itunesClient))
		case "deezer":
			client, err := deezer.New(
				cfg.Providers.Deezer.BaseURL,
				time.Duration(cfg.Providers.Deezer.MinIntervalMS)*time.Millisecond,
			)
			if err != nil {
				return nil, fmt.Errorf("deezer client: %w", err)
			}
			sources = append(sources, discovery.NewDeezerSource(client))
		case "spotify":
			if cfg.Providers.Spotify.ClientID == "" || cfg.Providers.Spotify.ClientSecret == "" {
				logger.Warn("spotify credentials missing, provider skipped")
				continue
			}
			client, err := spotify.New(
				cfg.Providers.Spotify.ClientID,
				cfg.Providers.Spotify.ClientSecret,
				cfg.Providers.Spotify.BaseURL,
				cfg.Providers.Spotify.TokenURL,
				time.Duration(cfg.Providers.Spotify.MinIntervalMS)*time.Millisecond,
			)
			if err != nil {
				return nil, fmt.Errorf("spotify client: %w", err)
			}
			sources = append(sources, discovery.NewSpotifySource(client))
		case "musicbrainz":
			client, err := musicbrainz.New(
				cfg.Providers.MusicBrainz.BaseURL,
				cfg.Providers.MusicBrainz.UserAgent,
				time.Duration(cfg.Providers.MusicBrainz.MinIntervalMS)*time.Millisecond,
			)
			if err != nil {
				return nil, fmt.Errorf("musicbrainz client: %w", err)
			}
			sources = append(sources, discovery.NewMusicBrainzSource(client))
		default:
			return nil, fmt.Errorf("unknown provider %q in providers.order", name)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no usable providers in %v", order)
	}
	return sources, nil
}

func parseKinds(raw []string) []musicapi.Kind {
	kinds := make([]musicapi.Kind, 0, len(raw))
	for _, value := range raw {
		kinds = append(kinds, musicapi.ParseKind(value))
	}
	return kinds
}
