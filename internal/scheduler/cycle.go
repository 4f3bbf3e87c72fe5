package scheduler

import (
	"context"
	"fmt"
	"sort"

	"rythmx/internal/acquisition"
	"rythmx/internal/engine"
	"rythmx/internal/library"
	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
	"rythmx/internal/store"
	"rythmx/internal/textutil"
)

// executeCycle runs the stage pipeline. Stages 1-5 always run; stage 6
// (acquisition) only in cruise mode; stages 7-8 (playlists) in playlist and
// cruise modes.
func (s *Scheduler) executeCycle(ctx context.Context, cycleID string, mode Mode, force bool) (Result, error) {
	result := Result{Status: "ok", CycleID: cycleID, Mode: string(mode)}

	minListens := s.store.SettingIntOrDefault(ctx, settingMinListens, s.cfg.Cruise.MinListens)
	lookbackDays := s.store.SettingIntOrDefault(ctx, settingLookbackDays, s.cfg.Cruise.LookbackDays)
	maxPerCycle := s.store.SettingIntOrDefault(ctx, settingMaxPerCycle, s.cfg.Cruise.MaxPerCycle)
	period := s.store.SettingOrDefault(ctx, settingPeriod, s.cfg.LastFM.Period)

	if force {
		if err := s.store.ClearAllReleases(ctx); err != nil {
			s.logger.Warn("release cache clear failed", logging.Error(err))
		}
	}

	// Stage 1: qualified artists by listen threshold.
	topArtists, err := s.taste.TopArtists(ctx, period, s.cfg.LastFM.TopArtistLimit)
	if err != nil {
		return result, fmt.Errorf("fetch top artists: %w", err)
	}
	plays := make(map[string]int, len(topArtists))
	var qualified []string
	for _, artist := range topArtists {
		plays[artist.Name] = artist.PlayCount
		if artist.PlayCount >= minListens {
			qualified = append(qualified, artist.Name)
		}
	}
	result.ArtistsQualified = len(qualified)
	s.logger.Info("artists qualified",
		logging.String(logging.FieldStage, "taste"),
		logging.Int(logging.FieldCount, len(qualified)),
		logging.Int("min_listens", minListens))
	if len(qualified) == 0 {
		result.Message = "no_qualified_artists"
		return result, nil
	}

	// Stages 2-3: identity resolution and release discovery per artist.
	since := s.now().AddDate(0, 0, -lookbackDays)
	var allReleases []musicapi.Release
	libraryIDs := make(map[string]string, len(qualified))

	for _, artist := range qualified {
		known := s.mergedIDs(ctx, artist, force)

		libIDs, err := s.lib.ProviderArtistIDs(ctx, artist)
		if err != nil {
			s.logger.Warn("library ID lookup failed",
				logging.String(logging.FieldArtist, artist), logging.Error(err))
		}
		known = known.Merge(libIDs)

		if internalID, err := s.lib.ArtistID(ctx, artist); err == nil && internalID != "" {
			libraryIDs[artist] = internalID
		}

		discovered, err := s.chain.Discover(ctx, artist, since, known, force)
		if err != nil {
			s.logger.Warn("discovery failed",
				logging.String(logging.FieldArtist, artist), logging.Error(err))
			continue
		}
		if discovered.Provider != "" {
			result.Provider = discovered.Provider
		}

		// Persist IDs learned this cycle; the additive merge never
		// overwrites ones already on file.
		learned := libIDs.Merge(discovered.ResolvedIDs)
		if learned != (musicapi.ArtistIDs{}) {
			if err := s.store.UpsertIdentity(ctx, store.Identity{
				Artist:     artist,
				IDs:        learned,
				Confidence: 90,
				Method:     "library_enrichment",
				ResolvedAt: s.now().UTC(),
			}); err != nil {
				s.logger.Warn("identity write failed",
					logging.String(logging.FieldArtist, artist), logging.Error(err))
			}
		}

		allReleases = append(allReleases, discovered.Releases...)
	}

	// Stage 4: dedup and ignore filters.
	unique := s.filterReleases(musicapi.Dedup(allReleases))
	result.ReleasesFound = len(unique)
	s.logger.Info("unique releases",
		logging.String(logging.FieldStage, "discovery"),
		logging.Int(logging.FieldCount, len(unique)))

	// Stage 5: ownership check.
	var owned, unowned []musicapi.Release
	ownedKeys := make(map[string]string)
	for _, release := range unique {
		ratingKey, err := s.checkOwned(ctx, release, libraryIDs)
		if err != nil {
			s.logger.Warn("ownership check failed",
				logging.String(logging.FieldArtist, release.Artist),
				logging.String(logging.FieldAlbum, release.Title),
				logging.Error(err))
		}
		if ratingKey != "" {
			owned = append(owned, release)
			ownedKeys[release.Key()] = ratingKey
		} else {
			unowned = append(unowned, release)
		}
	}
	result.Owned = len(owned)
	result.Unowned = len(unowned)
	s.logger.Info("ownership split",
		logging.String(logging.FieldStage, "ownership"),
		logging.Int("owned", len(owned)),
		logging.Int("unowned", len(unowned)))

	// Stage 6: acquisition queue, cruise only.
	queuedKeys := make(map[string]struct{})
	if mode == ModeCruise {
		queued, err := s.enqueueUnowned(ctx, unowned, maxPerCycle, queuedKeys)
		if err != nil {
			return result, err
		}
		result.Queued = queued
	}

	// Stages 7-8: playlists.
	if mode.buildsPlaylist() {
		prefix := s.store.SettingOrDefault(ctx, "playlist_prefix", s.cfg.Cruise.PlaylistPrefix)
		playlistName := fmt.Sprintf("%s %s", prefix, s.now().UTC().Format("2006-01-02"))
		result.PlaylistName = playlistName

		tracks, pushedID := s.buildCyclePlaylist(ctx, playlistName, owned, unowned, libraryIDs)
		result.PlaylistTracks = tracks
		result.PushedPlaylistID = pushedID

		s.autoSyncPlaylists(ctx, owned, plays, libraryIDs)
	}

	// History, non-dry only.
	if mode != ModeDry {
		s.writeHistory(ctx, cycleID, mode, owned, unowned, queuedKeys)
	}
	return result, nil
}

// mergedIDs runs identity resolution and folds in whatever the identity
// cache already holds.
func (s *Scheduler) mergedIDs(ctx context.Context, artist string, force bool) musicapi.ArtistIDs {
	var ids musicapi.ArtistIDs
	resolution, err := s.resolver.Resolve(ctx, artist, force)
	if err != nil {
		s.logger.Warn("identity resolution failed",
			logging.String(logging.FieldArtist, artist), logging.Error(err))
	} else if resolution.CatalogArtistID != "" {
		ids.ITunes = resolution.CatalogArtistID
	}
	if cached, err := s.store.GetIdentity(ctx, artist); err == nil {
		ids = ids.Merge(cached.IDs)
	}
	return ids
}

// filterReleases drops ignore-listed artists. Both sides are compared on
// the punctuation-stripped lowercase form. Title keywords are already
// filtered inside the discovery chain.
func (s *Scheduler) filterReleases(releases []musicapi.Release) []musicapi.Release {
	ignoreArtists := make(map[string]struct{}, len(s.cfg.Cruise.IgnoreArtists))
	for _, artist := range s.cfg.Cruise.IgnoreArtists {
		ignoreArtists[textutil.StripPunctuation(artist)] = struct{}{}
	}
	kept := make([]musicapi.Release, 0, len(releases))
	for _, release := range releases {
		if _, ok := ignoreArtists[textutil.StripPunctuation(release.Artist)]; ok {
			s.logger.Debug("artist ignored",
				logging.String(logging.FieldArtist, release.Artist))
			continue
		}
		kept = append(kept, release)
	}
	return kept
}

// checkOwned assembles the richest query the caches allow and asks the
// library.
func (s *Scheduler) checkOwned(ctx context.Context, release musicapi.Release, libraryIDs map[string]string) (string, error) {
	query := library.AlbumQuery{
		Artist:          release.Artist,
		Album:           release.Title,
		LibraryArtistID: libraryIDs[release.Artist],
	}
	if cached, err := s.store.GetIdentity(ctx, release.Artist); err == nil {
		query.ArtistIDs = cached.IDs
	}
	switch release.Source {
	case "itunes":
		query.ITunesAlbumID = release.ProviderAlbumID
	case "deezer":
		query.DeezerAlbumID = release.ProviderAlbumID
	case "spotify":
		query.SpotifyAlbumID = release.ProviderAlbumID
	}
	return s.lib.CheckAlbumOwned(ctx, query)
}

// enqueueUnowned queues the newest unowned releases, skipping anything
// future-dated or already active in the queue, capped per cycle.
func (s *Scheduler) enqueueUnowned(ctx context.Context, unowned []musicapi.Release, maxPerCycle int, queuedKeys map[string]struct{}) (int, error) {
	candidates := make([]musicapi.Release, len(unowned))
	copy(candidates, unowned)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Date > candidates[j].Date
	})

	now := s.now()
	queued := 0
	for _, release := range candidates {
		if maxPerCycle > 0 && queued >= maxPerCycle {
			break
		}
		ok, err := acquisition.Enqueueable(ctx, s.store, release, now)
		if err != nil {
			return queued, fmt.Errorf("queue lookup for %q: %w", release.Title, err)
		}
		if !ok {
			continue
		}
		if _, created, err := s.store.Enqueue(ctx, release); err != nil {
			return queued, fmt.Errorf("enqueue %q: %w", release.Title, err)
		} else if created {
			queued++
			queuedKeys[release.Key()] = struct{}{}
			s.logger.Info("release queued",
				logging.String(logging.FieldArtist, release.Artist),
				logging.String(logging.FieldAlbum, release.Title))
		}
	}
	return queued, nil
}

// buildCyclePlaylist saves the dated playlist: owned releases expanded to
// their library tracks, unowned releases as placeholder rows without a
// rating key. Pushes to the media server when one is configured; push
// failure does not fail the cycle.
func (s *Scheduler) buildCyclePlaylist(ctx context.Context, name string, owned, unowned []musicapi.Release, libraryIDs map[string]string) (int, string) {
	var entries []store.PlaylistEntry
	var ratingKeys []string

	for _, release := range owned {
		internalID := libraryIDs[release.Artist]
		if internalID == "" {
			continue
		}
		tracks, err := s.lib.TracksForAlbum(ctx, internalID, release.Title)
		if err != nil {
			s.logger.Warn("track expansion failed",
				logging.String(logging.FieldArtist, release.Artist),
				logging.String(logging.FieldAlbum, release.Title),
				logging.Error(err))
			continue
		}
		for _, track := range tracks {
			entries = append(entries, store.PlaylistEntry{
				Position:  len(entries),
				Artist:    release.Artist,
				Album:     release.Title,
				RatingKey: track.RatingKey,
			})
			ratingKeys = append(ratingKeys, track.RatingKey)
		}
	}
	for _, release := range unowned {
		entries = append(entries, store.PlaylistEntry{
			Position: len(entries),
			Artist:   release.Artist,
			Album:    release.Title,
		})
	}

	playlist, err := s.store.UpsertPlaylist(ctx, name, "cycle", false)
	if err != nil {
		s.logger.Warn("playlist save failed",
			logging.String("playlist", name), logging.Error(err))
		return 0, ""
	}
	if err := s.store.ReplacePlaylistEntries(ctx, playlist.ID, entries); err != nil {
		s.logger.Warn("playlist entries save failed",
			logging.String("playlist", name), logging.Error(err))
		return 0, ""
	}
	s.logger.Info("playlist saved",
		logging.String(logging.FieldStage, "playlist"),
		logging.String("playlist", name),
		logging.Int("tracks", len(ratingKeys)),
		logging.Int("missing", len(unowned)))

	if s.pusher == nil || len(ratingKeys) == 0 {
		return len(entries), ""
	}
	pushedID, err := s.pusher.CreateOrUpdatePlaylist(ctx, name, ratingKeys)
	if err != nil {
		s.logger.Warn("playlist push failed",
			logging.String("playlist", name), logging.Error(err))
		return len(entries), ""
	}
	return len(entries), pushedID
}

// autoSyncPlaylists rebuilds playlists flagged auto_sync using data already
// fetched this cycle.
func (s *Scheduler) autoSyncPlaylists(ctx context.Context, owned []musicapi.Release, plays map[string]int, libraryIDs map[string]string) {
	playlists, err := s.store.AutoSyncPlaylists(ctx)
	if err != nil {
		s.logger.Warn("auto-sync playlist list failed", logging.Error(err))
		return
	}
	for _, playlist := range playlists {
		switch playlist.Source {
		case "cycle":
			s.resyncCyclePlaylist(ctx, playlist, owned, libraryIDs)
		case "taste":
			s.resyncTastePlaylist(ctx, playlist, plays, libraryIDs)
		default:
			s.logger.Debug("no auto-sync handler",
				logging.String("playlist", playlist.Name),
				logging.String("source", playlist.Source))
		}
	}
}

func (s *Scheduler) resyncCyclePlaylist(ctx context.Context, playlist *store.Playlist, owned []musicapi.Release, libraryIDs map[string]string) {
	var entries []store.PlaylistEntry
	for _, release := range owned {
		internalID := libraryIDs[release.Artist]
		if internalID == "" {
			continue
		}
		tracks, err := s.lib.TracksForAlbum(ctx, internalID, release.Title)
		if err != nil {
			continue
		}
		for _, track := range tracks {
			entries = append(entries, store.PlaylistEntry{
				Position:  len(entries),
				Artist:    release.Artist,
				Album:     release.Title,
				RatingKey: track.RatingKey,
			})
		}
	}
	if err := s.store.ReplacePlaylistEntries(ctx, playlist.ID, entries); err != nil {
		s.logger.Warn("auto-sync failed",
			logging.String("playlist", playlist.Name), logging.Error(err))
		return
	}
	s.logger.Info("playlist auto-synced",
		logging.String("playlist", playlist.Name),
		logging.Int("tracks", len(entries)))
}

func (s *Scheduler) resyncTastePlaylist(ctx context.Context, playlist *store.Playlist, plays map[string]int, libraryIDs map[string]string) {
	loved, err := s.taste.LovedArtistNames(ctx, s.cfg.LastFM.LovedLimit)
	if err != nil {
		s.logger.Warn("loved artists fetch failed", logging.Error(err))
	}
	lovedSet := make(map[string]struct{}, len(loved))
	for _, artist := range loved {
		lovedSet[artist] = struct{}{}
	}

	artistTracks := make(map[string][]library.Track)
	for artist := range plays {
		internalID := libraryIDs[artist]
		if internalID == "" {
			resolved, err := s.lib.ArtistID(ctx, artist)
			if err != nil || resolved == "" {
				continue
			}
			internalID = resolved
		}
		tracks, err := s.lib.TracksForArtist(ctx, internalID)
		if err != nil || len(tracks) == 0 {
			continue
		}
		artistTracks[artist] = tracks
	}

	profile := engine.TasteProfile{TopArtists: plays, LovedArtists: lovedSet}
	scored := engine.BuildTastePlaylist(profile, artistTracks, 0, 0, s.now())
	entries := make([]store.PlaylistEntry, 0, len(scored))
	for _, track := range scored {
		entries = append(entries, store.PlaylistEntry{
			Position:  track.Position,
			Artist:    track.Artist,
			Album:     track.Album,
			RatingKey: track.RatingKey,
		})
	}
	if err := s.store.ReplacePlaylistEntries(ctx, playlist.ID, entries); err != nil {
		s.logger.Warn("auto-sync failed",
			logging.String("playlist", playlist.Name), logging.Error(err))
		return
	}
	s.logger.Info("taste playlist auto-synced",
		logging.String("playlist", playlist.Name),
		logging.Int("tracks", len(entries)))
}

// writeHistory records this cycle's per-release outcomes.
func (s *Scheduler) writeHistory(ctx context.Context, cycleID string, mode Mode, owned, unowned []musicapi.Release, queuedKeys map[string]struct{}) {
	record := func(release musicapi.Release, outcome, reason string) {
		err := s.store.AddHistory(ctx, store.HistoryEntry{
			CycleID: cycleID,
			Mode:    string(mode),
			Artist:  release.Artist,
			Album:   release.Title,
			Outcome: outcome,
			Reason:  reason,
		})
		if err != nil {
			s.logger.Warn("history write failed",
				logging.String(logging.FieldAlbum, release.Title), logging.Error(err))
		}
	}
	for _, release := range owned {
		record(release, store.OutcomeOwned, "")
	}
	for _, release := range unowned {
		if _, ok := queuedKeys[release.Key()]; ok {
			record(release, store.OutcomeQueued, "")
			continue
		}
		if mode == ModeCruise {
			if active, err := s.store.IsQueued(ctx, release.Artist, release.Title); err == nil && active {
				record(release, store.OutcomeQueued, "already_queued")
				continue
			}
			record(release, store.OutcomeSkipped, "")
			continue
		}
		record(release, store.OutcomeSkipped, "playlist_mode")
	}
}
