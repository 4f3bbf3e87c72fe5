package scheduler

import (
	"context"
	"fmt"

	"rythmx/internal/engine"
	"rythmx/internal/library"
	"rythmx/internal/logging"
)

// DiscoveryCandidate is one scored recommendation from the library's
// discovery pool.
type DiscoveryCandidate struct {
	Track library.PoolTrack
	Score float64
	Owned bool
}

// DiscoveryCandidates scores the library's discovery pool against the
// listener's current taste signals and returns candidates highest first.
// Each candidate carries whether the library already owns it so callers
// can filter or badge instead of re-suggesting owned tracks.
func (s *Scheduler) DiscoveryCandidates(ctx context.Context, limit int, newReleasesOnly bool) ([]DiscoveryCandidate, error) {
	pool, err := s.lib.DiscoveryPool(ctx, limit, newReleasesOnly)
	if err != nil {
		return nil, fmt.Errorf("fetch discovery pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	similar, err := s.lib.SimilarArtists(ctx, 0)
	if err != nil {
		s.logger.Warn("similar artists fetch failed", logging.Error(err))
	}

	period := s.store.SettingOrDefault(ctx, settingPeriod, s.cfg.LastFM.Period)
	plays := make(map[string]int)
	if topArtists, err := s.taste.TopArtists(ctx, period, s.cfg.LastFM.TopArtistLimit); err != nil {
		s.logger.Warn("top artists fetch failed", logging.Error(err))
	} else {
		for _, artist := range topArtists {
			plays[artist.Name] = artist.PlayCount
		}
	}

	lovedSet := make(map[string]struct{})
	if loved, err := s.taste.LovedArtistNames(ctx, s.cfg.LastFM.LovedLimit); err != nil {
		s.logger.Warn("loved artists fetch failed", logging.Error(err))
	} else {
		for _, artist := range loved {
			lovedSet[artist] = struct{}{}
		}
	}

	profile := engine.TasteProfile{
		TopArtists:     plays,
		LovedArtists:   lovedSet,
		SimilarArtists: similar,
	}

	scored := engine.ScoreCandidates(pool, profile)
	out := make([]DiscoveryCandidate, 0, len(scored))
	for _, candidate := range scored {
		owned := false
		if candidate.Track.SpotifyTrackID != "" {
			owned, err = s.lib.CheckOwnedExact(ctx, candidate.Track.SpotifyTrackID)
			if err != nil {
				s.logger.Warn("owned check failed",
					logging.String(logging.FieldArtist, candidate.Track.Artist),
					logging.Error(err))
				owned = false
			}
		}
		out = append(out, DiscoveryCandidate{
			Track: candidate.Track,
			Score: candidate.Score,
			Owned: owned,
		})
	}

	s.logger.Info("discovery candidates scored",
		logging.Int(logging.FieldCount, len(out)),
		logging.Bool("new_releases_only", newReleasesOnly))
	return out, nil
}
