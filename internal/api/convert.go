package api

import (
	"rythmx/internal/identity"
	"rythmx/internal/scheduler"
)

// FromCycleResult converts a scheduler result to its wire shape.
func FromCycleResult(result scheduler.Result) CycleResult {
	return CycleResult{
		Status:           result.Status,
		Reason:           result.Reason,
		Message:          result.Message,
		CycleID:          result.CycleID,
		Mode:             result.Mode,
		ArtistsQualified: result.ArtistsQualified,
		ReleasesFound:    result.ReleasesFound,
		Owned:            result.Owned,
		Unowned:          result.Unowned,
		Queued:           result.Queued,
		PlaylistTracks:   result.PlaylistTracks,
		PlaylistName:     result.PlaylistName,
		PushedPlaylistID: result.PushedPlaylistID,
		Provider:         result.Provider,
	}
}

// FromSchedulerStatus converts scheduler state to its wire shape.
func FromSchedulerStatus(status scheduler.Status) SchedulerStatus {
	out := SchedulerStatus{
		Running:    status.Running,
		Enabled:    status.Enabled,
		Mode:       status.Mode,
		CycleHours: status.CycleHours,
		LastRun:    status.LastRun,
	}
	if status.LastResult != nil {
		converted := FromCycleResult(*status.LastResult)
		out.LastResult = &converted
	}
	return out
}

// FromResolution converts an identity resolution, candidate debug output
// included.
func FromResolution(resolution identity.Resolution) IdentityResolution {
	candidates := make([]IdentityCandidate, 0, len(resolution.Candidates))
	for _, candidate := range resolution.Candidates {
		candidates = append(candidates, IdentityCandidate{
			Name:    candidate.Name,
			ID:      candidate.ID,
			Score:   candidate.Score,
			Overlap: candidate.Overlap,
		})
	}
	return IdentityResolution{
		Artist:            resolution.Artist,
		CatalogArtistID:   resolution.CatalogArtistID,
		CatalogArtistName: resolution.CatalogArtistName,
		Confidence:        resolution.Confidence,
		Method:            resolution.Method,
		Reasons:           resolution.Reasons,
		FromCache:         resolution.FromCache,
		Candidates:        candidates,
	}
}

// FromDiscoveryCandidate converts a scored pool track to its wire shape.
func FromDiscoveryCandidate(candidate scheduler.DiscoveryCandidate) DiscoveryCandidate {
	return DiscoveryCandidate{
		Track:          candidate.Track.TrackName,
		Artist:         candidate.Track.Artist,
		Album:          candidate.Track.Album,
		SpotifyTrackID: candidate.Track.SpotifyTrackID,
		ReleaseDate:    candidate.Track.ReleaseDate,
		NewRelease:     candidate.Track.NewRelease,
		Popularity:     candidate.Track.Popularity,
		Score:          candidate.Score,
		Owned:          candidate.Owned,
	}
}
