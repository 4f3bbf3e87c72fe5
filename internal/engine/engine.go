// Package engine holds the taste-scoring math. Everything here is a pure
// function over data the caller already fetched; no I/O, so every rule is
// trivially testable.
package engine

import (
	"math"
	"sort"
	"time"

	"rythmx/internal/library"
)

// TasteProfile is the listener signal set scoring runs against.
type TasteProfile struct {
	// TopArtists maps artist name to play count.
	TopArtists map[string]int
	// LovedArtists holds artists with explicit affinity.
	LovedArtists map[string]struct{}
	// SimilarArtists is the library's taste graph.
	SimilarArtists map[string]library.SimilarArtist
}

// Loved reports explicit affinity for an artist.
func (p TasteProfile) Loved(artist string) bool {
	_, ok := p.LovedArtists[artist]
	return ok
}

// ScoredTrack is a pool candidate with its recommendation score.
type ScoredTrack struct {
	Track library.PoolTrack
	Score float64
}

// ScoreCandidate scores one discovery-pool track against the listener's
// taste. Popularity contributes up to 40 points, the taste graph 5 per
// shared similar artist, play history up to 20, plus flat bonuses for loved
// artists and fresh releases.
func ScoreCandidate(track library.PoolTrack, profile TasteProfile) float64 {
	score := track.Popularity * 0.4

	if similar, ok := profile.SimilarArtists[track.Artist]; ok {
		score += float64(similar.Occurrences) * 5.0
	}

	plays := float64(profile.TopArtists[track.Artist])
	score += math.Min(plays/10.0, 20.0)

	if profile.Loved(track.Artist) {
		score += 15.0
	}
	if track.NewRelease {
		score += 15.0
	}
	return round2(score)
}

// ScoreCandidates scores every candidate and returns them highest first.
func ScoreCandidates(tracks []library.PoolTrack, profile TasteProfile) []ScoredTrack {
	scored := make([]ScoredTrack, 0, len(tracks))
	for _, track := range tracks {
		scored = append(scored, ScoredTrack{Track: track, Score: ScoreCandidate(track, profile)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// PlaylistTrack is one entry of an assembled taste playlist.
type PlaylistTrack struct {
	Position       int
	Artist         string
	Title          string
	Album          string
	AlbumYear      int
	RatingKey      string
	SpotifyTrackID string
	Score          float64
}

// BuildTastePlaylist assembles a playlist from owned tracks weighted by the
// listener's taste: play count over 5 as the base, +15 for loved artists,
// +10 for albums from the current or previous year. A per-artist cap keeps
// the playlist from collapsing onto one heavy-rotation artist.
func BuildTastePlaylist(profile TasteProfile, artistTracks map[string][]library.Track, limit, maxPerArtist int, now time.Time) []PlaylistTrack {
	if limit <= 0 {
		limit = 50
	}
	if maxPerArtist <= 0 {
		maxPerArtist = 2
	}
	currentYear := now.UTC().Year()

	artists := make([]string, 0, len(artistTracks))
	for artist := range artistTracks {
		artists = append(artists, artist)
	}
	sort.Strings(artists)

	var scored []PlaylistTrack
	for _, artist := range artists {
		base := float64(profile.TopArtists[artist]) / 5.0
		if profile.Loved(artist) {
			base += 15.0
		}
		for _, track := range artistTracks[artist] {
			score := base
			if track.AlbumYear >= currentYear-1 {
				score += 10.0
			}
			scored = append(scored, PlaylistTrack{
				Artist:         artist,
				Title:          track.Title,
				Album:          track.Album,
				AlbumYear:      track.AlbumYear,
				RatingKey:      track.RatingKey,
				SpotifyTrackID: track.SpotifyTrackID,
				Score:          round2(score),
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	counts := make(map[string]int)
	result := make([]PlaylistTrack, 0, limit)
	for _, track := range scored {
		if counts[track.Artist] >= maxPerArtist {
			continue
		}
		counts[track.Artist]++
		track.Position = len(result)
		result = append(result, track)
		if len(result) >= limit {
			break
		}
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
