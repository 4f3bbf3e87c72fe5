// Package identity resolves listener artist names to confirmed catalog
// identifiers. The signal is top-track overlap: an artist whose catalog top
// tracks match the listener's taste-source top tracks is almost certainly
// the same artist, whatever the name collision situation looks like.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
	"rythmx/internal/musicapi/itunes"
	"rythmx/internal/store"
	"rythmx/internal/textutil"
)

const (
	candidateLimit   = 5
	overlapCheckTop  = 3
	topTrackLimit    = 10
	overlapBoost     = 200
	scoreExact       = 1000
	scoreContains    = 500
	scoreContainedIn = 300
)

// TasteSource supplies the listener's top track titles for an artist.
type TasteSource interface {
	ArtistTopTracks(ctx context.Context, artist string, limit int) ([]string, error)
}

// Catalog is the confirmatory catalog searched for artist candidates.
// *itunes.Client satisfies it.
type Catalog interface {
	SearchArtists(ctx context.Context, name string, limit int) ([]itunes.Artist, error)
	TopTracks(ctx context.Context, artistID int64, limit int) ([]string, error)
}

// Cache persists resolutions between cycles.
type Cache interface {
	GetIdentity(ctx context.Context, artist string) (*store.Identity, error)
	UpsertIdentity(ctx context.Context, identity store.Identity) error
}

// Candidate is one scored catalog candidate. Overlap is -1 when the
// candidate was never checked against taste data.
type Candidate struct {
	Name    string
	ID      int64
	Score   int
	Overlap int
}

// Resolution is the outcome of resolving one artist name. A resolution with
// an empty CatalogArtistID is valid and means "resolved to nothing";
// callers must not treat it as an error.
type Resolution struct {
	Artist            string
	CatalogArtistID   string
	CatalogArtistName string
	Confidence        int
	Method            string
	Reasons           []string
	FromCache         bool
	Candidates        []Candidate
}

// HighConfidence reports whether the resolution is trustworthy enough to
// reuse without re-resolving.
func (r Resolution) HighConfidence(threshold int) bool {
	return r.Confidence >= threshold
}

// Resolver resolves artist identities with a persistent cache in front.
type Resolver struct {
	taste     TasteSource
	catalog   Catalog
	cache     Cache
	threshold int
	maxAge    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Options tunes the resolver. Zero values fall back to the defaults the
// confidence model was calibrated against.
type Options struct {
	// ConfidenceThreshold is the minimum cached confidence worth reusing.
	ConfidenceThreshold int
	// CacheMaxAge is how long a high-confidence resolution stays fresh.
	CacheMaxAge time.Duration
}

func NewResolver(taste TasteSource, catalog Catalog, cache Cache, opts Options, logger *slog.Logger) *Resolver {
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = 85
	}
	if opts.CacheMaxAge <= 0 {
		opts.CacheMaxAge = 30 * 24 * time.Hour
	}
	return &Resolver{
		taste:     taste,
		catalog:   catalog,
		cache:     cache,
		threshold: opts.ConfidenceThreshold,
		maxAge:    opts.CacheMaxAge,
		logger:    logging.NewComponentLogger(logger, "identity"),
		now:       time.Now,
	}
}

// Resolve maps an artist name to a confirmed catalog artist ID. force skips
// the cache check; the result is always written back to the cache.
func (r *Resolver) Resolve(ctx context.Context, artist string, force bool) (Resolution, error) {
	result := Resolution{Artist: artist, Confidence: 80, Method: "name_only"}

	trimmed := textutil.Normalize(artist)
	if trimmed == "" {
		result.Method = "empty_name"
		result.Reasons = append(result.Reasons, "empty_name")
		return result, nil
	}

	if !force {
		if cached, ok := r.cachedResolution(ctx, artist); ok {
			return cached, nil
		} else if cached.Reasons != nil {
			result.Reasons = cached.Reasons
		}
	}

	tasteTitles := r.tasteTitles(ctx, artist)
	if len(tasteTitles) > 0 {
		result.Reasons = append(result.Reasons, "taste_top_tracks_available")
	} else {
		result.Reasons = append(result.Reasons, "taste_top_tracks_unavailable")
	}

	rawCandidates, err := r.catalog.SearchArtists(ctx, artist, candidateLimit)
	if err != nil {
		return result, fmt.Errorf("search catalog candidates for %q: %w", artist, err)
	}
	if len(rawCandidates) == 0 {
		result.Reasons = append(result.Reasons, "itunes_no_candidates")
		result.Method = "itunes_no_candidates"
		r.logger.Info("no catalog candidates",
			logging.String(logging.FieldArtist, artist))
		r.writeCache(ctx, result)
		return result, nil
	}
	result.Reasons = append(result.Reasons, "itunes_search_ok")

	candidates := scoreNames(trimmed, rawCandidates)
	r.applyOverlap(ctx, candidates, tasteTitles)

	winner := candidates[0]
	result.Candidates = candidates
	result.CatalogArtistID = strconv.FormatInt(winner.ID, 10)
	result.CatalogArtistName = winner.Name
	result.Confidence, result.Method = confidenceFor(winner.Overlap)
	if winner.Overlap >= 0 {
		result.Reasons = append(result.Reasons, fmt.Sprintf("track_overlap:%d", winner.Overlap))
	}
	result.Reasons = append(result.Reasons, result.Method)

	r.logger.Info("identity resolved",
		logging.String(logging.FieldArtist, artist),
		logging.String("catalog_id", result.CatalogArtistID),
		logging.String("catalog_name", result.CatalogArtistName),
		logging.Int("confidence", result.Confidence),
		logging.Int("overlap", winner.Overlap))

	r.writeCache(ctx, result)
	return result, nil
}

// cachedResolution returns a reusable cached resolution, or a non-ok
// Resolution whose Reasons explain why the cache entry was not reused.
func (r *Resolver) cachedResolution(ctx context.Context, artist string) (Resolution, bool) {
	cached, err := r.cache.GetIdentity(ctx, artist)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("identity cache read failed",
				logging.String(logging.FieldArtist, artist), logging.Error(err))
		}
		return Resolution{}, false
	}
	if cached.IDs.ITunes == "" {
		return Resolution{}, false
	}
	age := r.now().Sub(cached.ResolvedAt)
	if cached.Confidence >= r.threshold && age < r.maxAge {
		r.logger.Debug("identity cache hit",
			logging.String(logging.FieldArtist, artist),
			logging.Int("confidence", cached.Confidence))
		return Resolution{
			Artist:            artist,
			CatalogArtistID:   cached.IDs.ITunes,
			CatalogArtistName: cached.CatalogArtistName,
			Confidence:        cached.Confidence,
			Method:            "cache_hit",
			Reasons:           []string{"cache_hit"},
			FromCache:         true,
		}, true
	}
	reason := "cache_stale_retry"
	if cached.Confidence < r.threshold {
		reason = "cache_low_confidence_retry"
	}
	return Resolution{Reasons: []string{reason}}, false
}

// tasteTitles fetches and normalizes the listener's top tracks, dropping
// titles too generic to carry signal. Taste failures degrade to name-only
// matching rather than failing the resolution.
func (r *Resolver) tasteTitles(ctx context.Context, artist string) map[string]struct{} {
	raw, err := r.taste.ArtistTopTracks(ctx, artist, topTrackLimit)
	if err != nil {
		r.logger.Warn("taste top tracks unavailable",
			logging.String(logging.FieldArtist, artist), logging.Error(err))
		return nil
	}
	return normalizeTitleSet(raw)
}

func normalizeTitleSet(titles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		normalized := textutil.NormalizeTitle(title)
		if textutil.IsGenericTitle(normalized) {
			continue
		}
		set[normalized] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func scoreNames(normalizedQuery string, raw []itunes.Artist) []Candidate {
	candidates := make([]Candidate, 0, len(raw))
	for _, artist := range raw {
		candidateNorm := textutil.Normalize(artist.Name)
		score := 0
		switch {
		case candidateNorm == normalizedQuery:
			score = scoreExact
		case contains(candidateNorm, normalizedQuery):
			score = scoreContains
		case len(candidateNorm) > 2 && contains(normalizedQuery, candidateNorm):
			score = scoreContainedIn
		}
		candidates = append(candidates, Candidate{
			Name:    artist.Name,
			ID:      artist.ID,
			Score:   score,
			Overlap: -1,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// applyOverlap fetches catalog top tracks for the leading candidates and
// boosts their scores by the taste-title intersection.
func (r *Resolver) applyOverlap(ctx context.Context, candidates []Candidate, tasteTitles map[string]struct{}) {
	if len(tasteTitles) == 0 {
		return
	}
	limit := overlapCheckTop
	if len(candidates) < limit {
		limit = len(candidates)
	}
	for i := 0; i < limit; i++ {
		titles, err := r.catalog.TopTracks(ctx, candidates[i].ID, topTrackLimit)
		if err != nil {
			r.logger.Warn("catalog top tracks failed",
				logging.Int64("candidate_id", candidates[i].ID), logging.Error(err))
			continue
		}
		overlap := 0
		for normalized := range normalizeTitleSet(titles) {
			if _, ok := tasteTitles[normalized]; ok {
				overlap++
			}
		}
		candidates[i].Overlap = overlap
		candidates[i].Score += overlap * overlapBoost
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

// confidenceFor maps a winner's taste overlap to confidence and method tag.
// Overlap -1 means taste data was unavailable.
func confidenceFor(overlap int) (int, string) {
	switch {
	case overlap >= 3:
		return 100, "track_overlap_3plus"
	case overlap == 2:
		return 92, "track_overlap_2"
	case overlap == 1:
		return 86, "track_overlap_1"
	default:
		return 80, "name_only"
	}
}

func (r *Resolver) writeCache(ctx context.Context, result Resolution) {
	identity := store.Identity{
		Artist:            result.Artist,
		IDs:               musicapi.ArtistIDs{ITunes: result.CatalogArtistID},
		CatalogArtistName: result.CatalogArtistName,
		Confidence:        result.Confidence,
		Method:            result.Method,
		ResolvedAt:        r.now().UTC(),
	}
	if err := r.cache.UpsertIdentity(ctx, identity); err != nil {
		r.logger.Warn("identity cache write failed",
			logging.String(logging.FieldArtist, result.Artist), logging.Error(err))
	}
}

func contains(haystack, needle string) bool {
	return needle != "" && strings.Contains(haystack, needle)
}
