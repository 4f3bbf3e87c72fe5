// Package discovery finds an artist's recent releases by walking a
// prioritized provider chain with a persistent cache in front. The first
// provider that returns at least one usable release wins the cycle for that
// artist; provider failures fall through rather than aborting.
package discovery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
	"rythmx/internal/store"
)

// ReleaseCache is the persistence the chain consults before and after
// provider calls. *store.Store satisfies it.
type ReleaseCache interface {
	GetReleases(ctx context.Context, artist string, maxAge time.Duration) ([]musicapi.Release, bool, error)
	ReplaceReleases(ctx context.Context, artist string, releases []musicapi.Release) error
	ClearReleases(ctx context.Context, artist string) error
}

var _ ReleaseCache = (*store.Store)(nil)

// Options filters what the chain returns.
type Options struct {
	// CacheTTL bounds how old a cache entry may be before providers are
	// consulted again. Zero or negative never expires.
	CacheTTL time.Duration
	// IgnoreKeywords drops releases whose title contains any entry,
	// case-insensitively.
	IgnoreKeywords []string
	// AllowedKinds limits release kinds. Empty allows everything.
	AllowedKinds []musicapi.Kind
}

// Result is one artist's discovery outcome.
type Result struct {
	Releases []musicapi.Release
	// ResolvedIDs holds artist IDs the chain had to look up by name during
	// this call, for the caller to merge into the identity cache.
	ResolvedIDs musicapi.ArtistIDs
	Provider    string
	FromCache   bool
}

// Chain walks providers in priority order.
type Chain struct {
	sources      []Source
	cache        ReleaseCache
	ttl          time.Duration
	ignoreWords  []string
	allowedKinds map[musicapi.Kind]struct{}
	logger       *slog.Logger
	now          func() time.Time
}

func NewChain(sources []Source, cache ReleaseCache, opts Options, logger *slog.Logger) *Chain {
	chain := &Chain{
		sources: sources,
		cache:   cache,
		ttl:     opts.CacheTTL,
		logger:  logging.NewComponentLogger(logger, "discovery"),
		now:     time.Now,
	}
	for _, word := range opts.IgnoreKeywords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			chain.ignoreWords = append(chain.ignoreWords, word)
		}
	}
	if len(opts.AllowedKinds) > 0 {
		chain.allowedKinds = make(map[musicapi.Kind]struct{}, len(opts.AllowedKinds))
		for _, kind := range opts.AllowedKinds {
			chain.allowedKinds[kind] = struct{}{}
		}
	}
	return chain
}

// Discover returns an artist's releases newer than since. knownIDs are
// per-provider artist IDs already on file; providers missing an ID are
// resolved by name and the result reported back in ResolvedIDs. force
// bypasses and clears the cache for this artist.
func (c *Chain) Discover(ctx context.Context, artist string, since time.Time, knownIDs musicapi.ArtistIDs, force bool) (Result, error) {
	var result Result

	if force {
		if err := c.cache.ClearReleases(ctx, artist); err != nil {
			c.logger.Warn("cache clear failed",
				logging.String(logging.FieldArtist, artist), logging.Error(err))
		}
	} else {
		cached, hit, err := c.cache.GetReleases(ctx, artist, c.ttl)
		if err != nil {
			c.logger.Warn("cache read failed",
				logging.String(logging.FieldArtist, artist), logging.Error(err))
		} else if hit {
			result.Releases = c.filter(cached)
			result.FromCache = true
			return result, nil
		}
	}

	for _, source := range c.sources {
		artistID := knownIDs.ForProvider(source.Name())
		if artistID == "" {
			resolved, err := source.ResolveArtistID(ctx, artist)
			if err != nil {
				c.logger.Warn("artist lookup failed",
					logging.String(logging.FieldProvider, source.Name()),
					logging.String(logging.FieldArtist, artist),
					logging.Error(err))
				continue
			}
			if resolved == "" {
				continue
			}
			artistID = resolved
			result.ResolvedIDs.SetForProvider(source.Name(), resolved)
		}

		releases, err := source.RecentAlbums(ctx, artistID, since)
		if err != nil {
			c.logger.Warn("release fetch failed",
				logging.String(logging.FieldProvider, source.Name()),
				logging.String(logging.FieldArtist, artist),
				logging.Error(err))
			continue
		}
		kept := c.filter(releases)
		if len(kept) == 0 {
			continue
		}
		for i := range kept {
			if kept[i].Artist == "" {
				kept[i].Artist = artist
			}
		}
		result.Releases = kept
		result.Provider = source.Name()
		c.logger.Info("releases discovered",
			logging.String(logging.FieldArtist, artist),
			logging.String(logging.FieldProvider, source.Name()),
			logging.Int(logging.FieldCount, len(kept)))
		break
	}

	if err := c.cache.ReplaceReleases(ctx, artist, result.Releases); err != nil {
		c.logger.Warn("cache write failed",
			logging.String(logging.FieldArtist, artist), logging.Error(err))
	}
	return result, nil
}

// filter drops future-dated, keyword-ignored, and disallowed-kind releases.
func (c *Chain) filter(releases []musicapi.Release) []musicapi.Release {
	now := c.now()
	kept := make([]musicapi.Release, 0, len(releases))
	for _, release := range releases {
		if release.FutureDated(now) {
			continue
		}
		if c.ignored(release.Title) {
			continue
		}
		if c.allowedKinds != nil {
			if _, ok := c.allowedKinds[release.Kind]; !ok {
				continue
			}
		}
		kept = append(kept, release)
	}
	return kept
}

func (c *Chain) ignored(title string) bool {
	lowered := strings.ToLower(title)
	for _, word := range c.ignoreWords {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}
