package musicapi

import (
	"strings"
	"time"

	"rythmx/internal/textutil"
)

// Kind classifies a release.
type Kind string

const (
	KindAlbum   Kind = "album"
	KindEP      Kind = "ep"
	KindSingle  Kind = "single"
	KindUnknown Kind = ""
)

// ParseKind maps a provider's record-type string onto a Kind. Compilations
// count as albums. Unrecognized values classify as album: providers that
// omit the field overwhelmingly describe full releases, and the kind filter
// should not hide them.
func ParseKind(raw string) Kind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "album", "compilation", "lp":
		return KindAlbum
	case "ep":
		return KindEP
	case "single":
		return KindSingle
	default:
		return KindAlbum
	}
}

// Release is one catalog release as reported by a provider.
type Release struct {
	Artist          string
	Title           string
	Date            string // ISO 8601 date, may be empty
	Kind            Kind
	Source          string // provider tag: spotify, itunes, deezer, musicbrainz
	ProviderAlbumID string // the release's ID within Source's catalog
	Upcoming        bool
}

// Key returns the normalized (artist, title) identity used for dedup and
// cache rows. Two releases with equal keys are the same release regardless
// of provider.
func (r Release) Key() string {
	return textutil.Normalize(r.Artist) + "\x00" + textutil.NormalizeTitle(r.Title)
}

// ReleaseTime parses the release date. The second return is false when the
// date is absent or unparseable.
func (r Release) ReleaseTime() (time.Time, bool) {
	date := strings.TrimSpace(r.Date)
	if date == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if ts, err := time.Parse(layout, date); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// FutureDated reports whether the release date lies after now. Releases
// without a parseable date are never future-dated.
func (r Release) FutureDated(now time.Time) bool {
	ts, ok := r.ReleaseTime()
	if !ok {
		return false
	}
	return ts.After(now)
}

var kindSuffixes = []struct {
	suffix string
	kind   Kind
}{
	{" - single", KindSingle},
	{" - ep", KindEP},
}

// ClassifyTitle reconciles a provider-reported kind with the "- Single" and
// "- EP" title suffixes some catalogs append. The suffix wins when present
// and is stripped from the returned title.
func ClassifyTitle(title string, providerKind Kind) (string, Kind) {
	lowered := strings.ToLower(strings.TrimSpace(title))
	for _, entry := range kindSuffixes {
		if strings.HasSuffix(lowered, entry.suffix) {
			trimmed := strings.TrimSpace(title[:len(lowered)-len(entry.suffix)])
			if trimmed != "" {
				return trimmed, entry.kind
			}
		}
	}
	if providerKind == KindUnknown {
		return strings.TrimSpace(title), KindAlbum
	}
	return strings.TrimSpace(title), providerKind
}

// ArtistIDs carries an artist's identifiers across provider catalogs.
// Empty fields mean the ID is not yet known.
type ArtistIDs struct {
	ITunes      string
	Deezer      string
	Spotify     string
	MusicBrainz string
}

// Merge returns a copy of ids with empty fields filled from other. Known
// IDs are never overwritten.
func (ids ArtistIDs) Merge(other ArtistIDs) ArtistIDs {
	if ids.ITunes == "" {
		ids.ITunes = other.ITunes
	}
	if ids.Deezer == "" {
		ids.Deezer = other.Deezer
	}
	if ids.Spotify == "" {
		ids.Spotify = other.Spotify
	}
	if ids.MusicBrainz == "" {
		ids.MusicBrainz = other.MusicBrainz
	}
	return ids
}

// ForProvider returns the ID matching a provider tag.
func (ids ArtistIDs) ForProvider(provider string) string {
	switch provider {
	case "itunes":
		return ids.ITunes
	case "deezer":
		return ids.Deezer
	case "spotify":
		return ids.Spotify
	case "musicbrainz":
		return ids.MusicBrainz
	}
	return ""
}

// SetForProvider records an ID under a provider tag. Unknown tags are
// ignored.
func (ids *ArtistIDs) SetForProvider(provider, id string) {
	switch provider {
	case "itunes":
		ids.ITunes = id
	case "deezer":
		ids.Deezer = id
	case "spotify":
		ids.Spotify = id
	case "musicbrainz":
		ids.MusicBrainz = id
	}
}

// Dedup collapses releases sharing the same normalized identity, keeping
// the first occurrence. Input order is preserved, so callers control
// which provider wins.
func Dedup(releases []Release) []Release {
	seen := make(map[string]struct{}, len(releases))
	out := make([]Release, 0, len(releases))
	for _, release := range releases {
		key := release.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, release)
	}
	return out
}
