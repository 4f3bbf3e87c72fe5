// Package musicapi defines the release model shared by the provider
// clients and the discovery chain, together with the kind classification
// rules catalogs disagree on. Provider-specific clients live in the
// subpackages itunes, deezer, spotify, and musicbrainz.
package musicapi
