// Package textutil provides the shared text normalization used across
// catalog matching, release caching, ignore filtering, and queue dedup.
//
// Every component that compares artist or album names goes through the same
// pipeline so that a match made in one place holds everywhere else:
//   - Unicode NFKC folding
//   - lowercasing
//   - leading article removal ("the", "a", "an")
//   - punctuation stripping
//   - whitespace collapsing
//
// Title normalization additionally strips featuring annotations before the
// common pipeline runs.
package textutil
