package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	punctPattern      = regexp.MustCompile(`[^\pL\pN\s]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	featParenPattern  = regexp.MustCompile(`(?i)\s*[(\[][^)\]]*\b(?:feat|ft|featuring)\b[^)\]]*[)\]]`)
	featTrailPattern  = regexp.MustCompile(`(?i)\s+(?:feat|ft|featuring)\.?\s+.*$`)
	trackNumPattern   = regexp.MustCompile(`^track\s*\d+$`)
)

var leadingArticles = []string{"the ", "a ", "an "}

// genericTitles are track names too common to carry identity signal on
// their own. Overlap scoring skips them.
var genericTitles = map[string]struct{}{
	"intro":        {},
	"outro":        {},
	"interlude":    {},
	"untitled":     {},
	"home":         {},
	"alive":        {},
	"stay":         {},
	"you":          {},
	"run":          {},
	"fire":         {},
	"gold":         {},
	"breathe":      {},
	"forever":      {},
	"heaven":       {},
	"angel":        {},
	"crazy":        {},
	"dreams":       {},
	"hold on":      {},
	"let go":       {},
	"live":         {},
	"acoustic":     {},
	"remix":        {},
	"freestyle":    {},
	"skit":         {},
	"prelude":      {},
	"instrumental": {},
}

// Normalize lowers text into its canonical comparison form: NFKC folding,
// lowercase, leading article removal, punctuation stripping, and whitespace
// collapsing. Two names that normalize equal are treated as the same name
// everywhere in the pipeline.
func Normalize(text string) string {
	s := norm.NFKC.String(text)
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	for _, article := range leadingArticles {
		if strings.HasPrefix(s, article) {
			s = s[len(article):]
			break
		}
	}
	s = punctPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeTitle strips featuring annotations, both parenthesized and
// trailing, before applying Normalize. Used for track and album titles
// where guest credits vary between catalogs.
func NormalizeTitle(title string) string {
	s := featParenPattern.ReplaceAllString(title, "")
	s = featTrailPattern.ReplaceAllString(s, "")
	return Normalize(s)
}

// StripPunctuation removes punctuation and lowercases without touching
// articles or annotations. This is the canonical form for ignore-list
// entries, applied identically at config load and at filter time.
func StripPunctuation(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = punctPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// IsGenericTitle reports whether a normalized track title is too common to
// count toward catalog overlap: one or two characters, the fixed word list,
// or bare "track NN" placeholders.
func IsGenericTitle(normalized string) bool {
	if utf8.RuneCountInString(normalized) <= 2 {
		return true
	}
	if _, ok := genericTitles[normalized]; ok {
		return true
	}
	return trackNumPattern.MatchString(normalized)
}

// SearchVariants returns the query plus cleanup variants worth retrying when
// a provider search comes back empty. Ampersands are the common offender:
// catalogs disagree on "&" versus "and".
func SearchVariants(query string) []string {
	variants := []string{query}
	if strings.Contains(query, "&") {
		variants = append(variants, strings.ReplaceAll(query, "&", "and"))
	}
	if trimmed := punctPattern.ReplaceAllString(query, " "); trimmed != query {
		variants = append(variants, whitespacePattern.ReplaceAllString(strings.TrimSpace(trimmed), " "))
	}
	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
