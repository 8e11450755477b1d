package lyrics

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/verselate/verselate/pkg/types"
)

// MatchThreshold is the minimum Jaro-Winkler similarity between the requested
// song and the provider's own metadata before a hit is accepted. Below it the
// hit is demoted to a miss so the dispatcher falls through to the next
// catalogue instead of returning the wrong song's lyrics.
const MatchThreshold = 0.75

// MatchesRequest reports whether the lyrics result plausibly belongs to the
// requested artist and title. Providers that do not echo metadata (empty
// Artist and Title on the result) are accepted as-is — there is nothing to
// verify against.
func MatchesRequest(artist, title string, l *types.Lyrics) bool {
	if l == nil {
		return false
	}
	if l.Artist == "" && l.Title == "" {
		return true
	}

	ok := true
	if l.Title != "" {
		ok = similarity(title, l.Title) >= MatchThreshold
	}
	if ok && l.Artist != "" {
		ok = similarity(artist, l.Artist) >= MatchThreshold
	}
	return ok
}

// similarity computes the best Jaro-Winkler score between the two strings,
// comparing both the normalised full strings and their space-stripped forms
// so that "Blackbird" still matches "Black Bird".
func similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	score := matchr.JaroWinkler(na, nb, false)
	ca := strings.ReplaceAll(na, " ", "")
	cb := strings.ReplaceAll(nb, " ", "")
	if s := matchr.JaroWinkler(ca, cb, false); s > score {
		score = s
	}
	return score
}

// normalize lowercases, strips punctuation, and collapses whitespace.
// Parenthesised suffixes like "(Remastered 2009)" are dropped before
// comparison since catalogues disagree wildly about them.
func normalize(s string) string {
	if i := strings.IndexAny(s, "(["); i > 0 {
		s = s[:i]
	}
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && b.Len() > 0 {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
