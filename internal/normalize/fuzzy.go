package normalize

import (
	"sort"
	"strings"

	"github.com/jhprks/damerau"
)

// AcceptThreshold is the minimum token-sort ratio for a fuzzy match to be
// accepted for automatic import.
const AcceptThreshold = 85

// StreamingThreshold is the lower threshold used by streaming-link
// search, paired with substring containment in either direction.
const StreamingThreshold = 60

// Score returns a similarity score in [0,100] between two raw strings.
// Exact equality after title normalization scores 100; otherwise the
// token-sort ratio is used.
func Score(a, b string) int {
	if Title(a) == Title(b) {
		return 100
	}
	return TokenSortRatio(a, b)
}

// TokenSortRatio tokenizes both strings, sorts each string's tokens
// alphabetically, and scores the two resulting strings with a
// Damerau-Levenshtein-based similarity ratio. Sorting tokens first makes
// the score order-insensitive, so "Davis Miles" vs "Miles Davis" scores
// 100. Punctuation is kept, so "Davis, Miles" vs "Miles Davis" scores 91
// (one edit over twelve characters).
func TokenSortRatio(a, b string) int {
	sa := sortedTokenString(a)
	sb := sortedTokenString(b)
	return int(stringRel(sa, sb) * 100)
}

// ContainsEither reports whether the normalized form of a contains the
// normalized form of b, or vice versa. Used alongside StreamingThreshold
// to permit matches like "Kind of Blue" against "Kind of Blue (Legacy
// Edition)".
func ContainsEither(a, b string) bool {
	na, nb := Title(a), Title(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

func sortedTokenString(s string) string {
	tokens := strings.Fields(Title(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// stringRel returns the Damerau-Levenshtein distance between a and b
// expressed as a similarity ratio in [0,1]: identical strings score 1,
// completely unrelated strings of equal length score close to 0.
func stringRel(a, b string) float64 {
	max := len([]rune(a))
	if n := len([]rune(b)); n > max {
		max = n
	} else if max == 0 {
		return 1
	}
	distance := damerau.DamerauLevenshteinDistance(a, b)
	rel := 1 - float64(distance)/float64(max)
	if rel < 0 {
		return 0
	}
	return rel
}
