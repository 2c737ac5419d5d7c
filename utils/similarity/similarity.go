// Package similarity ranks catalog titles against a search query.
package similarity

import (
	"strings"
	"unicode"
)

// Score rates how well a title matches a query, from 0.0 (unrelated) to
// 1.0 (identical after normalisation). Containment is treated as a
// strong match since queries are usually fragments of the full title
// ("jodoh" vs "Jodoh Terakhir Sang CEO"); otherwise the score falls back
// to Levenshtein distance over the normalised strings.
func Score(title, query string) float64 {
	title = normalize(title)
	query = normalize(query)

	if title == query {
		return 1.0
	}
	if len(title) == 0 || len(query) == 0 {
		return 0.0
	}

	if score := containmentScore(title, query); score > 0 {
		return score
	}

	distance := levenshteinDistance(title, query)
	maxLen := max(len(title), len(query))
	return 1.0 - float64(distance)/float64(maxLen)
}

// containmentScore returns a high score when the whole query appears
// inside the title, scaled by how much of the title it covers so tighter
// matches rank first. Returns 0 when the query is not contained.
func containmentScore(title, query string) float64 {
	if !strings.Contains(title, query) {
		return 0
	}
	ratio := float64(len(query)) / float64(len(title))
	return 0.80 + ratio*0.20
}

// normalize lowercases and strips punctuation so comparison survives the
// inconsistent styling upstream catalogs apply to the same title.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")

	var result strings.Builder
	result.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		} else if unicode.IsSpace(r) || r == '.' || r == '-' || r == '_' || r == ':' {
			result.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(result.String()), " ")
}

func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
