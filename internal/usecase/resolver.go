package usecase

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// similarityThreshold is the minimum approximate-match score (0-1) accepted
// by the third resolution tier
const similarityThreshold = 0.6

// normalizeText folds a name to NFC lowercase with surrounding space removed,
// so that matching is insensitive to case and composition differences
func normalizeText(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}

// ResolveName matches free text against a candidate name list.
//
// Tiers are tried in strict precedence, first success winning:
//  1. case-insensitive exact match
//  2. case-insensitive substring match (either direction)
//  3. best approximate match with similarity >= similarityThreshold
//
// The tier order is a contract, not an optimization: the looser tiers can
// produce false positives the stricter tiers would have avoided. No match at
// any tier returns (-1, false); absence is not an error.
func ResolveName(text string, names []string) (int, bool) {
	target := normalizeText(text)
	if target == "" {
		return -1, false
	}

	// Tier 1: exact
	for i, name := range names {
		if normalizeText(name) == target {
			return i, true
		}
	}

	// Tier 2: substring, either containing the other
	for i, name := range names {
		candidate := normalizeText(name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, target) || strings.Contains(target, candidate) {
			return i, true
		}
	}

	// Tier 3: approximate, single best match over the whole candidate set
	best := -1
	bestScore := 0.0
	for i, name := range names {
		score := similarity(target, normalizeText(name))
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best >= 0 && bestScore >= similarityThreshold {
		return best, true
	}

	return -1, false
}

// similarity scores two normalized strings on a 0-1 scale using edit distance
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
