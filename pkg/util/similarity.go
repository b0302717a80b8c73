package util

import "strings"

// Levenshtein returns the edit distance between a and b using the
// two-row dynamic programming form.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Similarity normalizes edit distance into [0,1]; identical strings score 1.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}

// StripDigits removes embedded digits and lowercases, collapsing bot-style
// name families ("raid001", "Raid002") onto one cluster key.
func StripDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r < '0' || r > '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ClusteredFraction clusters names by their digit-stripped form and returns
// the fraction of names belonging to a cluster of at least two members.
func ClusteredFraction(names []string) float64 {
	if len(names) == 0 {
		return 0
	}

	clusters := make(map[string]int, len(names))
	for _, n := range names {
		clusters[StripDigits(n)]++
	}

	clustered := 0
	for _, count := range clusters {
		if count >= 2 {
			clustered += count
		}
	}

	return float64(clustered) / float64(len(names))
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
