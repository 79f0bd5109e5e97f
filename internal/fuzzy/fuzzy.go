// Package fuzzy suggests the closest known word for a mistyped one. It backs
// the "did you mean" hints for namespace names and interwiki prefixes.
package fuzzy

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"
)

// MaxDistance is the largest edit distance still offered as a correction.
const MaxDistance = 2

// Matcher handles approximate string matching against a fixed word list.
type Matcher struct {
	words   []string
	weights map[string]int
}

// Match is one candidate correction.
type Match struct {
	Word     string
	Distance int
	Weight   int
}

// NewMatcher creates a matcher over words. Weights break ties between
// candidates at the same distance; higher wins.
func NewMatcher(words map[string]int) *Matcher {
	m := &Matcher{weights: make(map[string]int, len(words))}
	for word, weight := range words {
		lower := strings.ToLower(word)
		if _, seen := m.weights[lower]; !seen {
			m.words = append(m.words, lower)
		}
		m.weights[lower] = max(m.weights[lower], weight)
	}
	slices.Sort(m.words)
	return m
}

// SuggestCorrection returns the best correction for input.
// Preference: exact match > smaller distance > higher weight > alphabetical.
// The bool is true only when input was actually corrected.
func (m *Matcher) SuggestCorrection(input string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(input))
	if utf8.RuneCountInString(lower) < 2 {
		return input, false
	}
	if _, ok := m.weights[lower]; ok {
		return lower, false
	}

	matches := m.Matches(lower)
	if len(matches) == 0 {
		return input, false
	}
	return matches[0].Word, true
}

// Matches returns every word within MaxDistance of input, best first.
func (m *Matcher) Matches(input string) []Match {
	lower := strings.ToLower(input)
	inputLen := utf8.RuneCountInString(lower)

	var matches []Match
	for _, word := range m.words {
		// Length alone rules out most candidates.
		if abs(utf8.RuneCountInString(word)-inputLen) > MaxDistance {
			continue
		}
		d := distance(lower, word)
		if d > MaxDistance {
			continue
		}
		matches = append(matches, Match{Word: word, Distance: d, Weight: m.weights[word]})
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return strings.Compare(a.Word, b.Word)
	})
	return matches
}

// distance is the optimal string alignment distance: insertions, deletions,
// substitutions and adjacent transpositions each cost one.
func distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	// Three rolling rows: two back, previous, current.
	prev2 := make([]int, len(rb)+1)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				curr[j] = min(curr[j], prev2[j-2]+1)
			}
		}
		prev2, prev, curr = prev, curr, prev2
	}
	return prev[len(rb)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
