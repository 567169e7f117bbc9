package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// DefaultThreshold is the lowest similarity a suggestion may have.
const DefaultThreshold = 0.6

// Similarity returns 1 - distance/max(len(a), len(b)) over runes, ignoring
// case. The distance is optimal string alignment, so swapping two adjacent
// keys ("gti") costs one edit rather than two. Two empty strings are
// identical. The result is symmetric.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := edlib.OSADamerauLevenshteinDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// reachable reports whether strings of these rune lengths could score at
// least threshold. The distance is never below the length difference, so
// this prunes most of a large candidate set without computing distances.
func reachable(la, lb int, threshold float64) bool {
	longest := max(la, lb)
	if longest == 0 {
		return true
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1-float64(diff)/float64(longest) >= threshold
}

// candidate is a scored entry during a scan.
type candidate struct {
	value string
	score float64
	uses  int
	runes int
}

// better is the total order used to pick a single winner: higher score,
// then more uses, then the shorter string, then lexical order.
func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.uses != b.uses {
		return a.uses > b.uses
	}
	if a.runes != b.runes {
		return a.runes < b.runes
	}
	return a.value < b.value
}

// Closest returns the vocabulary entry most similar to input that reaches
// threshold. It ranks with the same order as the engine but without usage
// counts, for small fixed vocabularies such as a tool's subcommands.
func Closest(input string, vocab []string, threshold float64) (string, float64, bool) {
	lin := utf8.RuneCountInString(input)
	var best candidate
	found := false
	for _, v := range vocab {
		lv := utf8.RuneCountInString(v)
		if !reachable(lin, lv, threshold) {
			continue
		}
		s := Similarity(input, v)
		if s < threshold {
			continue
		}
		c := candidate{value: v, score: s, runes: lv}
		if !found || better(c, best) {
			best, found = c, true
		}
	}
	return best.value, best.score, found
}
