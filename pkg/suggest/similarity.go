package suggest

import "strings"

// minSignificantWordLen filters out articles, pronouns, and other short words
// that would inflate similarity between unrelated cards.
const minSignificantWordLen = 4

// contentWords tokenizes card content for Jaccard comparison: lowercase,
// punctuation stripped, words shorter than minSignificantWordLen dropped.
func contentWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !isWordRune(r)
		})
		w = strings.Map(func(r rune) rune {
			if isWordRune(r) {
				return r
			}
			return -1
		}, w)
		if len(w) >= minSignificantWordLen {
			words[w] = true
		}
	}
	return words
}

func isWordRune(r rune) bool {
	return r == '\'' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') ||
		r > 127 // keep non-ASCII letters intact
}

// jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// titleOverlap measures word-substring overlap between two titles: the share
// of words in either title that appear as a substring of the other title.
// "The Dark Forest" and "Into the Dark" overlap on "dark"/"the".
func titleOverlap(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	lowerA := strings.ToLower(a)
	lowerB := strings.ToLower(b)

	matches := 0
	for _, w := range wordsA {
		if strings.Contains(lowerB, w) {
			matches++
		}
	}
	for _, w := range wordsB {
		if strings.Contains(lowerA, w) {
			matches++
		}
	}
	return float64(matches) / float64(len(wordsA)+len(wordsB))
}
