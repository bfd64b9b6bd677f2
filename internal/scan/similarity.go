package scan

import "strings"

// Similarity scores two name strings in [0,1] using the Sørensen–Dice
// coefficient over character bigrams of the concatenated lowercase tokens.
// Deterministic; order of tokens within a name does not matter.
func Similarity(a, b string) float64 {
	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 && len(bb) == 0 {
		return 1
	}
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}

	counts := make(map[string]int, len(ba))
	for _, g := range ba {
		counts[g]++
	}
	matches := 0
	for _, g := range bb {
		if counts[g] > 0 {
			counts[g]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(len(ba)+len(bb))
}

func bigrams(s string) []string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	var grams []string
	for _, tok := range tokens {
		runes := []rune(tok)
		if len(runes) == 1 {
			grams = append(grams, string(runes))
			continue
		}
		for i := 0; i+2 <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+2]))
		}
	}
	return grams
}

// NameThresholds carries the configured pass scores, applied to first and
// last name independently.
type NameThresholds struct {
	FirstNameMin float64
	LastNameMin  float64
}

// MatchesName reports whether candidate first/last names clear both
// thresholds against the scanned names.
func (t NameThresholds) MatchesName(scanFirst, scanLast, candFirst, candLast string) bool {
	return Similarity(scanFirst, candFirst) >= t.FirstNameMin &&
		Similarity(scanLast, candLast) >= t.LastNameMin
}

// ExactNameMatch is the case-insensitive token comparison used by the exact
// fallback before fuzzy scoring.
func ExactNameMatch(scanFirst, scanLast, candFirst, candLast string) bool {
	return strings.EqualFold(strings.TrimSpace(scanFirst), strings.TrimSpace(candFirst)) &&
		strings.EqualFold(strings.TrimSpace(scanLast), strings.TrimSpace(candLast))
}
