package kb

import "strings"

// Normalize reduces an entity name to a canonical matching form:
// lowercase, separators folded to single spaces.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, sep := range []string{"-", "_", ".", "/"} {
		s = strings.ReplaceAll(s, sep, " ")
	}
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores two names in [0,1] on their normalized forms.
// Exact normalized equality scores 1. Containment scores by length
// ratio, otherwise a bigram Dice coefficient is used. The function is
// symmetric and deterministic.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	short, long := na, nb
	if len(short) > len(long) {
		short, long = long, short
	}
	if strings.Contains(long, short) {
		return float64(len(short)) / float64(len(long))
	}

	return diceCoefficient(na, nb)
}

// diceCoefficient computes 2|A∩B| / (|A|+|B|) over character bigrams.
func diceCoefficient(a, b string) float64 {
	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}

	var overlap int
	for g, n := range ba {
		if m, ok := bb[g]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}

	var totalA, totalB int
	for _, n := range ba {
		totalA += n
	}
	for _, n := range bb {
		totalB += n
	}

	return 2 * float64(overlap) / float64(totalA+totalB)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	out := make(map[string]int, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		out[string(runes[i:i+2])]++
	}
	return out
}
