package features

import "fmt"

// OtherCategory replaces truncated ECO codes seen in too few games
const OtherCategory = "other"

// DefaultECOCutoff is the minimum number of games a truncated code needs to keep its own column
const DefaultECOCutoff = 100

// TruncateECO keeps the first chars characters of an ECO code
func TruncateECO(code string, chars int) string {
	r := []rune(code)
	if len(r) <= chars {
		return code
	}
	return string(r[:chars])
}

// ECOColumn names the indicator column of a truncated code
func ECOColumn(chars int, category string) string {
	return fmt.Sprintf("eco_%d_%s", chars, category)
}

// CountTruncatedECO counts games by truncated ECO code
func CountTruncatedECO(codes []string, chars int) map[string]int {
	counts := make(map[string]int)
	for _, c := range codes {
		counts[TruncateECO(c, chars)]++
	}
	return counts
}

// CollapseRare maps every code with fewer than cutoff games to OtherCategory
// and returns the resulting counts.
func CollapseRare(counts map[string]int, cutoff int) map[string]int {
	out := make(map[string]int, len(counts))
	for code, n := range counts {
		if n >= cutoff {
			out[code] += n
		} else {
			out[OtherCategory] += n
		}
	}
	return out
}
