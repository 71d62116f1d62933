package summary

import (
	"sort"

	"chessgames/pkg/features"
	"chessgames/pkg/parser"
)

// CodeCount is the number of games of one truncated opening code
type CodeCount struct {
	Code  string
	Games int
}

// ECOReport lists games per truncated code before and after rare codes are
// collapsed into the other category
type ECOReport struct {
	Chars  int
	Cutoff int
	Before []CodeCount
	After  []CodeCount
}

// ECOCounts counts truncated opening codes, most frequent first
func ECOCounts(games []parser.GameRecord, chars, cutoff int) ECOReport {
	codes := make([]string, len(games))
	for i, g := range games {
		codes[i] = g.OpeningECO
	}
	counts := features.CountTruncatedECO(codes, chars)
	return ECOReport{
		Chars:  chars,
		Cutoff: cutoff,
		Before: sortCounts(counts),
		After:  sortCounts(features.CollapseRare(counts, cutoff)),
	}
}

func sortCounts(m map[string]int) []CodeCount {
	out := make([]CodeCount, 0, len(m))
	for c, n := range m {
		out = append(out, CodeCount{Code: c, Games: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].Code < out[j].Code
	})
	return out
}
