package summary

import (
	"chessgames/pkg/features"
	"chessgames/pkg/parser"
)

// DurationReport shows how far the recorded start and end timestamps can be
// trusted, and what the estimated time limit looks like instead
type DurationReport struct {
	Games               int
	NonZeroShare        float64
	Duration            Stats
	TimeLimit           Stats
	MaxTimeLimitMinutes float64
}

// Durations summarises game durations in seconds and approximate time limits
// in minutes
func Durations(games []parser.GameRecord, maxMinutes float64) DurationReport {
	durations := make([]float64, len(games))
	limits := make([]float64, len(games))
	nonZero := 0
	for i, g := range games {
		durations[i] = features.GameDurationSeconds(g.CreatedAt, g.LastMoveAt)
		if durations[i] > 0 {
			nonZero++
		}
		limits[i] = features.ApproxTimeLimitMinutes(g.IncrementCode, g.OpeningPly, maxMinutes)
	}

	r := DurationReport{
		Games:               len(games),
		Duration:            Describe(durations),
		TimeLimit:           Describe(limits),
		MaxTimeLimitMinutes: maxMinutes,
	}
	if len(games) > 0 {
		r.NonZeroShare = float64(nonZero) / float64(len(games))
	}
	return r
}
