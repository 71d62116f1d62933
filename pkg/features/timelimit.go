package features

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultMaxTimeLimitMinutes caps the estimated time budget of a game
	DefaultMaxTimeLimitMinutes = 60

	// assumedGameMoves is the game length the estimate assumes
	assumedGameMoves = 40
)

// ParseIncrementCode splits a "B+I" time control into base minutes and
// increment seconds. Components that are missing, non-numeric or negative
// come back as NaN.
func ParseIncrementCode(code string) (base, increment float64) {
	parts := strings.Split(code, "+")
	if len(parts) != 2 {
		return math.NaN(), math.NaN()
	}
	return coerce(parts[0]), coerce(parts[1])
}

func coerce(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// ApproxTimeLimitMinutes estimates the per-game time budget from the time
// control and the opening ply count, clipped above at maxMinutes.
// The result is NaN when any input is undefined. A negative estimate (ply
// beyond the assumed game length) is returned unchanged.
func ApproxTimeLimitMinutes(code string, ply, maxMinutes float64) float64 {
	base, increment := ParseIncrementCode(code)
	limit := base + increment*(assumedGameMoves-ply)/60
	if math.IsNaN(limit) {
		return math.NaN()
	}
	return math.Min(limit, maxMinutes)
}
