package features

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("time components stay in calendar range", prop.ForAll(
		func(ms int64) bool {
			c := DeriveTimeComponents(ms)
			return c.Month >= 1 && c.Month <= 12 &&
				c.DayOfWeek >= 0 && c.DayOfWeek <= 6 &&
				c.Hour >= 0 && c.Hour <= 23
		},
		gen.Int64Range(0, 4102444800000), // up to 2100-01-01
	))

	properties.Property("time limit never exceeds the cap", prop.ForAll(
		func(base, increment, ply int) bool {
			code := strconv.Itoa(base) + "+" + strconv.Itoa(increment)
			limit := ApproxTimeLimitMinutes(code, float64(ply), DefaultMaxTimeLimitMinutes)
			return math.IsNaN(limit) || limit <= DefaultMaxTimeLimitMinutes
		},
		gen.IntRange(0, 180),
		gen.IntRange(0, 180),
		gen.IntRange(0, 40),
	))

	properties.Property("draw flag is set only for draws", prop.ForAll(
		func(winner string) bool {
			o, err := EncodeOutcome(winner)
			if err != nil {
				return false
			}
			return (o.IsDraw == 1) == (winner == WinnerDraw)
		},
		gen.OneConstOf(WinnerWhite, WinnerBlack, WinnerDraw),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDeriveTimeComponents(t *testing.T) {
	// 2017-08-31 20:06:40 UTC, a Thursday
	c := DeriveTimeComponents(1504210000000)
	assert.Equal(t, TimeComponents{Month: 8, DayOfWeek: 3, Hour: 20}, c)

	// 1970-01-01 was a Thursday
	assert.Equal(t, TimeComponents{Month: 1, DayOfWeek: 3, Hour: 0}, DeriveTimeComponents(0))

	// 2024-01-01 00:00 UTC, a Monday
	assert.Equal(t, 0, DeriveTimeComponents(1704067200000).DayOfWeek)
}

func TestApproxTimeLimitMinutes(t *testing.T) {
	tests := []struct {
		name string
		code string
		ply  float64
		want float64
	}{
		{name: "base and increment", code: "10+5", ply: 20, want: 10 + 5.0*20/60},
		{name: "no increment", code: "15+0", ply: 5, want: 15},
		{name: "capped", code: "180+30", ply: 2, want: 60},
		{name: "ply past assumed length stays negative", code: "0+30", ply: 60, want: -10},
		{name: "ply at assumed length", code: "3+2", ply: 40, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ApproxTimeLimitMinutes(tt.code, tt.ply, DefaultMaxTimeLimitMinutes), 1e-9)
		})
	}
}

func TestApproxTimeLimitUndefined(t *testing.T) {
	for _, code := range []string{"", "10", "10+", "+5", "a+b", "-5+3", "10+-1", "10+5+3"} {
		assert.True(t, math.IsNaN(ApproxTimeLimitMinutes(code, 10, 60)), code)
	}
	assert.True(t, math.IsNaN(ApproxTimeLimitMinutes("10+5", math.NaN(), 60)))
}

func TestEncodeOutcome(t *testing.T) {
	tests := []struct {
		winner string
		want   Outcome
	}{
		{winner: "white", want: Outcome{Value: 1, IsDraw: 0}},
		{winner: "black", want: Outcome{Value: -1, IsDraw: 0}},
		{winner: "draw", want: Outcome{Value: 0, IsDraw: 1}},
	}
	for _, tt := range tests {
		got, err := EncodeOutcome(tt.winner)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.winner, OutcomeLabel(got.Value))
	}

	_, err := EncodeOutcome("White")
	assert.True(t, errors.Is(err, ErrUnknownWinner))
	_, err = EncodeOutcome("")
	assert.True(t, errors.Is(err, ErrUnknownWinner))
}

func TestTruncateAndCollapse(t *testing.T) {
	assert.Equal(t, "B", TruncateECO("B01", 1))
	assert.Equal(t, "B0", TruncateECO("B01", 2))
	assert.Equal(t, "B01", TruncateECO("B01", 3))
	assert.Equal(t, "B01", TruncateECO("B01", 5))
	assert.Equal(t, "eco_2_B0", ECOColumn(2, "B0"))

	counts := CountTruncatedECO([]string{"B01", "B02", "B10", "C20", "C20"}, 2)
	assert.Equal(t, map[string]int{"B0": 2, "B1": 1, "C2": 2}, counts)

	collapsed := CollapseRare(counts, 2)
	assert.Equal(t, map[string]int{"B0": 2, "C2": 2, OtherCategory: 1}, collapsed)
}

func TestRatingHelpers(t *testing.T) {
	assert.Equal(t, -1.0, NormalizeRating(1000))
	assert.Equal(t, 0.0, NormalizeRating(1500))
	assert.Equal(t, 1.0, NormalizeRating(2000))
	assert.Equal(t, 1, BoolToInt(true))
	assert.Equal(t, 0, BoolToInt(false))
	assert.Equal(t, 10.0, GameDurationSeconds(1000, 11000))
}
