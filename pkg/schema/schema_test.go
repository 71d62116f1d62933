package schema

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessgames/pkg/parser"
)

func repeat(code string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = code
	}
	return out
}

func sampleCodes() []string {
	var codes []string
	codes = append(codes, repeat("B01", 3)...)
	codes = append(codes, repeat("B02", 1)...)
	codes = append(codes, repeat("C20", 2)...)
	return codes
}

func defaultOptions(cutoff int) Options {
	return Options{Lengths: []int{1, 2, 3}, Cutoff: cutoff, MaxTimeLimitMinutes: 60}
}

func TestBuild(t *testing.T) {
	s := Build(sampleCodes(), defaultOptions(2))

	require.Len(t, s.Groups, 3)
	assert.Equal(t, []string{"B", "C"}, s.Groups[0].Categories)
	assert.False(t, s.Groups[0].HasOther())
	assert.Equal(t, []string{"B0", "C2"}, s.Groups[1].Categories)
	assert.Equal(t, []string{"B01", "C20", "other"}, s.Groups[2].Categories)
	assert.True(t, s.Groups[2].HasOther())
	assert.Len(t, s.Version, 16)

	want := []string{
		"rated", "white_rating", "black_rating", "white_rating_advantage", "approx_time_limit_hours",
		"eco_1_B", "eco_1_C",
		"eco_2_B0", "eco_2_C2",
		"eco_3_B01", "eco_3_C20", "eco_3_other",
		"month_of_year", "day_of_week", "hour_of_day",
	}
	assert.Equal(t, want, s.Columns())
	assert.Equal(t, len(want), s.Width())
}

func TestBuildIsDeterministic(t *testing.T) {
	a := Build(sampleCodes(), defaultOptions(2))
	b := Build(sampleCodes(), defaultOptions(2))
	assert.Equal(t, a.Version, b.Version)

	c := Build(sampleCodes(), defaultOptions(3))
	assert.NotEqual(t, a.Version, c.Version)
}

func TestCategory(t *testing.T) {
	s := Build(sampleCodes(), defaultOptions(2))

	j, err := s.Category(2, "B01")
	require.NoError(t, err)
	assert.Equal(t, 0, j)

	// Unseen code falls into other
	j, err = s.Category(2, "E99")
	require.NoError(t, err)
	assert.Equal(t, 2, j)

	// Group 0 was built without an other column
	_, err = s.Category(0, "E99")
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestEncode(t *testing.T) {
	s := Build(sampleCodes(), defaultOptions(2))
	g := parser.GameRecord{
		ID:            "g1",
		Rated:         true,
		CreatedAt:     1504210000000,
		Winner:        "white",
		IncrementCode: "10+5",
		WhiteRating:   2000,
		BlackRating:   1500,
		OpeningECO:    "B02",
		OpeningPly:    20,
	}

	v, err := s.Encode(g)
	require.NoError(t, err)
	require.Len(t, v, s.Width())

	assert.Equal(t, []float64{1, 1, 0, 1}, v[:4])
	assert.InDelta(t, (10+5.0*20/60)/60, v[4], 1e-12)
	assert.Equal(t, []float64{1, 0}, v[5:7])
	assert.Equal(t, []float64{1, 0}, v[7:9])
	assert.Equal(t, []float64{0, 0, 1}, v[9:12])
	assert.Equal(t, []float64{8, 3, 20}, v[12:])

	g.IncrementCode = "bad"
	v, err = s.Encode(g)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v[4]))
}

func TestOneHotSumsToOne(t *testing.T) {
	properties := gopter.NewProperties(nil)
	s := Build(sampleCodes(), defaultOptions(2))
	withOther := Build(sampleCodes(), Options{Lengths: []int{2, 3}, Cutoff: 3, MaxTimeLimitMinutes: 60})

	properties.Property("each ECO group encodes to exactly one indicator", prop.ForAll(
		func(code string) bool {
			v, err := withOther.Encode(parser.GameRecord{OpeningECO: code, OpeningPly: 10})
			if err != nil {
				return false
			}
			offset := len(RatingColumns)
			for _, g := range withOther.Groups {
				sum := 0.0
				for _, x := range v[offset : offset+len(g.Categories)] {
					sum += x
				}
				if sum != 1 {
					return false
				}
				offset += len(g.Categories)
			}
			return true
		},
		gen.OneConstOf("B01", "B02", "C20", "A00", "E99", "", "B"),
	))

	properties.Property("retained codes encode without error", prop.ForAll(
		func(code string) bool {
			_, err := s.Encode(parser.GameRecord{OpeningECO: code})
			return err == nil
		},
		gen.OneConstOf("B01", "B02", "C20"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestMarshalRoundTrip(t *testing.T) {
	s := Build(sampleCodes(), defaultOptions(2))
	data, err := s.Marshal()
	require.NoError(t, err)

	loaded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
	assert.NoError(t, loaded.Verify(s.Version))
	assert.True(t, errors.Is(loaded.Verify("0000000000000000"), ErrSchemaMismatch))
}

func TestUnmarshalRejectsTamperedSchema(t *testing.T) {
	s := Build(sampleCodes(), defaultOptions(2))
	s.Groups[0].Categories = append(s.Groups[0].Categories, "D")
	data, err := s.Marshal()
	require.NoError(t, err)

	_, err = Unmarshal(data)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}
