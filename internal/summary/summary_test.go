package summary

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"chessgames/pkg/parser"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawCSV = `id,rated,created_at,last_move_at,turns,victory_status,winner,increment_code,white_id,white_rating,black_id,black_rating,moves,opening_eco,opening_name,opening_ply
TZJHLljE,FALSE,1.50421E+12,1.50421E+12,13,outoftime,white,15+2,bourgris,1500,a-00,1191,d4 d5,D10,Slav Defense: Exchange Variation,5
l1NXvwaE,TRUE,1504130000000,1504130060000,16,resign,black,5+10,a-00,1322,skinnerua,1261,d4 Nc6,B00,Nimzowitsch Defense: Kennedy Variation,4
TZJHLljE,FALSE,1.50421E+12,1.50421E+12,13,outoftime,white,15+2,bourgris,1500,a-00,1191,d4 d5,D10,Slav Defense: Exchange Variation,5
mIICvQHh,TRUE,1.50413E+12,1.50413E+12,61,mate,draw,20+0,ischia,1496,a-00,1500,e4 e5,B01,King's Pawn Game: Leonardis Variation,
`

func games(t *testing.T) []parser.GameRecord {
	t.Helper()
	g, err := parser.ReadGames(strings.NewReader(rawCSV))
	require.NoError(t, err)
	g, _ = parser.Deduplicate(g)
	return g
}

func TestProfileCSV(t *testing.T) {
	fl, err := ProfileCSV(strings.NewReader(rawCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, fl.Rows)
	require.Len(t, fl.Columns, 16)

	byName := map[string]ColumnProfile{}
	for _, c := range fl.Columns {
		byName[c.Name] = c
	}

	id := byName["id"]
	assert.False(t, id.Numeric)
	assert.Equal(t, 3, id.Distinct)
	assert.Equal(t, []string{"TZJHLljE", "l1NXvwaE", "mIICvQHh"}, id.Examples)

	ply := byName["opening_ply"]
	assert.True(t, ply.Numeric)
	assert.Equal(t, 1, ply.Missing)
	assert.Equal(t, 3, ply.Stats.Count)
	assert.Equal(t, 4.0, ply.Stats.Min)
	assert.Equal(t, 5.0, ply.Stats.Max)

	assert.True(t, byName["white_rating"].Numeric)
	assert.False(t, byName["rated"].Numeric)
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{1, 2, 3, math.NaN()})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1, s.Missing)
	assert.Equal(t, 2.0, s.Mean)
	assert.Equal(t, 1.0, s.Std)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)

	empty := Describe(nil)
	assert.Zero(t, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestDurations(t *testing.T) {
	r := Durations(games(t), 60)

	assert.Equal(t, 3, r.Games)
	assert.InDelta(t, 1.0/3, r.NonZeroShare, 1e-12)
	assert.Equal(t, 60.0, r.Duration.Max)
	assert.Equal(t, 2, r.TimeLimit.Count)
	assert.Equal(t, 1, r.TimeLimit.Missing)
}

func TestECOCounts(t *testing.T) {
	r := ECOCounts(games(t), 2, 2)

	assert.Equal(t, []CodeCount{{"B0", 2}, {"D1", 1}}, r.Before)
	assert.Equal(t, []CodeCount{{"B0", 2}, {"other", 1}}, r.After)
}

func TestOutcomes(t *testing.T) {
	r := Outcomes(games(t), 1, 1)

	require.Len(t, r.ByRated, 2)
	assert.Equal(t, "unrated", r.ByRated[0].Key)
	assert.Equal(t, 1.0, r.ByRated[0].White)
	assert.Equal(t, "rated", r.ByRated[1].Key)
	assert.Equal(t, 0.5, r.ByRated[1].Black)
	assert.Equal(t, 0.5, r.ByRated[1].Draw)

	require.Len(t, r.ByECO, 2)
	assert.Equal(t, "B", r.ByECO[0].Key)
	assert.Equal(t, 2, r.ByECO[0].Games)
}

func TestOutcomeSharesSumToOne(t *testing.T) {
	winners := []string{"white", "black", "draw"}
	properties := gopter.NewProperties(nil)

	properties.Property("each group's shares sum to 1", prop.ForAll(
		func(picks []int, hours []int) bool {
			n := len(picks)
			if len(hours) < n {
				n = len(hours)
			}
			gs := make([]parser.GameRecord, n)
			for i := 0; i < n; i++ {
				gs[i] = parser.GameRecord{
					Winner:     winners[picks[i]],
					CreatedAt:  int64(hours[i]) * 3600000,
					OpeningECO: "C20",
				}
			}
			for _, o := range Outcomes(gs, 1, 1).ByHour {
				if math.Abs(o.White+o.Black+o.Draw-1) > 1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.SliceOf(gen.IntRange(0, 24*365)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestWrite(t *testing.T) {
	var out bytes.Buffer
	err := Write(&out, []byte(rawCSV), Options{
		ECOLengths:          []int{1, 2, 3},
		Cutoff:              2,
		MaxTimeLimitMinutes: 60,
		OutcomeECOChars:     2,
	})
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Dataset shape: 4 rows, 16 columns")
	assert.Contains(t, s, "Duplicate game ids dropped: 1")
	assert.Contains(t, s, "Percentage of games with nonzero duration: 33.33%")
	assert.Contains(t, s, "truncated to 3 characters (cutoff 2)")
	assert.Contains(t, s, "Outcomes by ECO code (first 2 characters)")
}
