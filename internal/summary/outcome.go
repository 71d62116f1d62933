package summary

import (
	"sort"
	"strconv"

	"chessgames/pkg/features"
	"chessgames/pkg/parser"
)

// OutcomeShare is the result distribution of one group of games
type OutcomeShare struct {
	Key        string
	Games      int
	White      float64
	Black      float64
	Draw       float64
	MeanRating float64
}

// OutcomeReport breaks results down by ratedness, start time and opening
type OutcomeReport struct {
	ByRated  []OutcomeShare
	ByMonth  []OutcomeShare
	ByDay    []OutcomeShare
	ByHour   []OutcomeShare
	ECOChars int
	ByECO    []OutcomeShare
}

type outcomeAcc struct {
	games, white, black, draw int
	ratingSum                 float64
}

func (a *outcomeAcc) add(g parser.GameRecord) {
	a.games++
	a.ratingSum += (g.WhiteRating + g.BlackRating) / 2
	switch g.Winner {
	case features.WinnerWhite:
		a.white++
	case features.WinnerBlack:
		a.black++
	case features.WinnerDraw:
		a.draw++
	}
}

func (a *outcomeAcc) share(key string) OutcomeShare {
	n := float64(a.games)
	return OutcomeShare{
		Key:        key,
		Games:      a.games,
		White:      float64(a.white) / n,
		Black:      float64(a.black) / n,
		Draw:       float64(a.draw) / n,
		MeanRating: a.ratingSum / n,
	}
}

type grouping struct {
	acc  map[string]*outcomeAcc
	sort map[string]int
}

func newGrouping() *grouping {
	return &grouping{acc: make(map[string]*outcomeAcc), sort: make(map[string]int)}
}

func (gr *grouping) add(key string, order int, g parser.GameRecord) {
	a, ok := gr.acc[key]
	if !ok {
		a = &outcomeAcc{}
		gr.acc[key] = a
		gr.sort[key] = order
	}
	a.add(g)
}

func (gr *grouping) shares() []OutcomeShare {
	keys := make([]string, 0, len(gr.acc))
	for k := range gr.acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if gr.sort[keys[i]] != gr.sort[keys[j]] {
			return gr.sort[keys[i]] < gr.sort[keys[j]]
		}
		return keys[i] < keys[j]
	})
	out := make([]OutcomeShare, len(keys))
	for i, k := range keys {
		out[i] = gr.acc[k].share(k)
	}
	return out
}

// Outcomes groups game results. Openings are truncated to ecoChars and rare
// codes are collapsed with cutoff.
func Outcomes(games []parser.GameRecord, ecoChars, cutoff int) OutcomeReport {
	rated, month, day, hour, eco := newGrouping(), newGrouping(), newGrouping(), newGrouping(), newGrouping()

	codes := make([]string, len(games))
	for i, g := range games {
		codes[i] = g.OpeningECO
	}
	kept := features.CollapseRare(features.CountTruncatedECO(codes, ecoChars), cutoff)

	for _, g := range games {
		r := "unrated"
		if g.Rated {
			r = "rated"
		}
		rated.add(r, features.BoolToInt(g.Rated), g)

		tc := features.DeriveTimeComponents(g.CreatedAt)
		month.add(strconv.Itoa(tc.Month), tc.Month, g)
		day.add(strconv.Itoa(tc.DayOfWeek), tc.DayOfWeek, g)
		hour.add(strconv.Itoa(tc.Hour), tc.Hour, g)

		code := features.TruncateECO(g.OpeningECO, ecoChars)
		if _, ok := kept[code]; !ok || code == features.OtherCategory {
			code = features.OtherCategory
		}
		eco.add(code, 0, g)
	}

	return OutcomeReport{
		ByRated:  rated.shares(),
		ByMonth:  month.shares(),
		ByDay:    day.shares(),
		ByHour:   hour.shares(),
		ECOChars: ecoChars,
		ByECO:    eco.shares(),
	}
}
