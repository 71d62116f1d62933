package schema

import (
	"chessgames/pkg/features"
	"chessgames/pkg/parser"
)

// Encode computes the feature vector of a game, aligned with Columns.
// The approximate time limit may be NaN.
func (s *Schema) Encode(g parser.GameRecord) ([]float64, error) {
	v := make([]float64, 0, s.Width())

	white := features.NormalizeRating(g.WhiteRating)
	black := features.NormalizeRating(g.BlackRating)
	limit := features.ApproxTimeLimitMinutes(g.IncrementCode, g.OpeningPly, s.MaxTimeLimitMinutes)
	v = append(v,
		float64(features.BoolToInt(g.Rated)),
		white,
		black,
		white-black,
		limit/60,
	)

	for i, grp := range s.Groups {
		j, err := s.Category(i, g.OpeningECO)
		if err != nil {
			return nil, err
		}
		onehot := make([]float64, len(grp.Categories))
		onehot[j] = 1
		v = append(v, onehot...)
	}

	tc := features.DeriveTimeComponents(g.CreatedAt)
	return append(v,
		float64(tc.Month),
		float64(tc.DayOfWeek),
		float64(tc.Hour),
	), nil
}
