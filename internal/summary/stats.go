package summary

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats is a numeric column description. NaN values are counted as missing.
type Stats struct {
	Count   int
	Missing int
	Mean    float64
	Std     float64
	Min     float64
	Max     float64
}

// Describe summarises values, skipping NaN. Std is the sample standard
// deviation and is NaN for fewer than two values.
func Describe(values []float64) Stats {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	s := Stats{Count: len(clean), Missing: len(values) - len(clean)}
	if len(clean) == 0 {
		s.Mean, s.Std, s.Min, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Mean = stat.Mean(clean, nil)
	s.Std = math.NaN()
	if len(clean) > 1 {
		s.Std = stat.StdDev(clean, nil)
	}
	s.Min = floats.Min(clean)
	s.Max = floats.Max(clean)
	return s
}
