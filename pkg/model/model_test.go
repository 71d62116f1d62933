package model

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusters returns three well separated 2-D blobs labelled -1, 0 and +1
func clusters(perClass int) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(1))
	centers := map[int][2]float64{-1: {-3, 0}, 0: {0, 3}, 1: {3, 0}}
	var x [][]float64
	var y []int
	for _, label := range []int{-1, 0, 1} {
		c := centers[label]
		for i := 0; i < perClass; i++ {
			x = append(x, []float64{c[0] + rng.NormFloat64()*0.5, c[1] + rng.NormFloat64()*0.5})
			y = append(y, label)
		}
	}
	return x, y
}

func label(v int) string { return strconv.Itoa(v) }

func TestFitSeparableClusters(t *testing.T) {
	x, y := clusters(40)
	m, err := Fit(x, y, []string{"a", "b"}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{-1, 0, 1}, m.Classes)
	require.Len(t, m.Coefficients, 3)
	require.Len(t, m.Intercepts, 3)

	pred := make([]int, len(x))
	for i := range x {
		pred[i], err = m.Predict(x[i])
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, Accuracy(y, pred), 0.95)

	// Feature "a" pushes towards +1 and away from -1
	assert.Greater(t, m.Coefficients[2][0], m.Coefficients[0][0])
}

func TestFitRejectsMissingValues(t *testing.T) {
	x := [][]float64{{1, math.NaN()}, {0, 1}}
	_, err := Fit(x, []int{1, -1}, []string{"a", "b"}, DefaultOptions())
	assert.True(t, errors.Is(err, ErrMissingValue))
	assert.Contains(t, err.Error(), "column b")
}

func TestFitRejectsSingleClass(t *testing.T) {
	_, err := Fit([][]float64{{1}, {2}}, []int{1, 1}, []string{"a"}, DefaultOptions())
	assert.True(t, errors.Is(err, ErrNotEnoughClasses))
}

func TestPredictProbaProperties(t *testing.T) {
	x, y := clusters(20)
	m, err := Fit(x, y, []string{"a", "b"}, DefaultOptions())
	require.NoError(t, err)

	properties := gopter.NewProperties(nil)
	properties.Property("probabilities are a distribution", prop.ForAll(
		func(a, b float64) bool {
			p, err := m.PredictProba([]float64{a, b})
			if err != nil {
				return false
			}
			sum := 0.0
			for _, v := range p {
				if v < 0 || v > 1 {
					return false
				}
				sum += v
			}
			return math.Abs(sum-1) < 1e-9
		},
		gen.Float64Range(-10, 10),
		gen.Float64Range(-10, 10),
	))
	properties.TestingRun(t, gopter.ConsoleReporter(false))

	_, err = m.PredictProba([]float64{1})
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	x, y := clusters(10)
	m, err := Fit(x, y, []string{"a", "b"}, DefaultOptions())
	require.NoError(t, err)
	m.SchemaVersion = "abc"

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestSortedCoefficients(t *testing.T) {
	m := &Model{
		Features:     []string{"a", "b", "c"},
		Classes:      []int{-1, 1},
		Coefficients: [][]float64{{0.5, -2, 0.1}, {0, 0, 0}},
		Intercepts:   []float64{0, 0},
	}
	sorted := m.SortedCoefficients(0)
	assert.Equal(t, []string{"c", "a", "b"}, []string{sorted[0].Feature, sorted[1].Feature, sorted[2].Feature})
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(101, 0.2, 13)
	require.NoError(t, err)
	assert.Len(t, test, 21)
	assert.Len(t, train, 80)

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i])
		seen[i] = true
	}
	assert.Len(t, seen, 101)

	again, _, err := TrainTestSplit(101, 0.2, 13)
	require.NoError(t, err)
	assert.Equal(t, train, again)

	_, _, err = TrainTestSplit(1, 0.2, 13)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 1.5, 13)
	assert.Error(t, err)
}

func TestClassificationReport(t *testing.T) {
	truth := []int{1, 1, 1, -1, -1, 0}
	pred := []int{1, 1, -1, -1, 1, -1}

	r := ClassificationReport(truth, pred, label)
	require.Len(t, r.Classes, 3)
	assert.InDelta(t, 3.0/6, r.Accuracy, 1e-12)

	neg := r.Classes[0]
	assert.Equal(t, "-1", neg.Label)
	assert.InDelta(t, 1.0/3, neg.Precision, 1e-12)
	assert.InDelta(t, 0.5, neg.Recall, 1e-12)
	assert.Equal(t, 2, neg.Support)

	draw := r.Classes[1]
	assert.Equal(t, 0.0, draw.Precision)
	assert.Equal(t, 0.0, draw.F1)
	assert.Equal(t, 1, draw.Support)

	pos := r.Classes[2]
	assert.InDelta(t, 2.0/3, pos.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, pos.Recall, 1e-12)

	assert.InDelta(t, (neg.Precision+draw.Precision+pos.Precision)/3, r.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, (neg.Recall*2+draw.Recall*1+pos.Recall*3)/6, r.WeightedAvg.Recall, 1e-12)

	out := r.String()
	assert.Contains(t, out, "precision")
	assert.Contains(t, out, "accuracy")
	assert.Contains(t, out, "weighted avg")

	cm := ConfusionMatrix(truth, pred, []int{-1, 0, 1})
	assert.Equal(t, [][]int{{1, 0, 1}, {1, 0, 0}, {1, 0, 2}}, cm)
}

func TestLoadDataset(t *testing.T) {
	in := "rated,white_rating,approx_time_limit_hours,outcome,is_draw\n" +
		"1,0.5,0.25,1,0\n" +
		"0,-0.2,,0,1\n"
	ds, err := LoadDataset(strings.NewReader(in), "outcome", "is_draw")
	require.NoError(t, err)

	assert.Equal(t, []string{"rated", "white_rating", "approx_time_limit_hours"}, ds.Features)
	assert.Equal(t, []int{1, 0}, ds.Y)
	assert.Equal(t, []float64{1, 0.5, 0.25}, ds.X[0])
	assert.True(t, math.IsNaN(ds.X[1][2]))

	_, err = LoadDataset(strings.NewReader("a,b\n1,2\n"), "outcome")
	assert.Error(t, err)
}
