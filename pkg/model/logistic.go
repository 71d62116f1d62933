// Package model fits and applies a multinomial logistic regression over the
// design matrix.
package model

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

var (
	// ErrMissingValue is returned when a feature value is NaN
	ErrMissingValue = errors.New("missing feature value")

	// ErrNotEnoughClasses is returned when the target has a single label
	ErrNotEnoughClasses = errors.New("need at least two classes")
)

// Options controls the fit
type Options struct {
	// C is the inverse L2 regularisation strength
	C       float64
	MaxIter int
}

// DefaultOptions mirrors the usual logistic regression defaults
func DefaultOptions() Options {
	return Options{C: 1, MaxIter: 1000}
}

// Model is a fitted multinomial logistic regression
type Model struct {
	SchemaVersion string      `json:"schema_version"`
	Features      []string    `json:"features"`
	Classes       []int       `json:"classes"`
	Coefficients  [][]float64 `json:"coefficients"`
	Intercepts    []float64   `json:"intercepts"`
	Iterations    int         `json:"iterations"`
	Status        string      `json:"status"`
}

// Fit trains a softmax regression with an unpenalised intercept using L-BFGS
func Fit(x [][]float64, y []int, features []string, opts Options) (*Model, error) {
	if len(x) == 0 {
		return nil, errors.New("empty training set")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("got %d rows and %d labels", len(x), len(y))
	}
	d := len(features)
	for i, row := range x {
		if len(row) != d {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), d)
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: row %d, column %s", ErrMissingValue, i, features[j])
			}
		}
	}

	classes := uniqueSorted(y)
	if len(classes) < 2 {
		return nil, ErrNotEnoughClasses
	}
	k := len(classes)
	index := make(map[int]int, k)
	for i, c := range classes {
		index[c] = i
	}

	n := len(x)
	X := mat.NewDense(n, d, nil)
	for i, row := range x {
		X.SetRow(i, row)
	}
	Y := mat.NewDense(n, k, nil)
	for i, label := range y {
		Y.Set(i, index[label], 1)
	}

	obj := &softmaxObjective{x: X, y: Y, k: k, d: d, c: opts.C}
	problem := optimize.Problem{
		Func: obj.loss,
		Grad: obj.grad,
	}
	settings := &optimize.Settings{
		MajorIterations:   opts.MaxIter,
		GradientThreshold: 1e-6,
	}

	init := make([]float64, k*d+k)
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, fmt.Errorf("optimisation failed: %w", err)
	}

	m := &Model{
		Features:     append([]string{}, features...),
		Classes:      classes,
		Coefficients: make([][]float64, k),
		Intercepts:   append([]float64{}, result.X[k*d:]...),
		Iterations:   result.MajorIterations,
		Status:       result.Status.String(),
	}
	for c := 0; c < k; c++ {
		m.Coefficients[c] = append([]float64{}, result.X[c*d:(c+1)*d]...)
	}
	return m, nil
}

type softmaxObjective struct {
	x    *mat.Dense // n x d
	y    *mat.Dense // n x k, one-hot
	k, d int
	c    float64
}

// unpack views the flat parameter vector as a k x d weight matrix and a
// k intercept vector
func (o *softmaxObjective) unpack(params []float64) (*mat.Dense, []float64) {
	return mat.NewDense(o.k, o.d, params[:o.k*o.d]), params[o.k*o.d:]
}

// probabilities returns the n x k softmax matrix and the summed cross entropy
func (o *softmaxObjective) probabilities(params []float64) (*mat.Dense, float64) {
	w, b := o.unpack(params)
	n, _ := o.x.Dims()

	var z mat.Dense
	z.Mul(o.x, w.T())

	ce := 0.0
	for i := 0; i < n; i++ {
		row := z.RawRowView(i)
		floats.Add(row, b)
		lse := floats.LogSumExp(row)
		for j := range row {
			if o.y.At(i, j) == 1 {
				ce += lse - row[j]
			}
			row[j] = math.Exp(row[j] - lse)
		}
	}
	return &z, ce
}

func (o *softmaxObjective) loss(params []float64) float64 {
	_, ce := o.probabilities(params)
	wflat := params[:o.k*o.d]
	return 0.5*floats.Dot(wflat, wflat) + o.c*ce
}

func (o *softmaxObjective) grad(grad, params []float64) {
	p, _ := o.probabilities(params)
	p.Sub(p, o.y)

	var gw mat.Dense
	gw.Mul(p.T(), o.x) // k x d

	for c := 0; c < o.k; c++ {
		for j := 0; j < o.d; j++ {
			grad[c*o.d+j] = params[c*o.d+j] + o.c*gw.At(c, j)
		}
	}
	n, _ := p.Dims()
	for c := 0; c < o.k; c++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += p.At(i, c)
		}
		grad[o.k*o.d+c] = o.c * sum
	}
}

// PredictProba returns class probabilities for one feature vector, in the
// order of m.Classes
func (m *Model) PredictProba(x []float64) ([]float64, error) {
	if len(x) != len(m.Features) {
		return nil, fmt.Errorf("got %d features, want %d", len(x), len(m.Features))
	}
	scores := make([]float64, len(m.Classes))
	for c := range m.Classes {
		v := floats.Dot(m.Coefficients[c], x) + m.Intercepts[c]
		if math.IsNaN(v) {
			return nil, ErrMissingValue
		}
		scores[c] = v
	}
	lse := floats.LogSumExp(scores)
	for c := range scores {
		scores[c] = math.Exp(scores[c] - lse)
	}
	return scores, nil
}

// Predict returns the most probable class label
func (m *Model) Predict(x []float64) (int, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return m.Classes[floats.MaxIdx(p)], nil
}

// Coefficient is one feature weight of a class
type Coefficient struct {
	Feature string
	Value   float64
}

// SortedCoefficients returns the weights of class index c ordered by
// ascending absolute value
func (m *Model) SortedCoefficients(c int) []Coefficient {
	out := make([]Coefficient, len(m.Features))
	for j, f := range m.Features {
		out[j] = Coefficient{Feature: f, Value: m.Coefficients[c][j]}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return math.Abs(out[a].Value) < math.Abs(out[b].Value)
	})
	return out
}

// Save writes the model as JSON
func (m *Model) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a model written by Save
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if len(m.Coefficients) != len(m.Classes) || len(m.Intercepts) != len(m.Classes) {
		return nil, errors.New("model classes and weights disagree")
	}
	for _, row := range m.Coefficients {
		if len(row) != len(m.Features) {
			return nil, errors.New("model features and weights disagree")
		}
	}
	return &m, nil
}

func uniqueSorted(y []int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
