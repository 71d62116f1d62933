package model

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Dataset is a processed design matrix loaded for fitting
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []int
}

// LoadDataset reads a processed CSV. Every column other than target and the
// excluded ones is a feature. Empty cells load as NaN.
func LoadDataset(r io.Reader, target string, exclude ...string) (*Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	skip := map[string]bool{target: true}
	for _, e := range exclude {
		skip[e] = true
	}

	targetIdx := -1
	var featureIdx []int
	ds := &Dataset{}
	for i, name := range header {
		if name == target {
			targetIdx = i
		}
		if !skip[name] {
			featureIdx = append(featureIdx, i)
			ds.Features = append(ds.Features, name)
		}
	}
	if targetIdx < 0 {
		return nil, fmt.Errorf("target column %q not found", target)
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(featureIdx))
		for j, i := range featureIdx {
			if rec[i] == "" {
				row[j] = math.NaN()
				continue
			}
			if row[j], err = strconv.ParseFloat(rec[i], 64); err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, header[i], err)
			}
		}
		y, err := strconv.Atoi(rec[targetIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d, column %s: %w", line, target, err)
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, y)
	}
	return ds, nil
}
