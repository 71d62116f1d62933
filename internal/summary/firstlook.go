// Package summary reports descriptive statistics over the raw games dataset.
package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const exampleValues = 3

// ColumnProfile describes one raw CSV column
type ColumnProfile struct {
	Name     string
	Numeric  bool
	Missing  int
	Distinct int
	Examples []string
	Stats    Stats
}

// FirstLook is the shape and per-column profile of a CSV file
type FirstLook struct {
	Rows    int
	Columns []ColumnProfile
}

// ProfileCSV reads a whole CSV and profiles every column. A column is numeric
// when every non-empty cell parses as a float.
func ProfileCSV(r io.Reader) (*FirstLook, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	n := len(header)
	values := make([][]float64, n)
	numeric := make([]bool, n)
	seen := make([]map[string]struct{}, n)
	fl := &FirstLook{Columns: make([]ColumnProfile, n)}
	for i, name := range header {
		numeric[i] = true
		seen[i] = make(map[string]struct{})
		fl.Columns[i].Name = strings.TrimSpace(name)
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		fl.Rows++

		for i := 0; i < n; i++ {
			col := &fl.Columns[i]
			cell := ""
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			if cell == "" {
				col.Missing++
				continue
			}
			if _, ok := seen[i][cell]; !ok {
				seen[i][cell] = struct{}{}
				if len(col.Examples) < exampleValues {
					col.Examples = append(col.Examples, cell)
				}
			}
			if numeric[i] {
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					numeric[i] = false
					values[i] = nil
					continue
				}
				values[i] = append(values[i], v)
			}
		}
	}

	for i := range fl.Columns {
		col := &fl.Columns[i]
		col.Distinct = len(seen[i])
		col.Numeric = numeric[i] && len(values[i]) > 0
		if col.Numeric {
			col.Stats = Describe(values[i])
		}
	}
	return fl, nil
}
