package writer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// CSVWriter writes design-matrix rows to a CSV stream
type CSVWriter struct {
	w           *csv.Writer
	closer      io.Closer
	width       int
	floatColumn []bool
	record      []string
}

// NewCSVWriter writes the header immediately. Columns listed in floatColumns
// are written as floats, all others as integers. Outcome and is_draw are
// appended after the feature columns.
func NewCSVWriter(out io.Writer, columns, floatColumns []string) (*CSVWriter, error) {
	isFloat := make(map[string]bool, len(floatColumns))
	for _, c := range floatColumns {
		isFloat[c] = true
	}

	w := &CSVWriter{
		w:           csv.NewWriter(out),
		width:       len(columns),
		floatColumn: make([]bool, len(columns)),
		record:      make([]string, len(columns)+2),
	}
	if c, ok := out.(io.Closer); ok {
		w.closer = c
	}
	for i, c := range columns {
		w.floatColumn[i] = isFloat[c]
	}

	header := append(append([]string{}, columns...), "outcome", "is_draw")
	if err := w.w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return w, nil
}

// WriteBatch appends rows in order
func (w *CSVWriter) WriteBatch(ctx context.Context, rows []Row) error {
	for _, r := range rows {
		if len(r.Values) != w.width {
			return fmt.Errorf("row %s has %d values, want %d", r.GameID, len(r.Values), w.width)
		}
		for i, v := range r.Values {
			if w.floatColumn[i] {
				w.record[i] = FormatFloat(v)
			} else {
				w.record[i] = FormatInt(v)
			}
		}
		w.record[w.width] = strconv.Itoa(r.Outcome)
		w.record[w.width+1] = strconv.Itoa(r.IsDraw)
		if err := w.w.Write(w.record); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Close flushes buffered output and closes the destination if it is closable
func (w *CSVWriter) Close() error {
	w.w.Flush()
	err := w.w.Error()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// FormatFloat renders the shortest representation that round-trips, always
// with a decimal point. NaN is written as an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") && !math.IsInf(v, 0) {
		s += ".0"
	}
	return s
}

// FormatInt renders an integral value without a decimal point
func FormatInt(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatInt(int64(v), 10)
}
