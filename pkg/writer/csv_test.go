package writer

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf, []string{"rated", "white_rating", "approx_time_limit_hours", "eco_1_A"},
		[]string{"white_rating", "approx_time_limit_hours"})
	require.NoError(t, err)

	err = w.WriteBatch(context.Background(), []Row{
		{GameID: "a", Values: []float64{1, 0, 0.25, 1}, Outcome: 1},
		{GameID: "b", Values: []float64{0, -0.618, math.NaN(), 0}, Outcome: 0, IsDraw: 1},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	want := "rated,white_rating,approx_time_limit_hours,eco_1_A,outcome,is_draw\n" +
		"1,0.0,0.25,1,1,0\n" +
		"0,-0.618,,0,0,1\n"
	assert.Equal(t, want, buf.String())
}

func TestCSVWriterRejectsMisalignedRow(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf, []string{"rated"}, nil)
	require.NoError(t, err)

	err = w.WriteBatch(context.Background(), []Row{{GameID: "a", Values: []float64{1, 2}}})
	assert.Error(t, err)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "0.0", FormatFloat(0))
	assert.Equal(t, "-1.0", FormatFloat(-1))
	assert.Equal(t, "0.18333333333333332", FormatFloat(11.0/60))
	assert.Equal(t, "", FormatFloat(math.NaN()))
	assert.Equal(t, "-3", FormatInt(-3))
}
