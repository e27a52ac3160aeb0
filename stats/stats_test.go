package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

func TestStatistics(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		median float64
		std    float64
	}{
		{"odd", []float64{3, 1, 2}, 2, 2, math.Sqrt(2.0 / 3.0)},
		{"even", []float64{4, 1, 3, 2}, 2.5, 2.5, math.Sqrt(1.25)},
		{"nan skipped", []float64{1, math.NaN(), 3}, 2, 2, 1},
		{"single", []float64{7}, 7, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, err := Mean(tt.values)
			require.NoError(t, err)
			assert.InDelta(t, tt.mean, mean, 1e-12)

			median, err := Median(tt.values)
			require.NoError(t, err)
			assert.InDelta(t, tt.median, median, 1e-12)

			std, err := Std(tt.values)
			require.NoError(t, err)
			assert.InDelta(t, tt.std, std, 1e-12)
		})
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	_, err := Median(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{5, 1, 3, math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.InDelta(t, 3.0, s.Median, 1e-12)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
}

func TestEmptyInput(t *testing.T) {
	_, err := Mean([]float64{math.NaN()})
	var dataErr *errors.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
