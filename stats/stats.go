// Package stats provides descriptive statistics over float64 slices.
// NaN values are skipped.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// Summary holds the descriptive statistics of one column.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	Std    float64 // population standard deviation
	Min    float64
	Max    float64
}

func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func nonEmpty(op string, values []float64) ([]float64, error) {
	x := present(values)
	if len(x) == 0 {
		return nil, errors.NewDataError(op, "no values", errors.ErrEmptyData)
	}
	return x, nil
}

// Mean returns the arithmetic mean.
func Mean(values []float64) (float64, error) {
	x, err := nonEmpty("mean", values)
	if err != nil {
		return 0, err
	}
	return stat.Mean(x, nil), nil
}

// Median returns the middle value, averaging the two middle values when the
// count is even.
func Median(values []float64) (float64, error) {
	x, err := nonEmpty("median", values)
	if err != nil {
		return 0, err
	}
	sort.Float64s(x)
	n := len(x)
	if n%2 == 1 {
		return x[n/2], nil
	}
	return (x[n/2-1] + x[n/2]) / 2, nil
}

// Std returns the population standard deviation (ddof = 0).
func Std(values []float64) (float64, error) {
	x, err := nonEmpty("std", values)
	if err != nil {
		return 0, err
	}
	return stat.PopStdDev(x, nil), nil
}

// Summarize computes every statistic in one pass over the sorted values.
func Summarize(values []float64) (Summary, error) {
	x, err := nonEmpty("summary", values)
	if err != nil {
		return Summary{}, err
	}
	sort.Float64s(x)
	mean, std := stat.PopMeanStdDev(x, nil)
	median, _ := Median(x)
	return Summary{
		Count:  len(x),
		Mean:   mean,
		Median: median,
		Std:    std,
		Min:    x[0],
		Max:    x[len(x)-1],
	}, nil
}
