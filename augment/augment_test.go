package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/synthpipe/dataset"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/pkg/log"
)

// imbalanced has eight rows of class 0 and two of class 1.
func imbalanced(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.NewNumerical("age", []float64{20, 22, 25, 31, 38, 40, 47, 52, 60, 65}),
		dataset.NewNumerical("income", []float64{21000, 35000, 30000, 52000, 48000, 61000, 70000, 75000, 90000, 98000}),
		dataset.NewCategorical("gender", []string{"Male", "Female", "Male", "Female", "Male", "Female", "Male", "Female", "Male", "Female"}),
		dataset.NewNumerical("purchased", []float64{0, 0, 0, 0, 0, 0, 0, 0, 1, 1}),
	)
	require.NoError(t, err)
	return ds
}

func newTestAugmenter(t *testing.T, opts ...Option) (*Augmenter, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return New(42, append([]Option{WithLogger(logger)}, opts...)...), logger
}

func classCount(t *testing.T, ds *dataset.Dataset, class float64) int {
	t.Helper()
	col, ok := ds.Column("purchased")
	require.True(t, ok)
	n := 0
	for _, v := range col.Num {
		if v == class {
			n++
		}
	}
	return n
}

func TestParseMethod(t *testing.T) {
	for _, s := range []string{"noise", "oversample", "synthetic", "all"} {
		m, ok := ParseMethod(s)
		assert.True(t, ok, s)
		assert.Equal(t, Method(s), m)
	}
	_, ok := ParseMethod("smote")
	assert.False(t, ok)
}

func TestNoiseKeepsShapeAndPerturbsNamedColumns(t *testing.T) {
	a, _ := newTestAugmenter(t)
	in := imbalanced(t)

	out, err := a.Noise(in, []string{"age", "missing"}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, in.Len(), out.Len())

	before, _ := in.Column("age")
	after, _ := out.Column("age")
	assert.NotEqual(t, before.Num, after.Num)

	untouched, _ := out.Column("income")
	original, _ := in.Column("income")
	assert.Equal(t, original.Num, untouched.Num)

	_, err = a.Noise(in, []string{"gender"}, 0.1)
	var dataErr *errors.DataError
	assert.True(t, errors.As(err, &dataErr))
}

func TestOversampleReachesRatio(t *testing.T) {
	a, _ := newTestAugmenter(t)
	in := imbalanced(t)

	out, err := a.Oversample(in, "purchased", 0.5)
	require.NoError(t, err)
	// int(8 * 0.5) = 4 minority rows
	assert.Equal(t, 4, classCount(t, out, 1))
	assert.Equal(t, 8, classCount(t, out, 0))
	assert.Equal(t, 12, out.Len())

	for i := in.Len(); i < out.Len(); i++ {
		key := out.RowKey(i)
		assert.True(t, key == in.RowKey(8) || key == in.RowKey(9), "row %d is not a minority copy", i)
	}
}

func TestOversampleNoopWhenBalanced(t *testing.T) {
	a, logger := newTestAugmenter(t)
	in := imbalanced(t)

	out, err := a.Oversample(in, "purchased", 0.25)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.True(t, logger.ContainsMessage("minority class already at target size, nothing to oversample"))
}

func TestOversampleErrors(t *testing.T) {
	a, _ := newTestAugmenter(t)
	_, err := a.Oversample(imbalanced(t), "churned", 0.5)
	var dataErr *errors.DataError
	assert.True(t, errors.As(err, &dataErr))

	_, err = a.Oversample(imbalanced(t), "purchased", 0)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestSyntheticBlendsTwoParents(t *testing.T) {
	a, _ := newTestAugmenter(t)
	in := imbalanced(t)

	out, err := a.Synthetic(in, []string{"age", "income"}, 15)
	require.NoError(t, err)
	require.Equal(t, in.Len()+15, out.Len())

	age, _ := out.Column("age")
	gender, _ := out.Column("gender")
	for i := in.Len(); i < out.Len(); i++ {
		assert.GreaterOrEqual(t, age.Num[i], 20.0)
		assert.LessOrEqual(t, age.Num[i], 65.0)
		assert.Contains(t, []string{"Male", "Female"}, gender.Cat[i])
	}
}

func TestSyntheticNeedsTwoRows(t *testing.T) {
	a, _ := newTestAugmenter(t)
	one := imbalanced(t).Select([]int{0})
	_, err := a.Synthetic(one, []string{"age"}, 3)
	var dataErr *errors.DataError
	assert.True(t, errors.As(err, &dataErr))
}

func TestAllChainsMethods(t *testing.T) {
	a, _ := newTestAugmenter(t)
	out, err := a.Augment(imbalanced(t), "purchased", []string{"age", "income"}, "all")
	require.NoError(t, err)
	// 10 rows, +2 from oversampling, +25 blended
	assert.Equal(t, 37, out.Len())
}

func TestUnknownMethodFallsBackToNoise(t *testing.T) {
	var warned []error
	prev := errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(prev)

	a, logger := newTestAugmenter(t)
	in := imbalanced(t)
	out, err := a.Augment(in, "purchased", []string{"age"}, "smote")
	require.NoError(t, err)
	assert.Equal(t, in.Len(), out.Len())

	require.Len(t, warned, 1)
	var w *errors.UnknownMethodWarning
	require.True(t, errors.As(warned[0], &w))
	assert.Equal(t, "smote", w.Method)
	assert.Equal(t, "noise", w.Fallback)
	assert.Equal(t, 1, logger.CountLevel(log.LevelWarn))
}

func TestUnknownMethodStrict(t *testing.T) {
	a, _ := newTestAugmenter(t, WithStrict(true))
	_, err := a.Augment(imbalanced(t), "purchased", []string{"age"}, "smote")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestSameSeedSameRows(t *testing.T) {
	run := func() *dataset.Dataset {
		a, _ := newTestAugmenter(t)
		out, err := a.Augment(imbalanced(t), "purchased", []string{"age", "income"}, "all")
		require.NoError(t, err)
		return out
	}
	assert.True(t, run().Equal(run()))
}
