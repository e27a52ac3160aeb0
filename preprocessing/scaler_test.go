package preprocessing

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

func TestStandardScaler_ConstantColumn(t *testing.T) {
	s := NewStandardScalerDefault()
	X := mat.NewDense(3, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
	})
	out, err := s.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Scale[1])
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, out.At(i, 1))
	}

	back, err := s.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScaler_NotFitted(t *testing.T) {
	_, err := NewStandardScalerDefault().Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestStandardScaler_GobRoundTrip(t *testing.T) {
	s := NewStandardScalerDefault()
	X := mat.NewDense(3, 1, []float64{1, 2, 6})
	require.NoError(t, s.Fit(X))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(s))
	var back StandardScaler
	require.NoError(t, gob.NewDecoder(&buf).Decode(&back))

	want, _ := s.Transform(X)
	got, err := back.Transform(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestMinMaxScaler(t *testing.T) {
	m := NewMinMaxScalerDefault()
	X := mat.NewDense(3, 1, []float64{2, 4, 6})
	out, err := m.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, mat.Col(nil, 0, out))

	back, err := m.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestNewScaler(t *testing.T) {
	s, err := NewScaler("minmax")
	require.NoError(t, err)
	assert.IsType(t, &MinMaxScaler{}, s)

	s, err = NewScaler("")
	require.NoError(t, err)
	assert.IsType(t, &StandardScaler{}, s)

	_, err = NewScaler("robust")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestLabelEncoder(t *testing.T) {
	e := NewLabelEncoder("color")
	codes, err := e.FitTransform([]string{"red", "blue", "red", "green"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 2, 1}, codes)

	labels, err := e.InverseTransform([]float64{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"green", "blue"}, labels)

	_, err = e.InverseTransform([]float64{3})
	assert.Error(t, err)

	_, err = NewLabelEncoder("x").Transform([]string{"a"})
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}
