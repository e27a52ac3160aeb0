package pipeline

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/preprocessing"
	"github.com/YuminosukeSato/synthpipe/sklearn/linear_model"
)

// labelsOnly hides PredictProba from the wrapped classifier.
type labelsOnly struct {
	*linear_model.LogisticRegression
}

func (l labelsOnly) PredictProba() {}

func data() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 2, []float64{
		10, 1000,
		12, 1100,
		11, 900,
		30, 5000,
		32, 5200,
		31, 4800,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

func TestPipelineFitPredict(t *testing.T) {
	X, y := data()
	p := New(preprocessing.NewStandardScalerDefault(),
		linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(500)))
	require.NoError(t, p.Fit(X, y))
	assert.True(t, p.Probabilistic())

	pred, err := p.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, mat.Col(nil, 0, y), mat.Col(nil, 0, pred))

	proba, err := p.PredictProba(X)
	require.NoError(t, err)
	_, cols := proba.Dims()
	assert.Equal(t, 2, cols)
}

func TestPipelineWithoutProbabilities(t *testing.T) {
	X, y := data()
	p := New(preprocessing.NewStandardScalerDefault(),
		labelsOnly{linear_model.NewLogisticRegression()})
	require.NoError(t, p.Fit(X, y))
	assert.False(t, p.Probabilistic())

	_, err := p.PredictProba(X)
	assert.True(t, errors.Is(err, errors.ErrNotImplemented))
}

func TestPipelineGobRoundTrip(t *testing.T) {
	X, y := data()
	p := New(preprocessing.NewStandardScalerDefault(),
		linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(200)))
	require.NoError(t, p.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(p))
	var back Pipeline
	require.NoError(t, gob.NewDecoder(&buf).Decode(&back))

	want, _ := p.PredictProba(X)
	got, err := back.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
