package tree

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func blobs() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		5, 5,
		5, 6,
		6, 5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

func TestDecisionTreeClassifier_GobRoundTrip(t *testing.T) {
	X, y := blobs()
	dt := NewDecisionTreeClassifier(WithCriterion("entropy"), WithMaxDepth(3))
	require.NoError(t, dt.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(dt))

	var back DecisionTreeClassifier
	require.NoError(t, gob.NewDecoder(&buf).Decode(&back))

	want, err := dt.PredictProba(X)
	require.NoError(t, err)
	got, err := back.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
	assert.Equal(t, dt.GetParams(), back.GetParams())
	assert.Equal(t, []float64{0, 1}, back.Classes())
}

func TestDecisionTreeClassifier_MaxFeaturesIsSeeded(t *testing.T) {
	X, y := blobs()
	a := NewDecisionTreeClassifier(WithMaxFeatures(1), WithRandomState(7))
	b := NewDecisionTreeClassifier(WithMaxFeatures(1), WithRandomState(7))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.nodes, b.nodes)
	assert.Equal(t, 1.0, a.Score(X, y))
}

func TestDecisionTreeClassifier_RejectsBadInput(t *testing.T) {
	X, _ := blobs()
	dt := NewDecisionTreeClassifier()
	assert.Error(t, dt.Fit(X, mat.NewDense(5, 1, nil)))
	assert.Error(t, NewDecisionTreeClassifier(WithCriterion("mse")).Fit(X, mat.NewDense(6, 1, nil)))

	_, y := blobs()
	require.NoError(t, dt.Fit(X, y))
	_, err := dt.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}
