package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// customers is income (thousands) and satisfaction. Only income separates
// buyers from non-buyers.
func customers() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		25, 3,
		30, 8,
		35, 2,
		40, 9,
		70, 4,
		80, 7,
		90, 1,
		95, 10,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

// overlapping cannot be split into pure halves with one threshold.
func overlapping() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{0, 0, 1, 0, 1, 1})
	return X, y
}

func TestDecisionTreeClassifier_SplitsOnInformativeFeature(t *testing.T) {
	X, y := customers()
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	root := dt.nodes[0]
	assert.Equal(t, 0, root.Feature)
	assert.Equal(t, 55.0, root.Threshold)
	assert.Equal(t, 1, dt.GetDepth())
	assert.Equal(t, 2, dt.GetNLeaves())
	assert.Equal(t, []float64{1, 0}, dt.GetFeatureImportances())
	assert.Equal(t, 1.0, dt.Score(X, y))

	pred, err := dt.Predict(mat.NewDense(2, 2, []float64{
		50, 10,
		60, 1,
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))
}

func TestDecisionTreeClassifier_LeafDistribution(t *testing.T) {
	X, y := overlapping()
	dt := NewDecisionTreeClassifier(WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))

	// positions 2 and 4 tie on weighted gini; the first one found wins
	assert.Equal(t, 2.5, dt.nodes[0].Threshold)
	assert.Equal(t, 0.5, dt.nodes[0].Impurity)

	probas, err := dt.PredictProba(mat.NewDense(2, 1, []float64{1, 5}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, mat.Row(nil, 0, probas))
	assert.Equal(t, []float64{0.25, 0.75}, mat.Row(nil, 1, probas))

	pred, err := dt.Predict(mat.NewDense(1, 1, []float64{5}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))
}

func TestDecisionTreeClassifier_EntropyImpurity(t *testing.T) {
	X, y := overlapping()
	dt := NewDecisionTreeClassifier(WithCriterion("entropy"), WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 1.0, dt.nodes[0].Impurity)
	assert.Equal(t, 2.5, dt.nodes[0].Threshold)
}

func TestDecisionTreeClassifier_MinSamplesLeaf(t *testing.T) {
	X, y := overlapping()
	dt := NewDecisionTreeClassifier(WithMinSamplesLeaf(3))
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 3.5, dt.nodes[0].Threshold)
	assert.Equal(t, 2, dt.GetNLeaves())
	for _, n := range dt.nodes {
		if n.isLeaf() {
			assert.GreaterOrEqual(t, n.NSamples, 3)
		}
	}
}

func TestDecisionTreeClassifier_MinSamplesSplitKeepsRootLeaf(t *testing.T) {
	X, y := overlapping()
	dt := NewDecisionTreeClassifier(WithMinSamplesSplit(7))
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 0, dt.GetDepth())
	assert.Equal(t, 1, dt.GetNLeaves())
	assert.Equal(t, []float64{0}, dt.GetFeatureImportances())

	probas, err := dt.PredictProba(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, mat.Row(nil, 3, probas))

	// an even split predicts the lower class
	pred, err := dt.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(3, 0))
}

func TestDecisionTreeClassifier_KeepsOriginalLabels(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 10, 11, 20, 21})
	y := mat.NewDense(6, 1, []float64{9, 9, 2, 2, 5, 5})
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, []float64{2, 5, 9}, dt.Classes())

	probas, err := dt.PredictProba(X)
	require.NoError(t, err)
	_, c := probas.Dims()
	assert.Equal(t, 3, c)

	pred, err := dt.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(y, pred))
}

func TestDecisionTreeClassifier_RefitReplacesModel(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	X, y := customers()
	require.NoError(t, dt.Fit(X, y))

	X1, y1 := overlapping()
	require.NoError(t, dt.Fit(X1, y1))

	_, err := dt.Predict(X)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = dt.Predict(X1)
	assert.NoError(t, err)
}

func TestDecisionTreeClassifier_Params(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	params := dt.GetParams()
	assert.Equal(t, "gini", params["criterion"])
	assert.Equal(t, 2, params["min_samples_split"])
	assert.Equal(t, 1, params["min_samples_leaf"])

	require.NoError(t, dt.SetParams(map[string]interface{}{
		"criterion":    "entropy",
		"max_depth":    4,
		"random_state": int64(11),
	}))
	assert.Equal(t, "entropy", dt.criterion)
	assert.Equal(t, 4, dt.maxDepth)
	assert.Equal(t, int64(11), dt.randomState)

	var ve *errors.ValidationError
	assert.True(t, errors.As(dt.SetParams(map[string]interface{}{"max_leaf_nodes": 8}), &ve))
	assert.True(t, errors.As(dt.SetParams(map[string]interface{}{"max_depth": "4"}), &ve))
	assert.True(t, errors.As(dt.SetParams(map[string]interface{}{"random_state": 11}), &ve))
}

func TestDecisionTreeClassifier_NotFitted(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	X, _ := customers()

	_, err := dt.Predict(X)
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "DecisionTreeClassifier", nf.ModelName)

	_, err = dt.PredictProba(X)
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, 0.0, dt.Score(X, mat.NewDense(8, 1, nil)))
}
