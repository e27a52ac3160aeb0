// Package ensemble implements ensembles of decision trees.
package ensemble

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/core/model"
	"github.com/YuminosukeSato/synthpipe/core/parallel"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/sklearn/tree"
)

// RandomForestClassifier averages the class probabilities of bootstrapped
// decision trees. Each tree examines sqrt(nFeatures) features per split.
// Compatible with scikit-learn's RandomForestClassifier
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // <= 0 means sqrt(nFeatures)
	bootstrap       bool
	randomState     int64
	nJobs           int // <= 0 means one worker per CPU

	// Model parameters
	estimators_ []*tree.DecisionTreeClassifier
	classes_    []float64
}

// ForestOption is a functional option for RandomForestClassifier
type ForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a new RandomForestClassifier
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		bootstrap:       true,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees
func WithNEstimators(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithForestCriterion sets the impurity measure of every tree
func WithForestCriterion(criterion string) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.criterion = criterion
	}
}

// WithForestMaxDepth limits the depth of every tree
func WithForestMaxDepth(depth int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
	}
}

// WithForestMinSamplesLeaf sets the minimum samples per leaf of every tree
func WithForestMinSamplesLeaf(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithForestMaxFeatures overrides the sqrt(nFeatures) default
func WithForestMaxFeatures(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = n
	}
}

// WithBootstrap toggles sampling with replacement
func WithBootstrap(b bool) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.bootstrap = b
	}
}

// WithForestRandomState seeds the forest
func WithForestRandomState(seed int64) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// WithNJobs sets the number of goroutines used to grow trees
func WithNJobs(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nJobs = n
	}
}

// Fit grows nEstimators trees. Tree i is seeded from (randomState, i), so the
// result does not depend on nJobs.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, _ := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewValueError("RandomForestClassifier.Fit", "empty input")
	}
	if nSamples != yRows {
		return errors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yRows, 0)
	}
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}

	rf.state.Reset()
	rf.classes_ = uniqueSorted(y)

	maxFeatures := rf.maxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(nFeatures)))))
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.ParallelizeWorkers(rf.nEstimators, rf.nJobs, func(start, end int) {
		for i := start; i < end; i++ {
			seed := deriveSeed(rf.randomState, uint64(i))
			Xb, yb := rf.sample(X, y, seed)
			t := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(rf.criterion),
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMinSamplesSplit(rf.minSamplesSplit),
				tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
				tree.WithMaxFeatures(maxFeatures),
				tree.WithRandomState(seed),
			)
			errs[i] = t.Fit(Xb, yb)
			trees[i] = t
		}
	})
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "failed to fit tree %d", i)
		}
	}

	rf.estimators_ = trees
	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()
	return nil
}

// sample draws a bootstrap sample, or returns the inputs when bootstrap is off.
func (rf *RandomForestClassifier) sample(X, y mat.Matrix, seed int64) (mat.Matrix, mat.Matrix) {
	if !rf.bootstrap {
		return X, y
	}
	n, p := X.Dims()
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	Xb := mat.NewDense(n, p, nil)
	yb := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		src := rng.IntN(n)
		for j := 0; j < p; j++ {
			Xb.Set(i, j, X.At(src, j))
		}
		yb.Set(i, 0, y.At(src, 0))
	}
	return Xb, yb
}

// PredictProba averages tree probabilities (n×nClasses). Classes absent from
// a tree's bootstrap sample contribute zero for that tree.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := rf.state.RequireFeatures("RandomForestClassifier.PredictProba", nFeatures); err != nil {
		return nil, err
	}

	out := mat.NewDense(nSamples, len(rf.classes_), nil)
	for _, t := range rf.estimators_ {
		p, err := t.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for k, c := range t.Classes() {
			col := sort.SearchFloat64s(rf.classes_, c)
			for i := 0; i < nSamples; i++ {
				out.Set(i, col, out.At(i, col)+p.At(i, k))
			}
		}
	}
	out.Scale(1/float64(len(rf.estimators_)), out)
	return out, nil
}

// Predict returns the class with the highest mean probability (n×1)
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, cols := probas.Dims()
	pred := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < cols; k++ {
			if probas.At(i, k) > probas.At(i, best) {
				best = k
			}
		}
		pred.Set(i, 0, rf.classes_[best])
	}
	return pred, nil
}

// Score returns the mean accuracy on the given data
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0.0
	}
	n, _ := X.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// Classes returns the sorted class labels seen during Fit
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes_...)
}

// Estimators returns the fitted trees
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.estimators_
}

// GetFeatureImportances returns the mean of the tree importances
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	if len(rf.estimators_) == 0 {
		return nil
	}
	nFeatures, _ := rf.state.GetDimensions()
	out := make([]float64, nFeatures)
	for _, t := range rf.estimators_ {
		for j, v := range t.GetFeatureImportances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rf.estimators_))
	}
	return out
}

// GetParams returns the model hyperparameters
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
		"n_jobs":            rf.nJobs,
	}
}

type forestState struct {
	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     int64
	NJobs           int
	Estimators      []*tree.DecisionTreeClassifier
	Classes         []float64
	State           *model.StateManager
}

// GobEncode implements gob.GobEncoder.
func (rf *RandomForestClassifier) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(forestState{
		NEstimators:     rf.nEstimators,
		Criterion:       rf.criterion,
		MaxDepth:        rf.maxDepth,
		MinSamplesSplit: rf.minSamplesSplit,
		MinSamplesLeaf:  rf.minSamplesLeaf,
		MaxFeatures:     rf.maxFeatures,
		Bootstrap:       rf.bootstrap,
		RandomState:     rf.randomState,
		NJobs:           rf.nJobs,
		Estimators:      rf.estimators_,
		Classes:         rf.classes_,
		State:           rf.state,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode random forest")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (rf *RandomForestClassifier) GobDecode(data []byte) error {
	var s forestState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "failed to decode random forest")
	}
	if s.State == nil {
		s.State = model.NewStateManager()
	}
	*rf = RandomForestClassifier{
		state:           s.State,
		nEstimators:     s.NEstimators,
		criterion:       s.Criterion,
		maxDepth:        s.MaxDepth,
		minSamplesSplit: s.MinSamplesSplit,
		minSamplesLeaf:  s.MinSamplesLeaf,
		maxFeatures:     s.MaxFeatures,
		bootstrap:       s.Bootstrap,
		randomState:     s.RandomState,
		nJobs:           s.NJobs,
		estimators_:     s.Estimators,
		classes_:        s.Classes,
	}
	return nil
}

func uniqueSorted(y mat.Matrix) []float64 {
	rows, _ := y.Dims()
	seen := make(map[float64]bool)
	var out []float64
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func init() {
	gob.Register(&RandomForestClassifier{})
}
