// Package tree implements CART decision trees.
package tree

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/core/model"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// Node is one node of a fitted tree, stored in a flat slice.
// Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64 // x[Feature] <= Threshold goes left
	Left      int
	Right     int
	Value     []float64 // class distribution of the training samples reaching the node
	Impurity  float64
	NSamples  int
}

func (n *Node) isLeaf() bool {
	return n.Feature < 0
}

// DecisionTreeClassifier is a CART classifier.
// Compatible with scikit-learn's DecisionTreeClassifier
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string // "gini" or "entropy"
	maxDepth        int    // <= 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int   // features examined per split, <= 0 means all
	randomState     int64 // seeds feature subsampling

	// Model parameters
	nodes               []Node
	classes_            []float64
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
}

// DecisionTreeOption is a functional option for DecisionTreeClassifier
type DecisionTreeOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		randomState:     0,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the impurity measure ("gini" or "entropy")
func WithCriterion(criterion string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the depth of the tree (root has depth 0)
func WithMaxDepth(depth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum samples required to split a node
func WithMinSamplesSplit(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf
func WithMinSamplesLeaf(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many randomly chosen features are examined per split
func WithMaxFeatures(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithRandomState seeds the feature subsampling
func WithRandomState(seed int64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// Fit builds the tree from X (n×p) and y (n×1 class labels)
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "empty input")
	}
	if nSamples != yRows {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}

	dt.state.Reset()
	dt.extractClasses(y)
	dt.nFeatures_ = nFeatures

	labels := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		labels[i] = dt.classIndex(y.At(i, 0))
	}
	cols := make([][]float64, nFeatures)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}

	b := &builder{
		dt:          dt,
		cols:        cols,
		labels:      labels,
		importances: make([]float64, nFeatures),
		rng:         rand.New(rand.NewPCG(uint64(dt.randomState), uint64(dt.randomState))),
	}
	idx := make([]int, nSamples)
	for i := range idx {
		idx[i] = i
	}
	dt.nodes = dt.nodes[:0]
	b.build(idx, 0)

	dt.featureImportances_ = normalize(b.importances)
	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()
	return nil
}

func (dt *DecisionTreeClassifier) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	seen := make(map[float64]bool)
	dt.classes_ = dt.classes_[:0]
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if !seen[v] {
			seen[v] = true
			dt.classes_ = append(dt.classes_, v)
		}
	}
	sort.Float64s(dt.classes_)
	dt.nClasses_ = len(dt.classes_)
}

func (dt *DecisionTreeClassifier) classIndex(label float64) int {
	return sort.SearchFloat64s(dt.classes_, label)
}

// Predict returns the majority class of the leaf each row falls into (n×1)
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := probas.Dims()
	pred := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred.Set(i, 0, dt.classes_[argmax(mat.Row(nil, i, probas))])
	}
	return pred, nil
}

// PredictProba returns the leaf class distribution for each row (n×nClasses)
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := dt.state.RequireFeatures("DecisionTreeClassifier.PredictProba", nFeatures); err != nil {
		return nil, err
	}

	probas := mat.NewDense(nSamples, dt.nClasses_, nil)
	for i := 0; i < nSamples; i++ {
		probas.SetRow(i, dt.leaf(X, i).Value)
	}
	return probas, nil
}

func (dt *DecisionTreeClassifier) leaf(X mat.Matrix, i int) *Node {
	n := &dt.nodes[0]
	for !n.isLeaf() {
		if X.At(i, n.Feature) <= n.Threshold {
			n = &dt.nodes[n.Left]
		} else {
			n = &dt.nodes[n.Right]
		}
	}
	return n
}

// Score returns the mean accuracy on the given data
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}
	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Classes returns the sorted class labels seen during Fit
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// GetFeatureImportances returns the normalized total impurity decrease per feature
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetDepth returns the depth of the fitted tree
func (dt *DecisionTreeClassifier) GetDepth() int {
	if len(dt.nodes) == 0 {
		return 0
	}
	var depth func(i int) int
	depth = func(i int) int {
		n := &dt.nodes[i]
		if n.isLeaf() {
			return 0
		}
		return 1 + max(depth(n.Left), depth(n.Right))
	}
	return depth(0)
}

// GetNLeaves returns the number of leaves of the fitted tree
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	n := 0
	for i := range dt.nodes {
		if dt.nodes[i].isLeaf() {
			n++
		}
	}
	return n
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams sets the model hyperparameters
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			dt.criterion = s
		case "max_depth":
			err = setInt(key, value, &dt.maxDepth)
		case "min_samples_split":
			err = setInt(key, value, &dt.minSamplesSplit)
		case "min_samples_leaf":
			err = setInt(key, value, &dt.minSamplesLeaf)
		case "max_features":
			err = setInt(key, value, &dt.maxFeatures)
		case "random_state":
			seed, ok := value.(int64)
			if !ok {
				return errors.NewValidationError(key, "must be an int64", value)
			}
			dt.randomState = seed
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func setInt(key string, value interface{}, dst *int) error {
	v, ok := value.(int)
	if !ok {
		return errors.NewValidationError(key, "must be an int", value)
	}
	*dst = v
	return nil
}

// treeState is the gob form of a DecisionTreeClassifier.
type treeState struct {
	Criterion          string
	MaxDepth           int
	MinSamplesSplit    int
	MinSamplesLeaf     int
	MaxFeatures        int
	RandomState        int64
	Nodes              []Node
	Classes            []float64
	NFeatures          int
	FeatureImportances []float64
	State              *model.StateManager
}

// GobEncode implements gob.GobEncoder.
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(treeState{
		Criterion:          dt.criterion,
		MaxDepth:           dt.maxDepth,
		MinSamplesSplit:    dt.minSamplesSplit,
		MinSamplesLeaf:     dt.minSamplesLeaf,
		MaxFeatures:        dt.maxFeatures,
		RandomState:        dt.randomState,
		Nodes:              dt.nodes,
		Classes:            dt.classes_,
		NFeatures:          dt.nFeatures_,
		FeatureImportances: dt.featureImportances_,
		State:              dt.state,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode decision tree")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var s treeState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "failed to decode decision tree")
	}
	if s.State == nil {
		s.State = model.NewStateManager()
	}
	*dt = DecisionTreeClassifier{
		state:               s.State,
		criterion:           s.Criterion,
		maxDepth:            s.MaxDepth,
		minSamplesSplit:     s.MinSamplesSplit,
		minSamplesLeaf:      s.MinSamplesLeaf,
		maxFeatures:         s.MaxFeatures,
		randomState:         s.RandomState,
		nodes:               s.Nodes,
		classes_:            s.Classes,
		nClasses_:           len(s.Classes),
		nFeatures_:          s.NFeatures,
		featureImportances_: s.FeatureImportances,
	}
	return nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	out := make([]float64, len(v))
	if sum <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}

func init() {
	gob.Register(&DecisionTreeClassifier{})
}
