// Package linear_model provides linear classifiers.
package linear_model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/core/model"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// LogisticRegression implements logistic regression for classification.
// Two classes fit a single weight vector; more classes fit one-vs-rest.
// Compatible with scikit-learn's LogisticRegression
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2" or "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	randomState  int64   // Seed for weight initialization
	maxIter      int     // Maximum iterations
	tol          float64 // Tolerance for stopping
	warmStart    bool    // Reuse previous solution

	// Model parameters
	coef_      [][]float64 // Coefficients (n_classes x n_features or 1 x n_features for binary)
	intercept_ []float64   // Intercept terms
	classes_   []float64   // Sorted unique class labels
	nClasses_  int         // Number of classes
	nFeatures_ int         // Number of features
	nIter_     []int       // Actual iterations per weight vector
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		randomState:  0,
		maxIter:      100,
		tol:          1e-4,
	}

	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the seed for weight initialization
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// WithLRWarmStart reuses the previous coefficients on refit
func WithLRWarmStart(warm bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.warmStart = warm
	}
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.NewValueError("LogisticRegression.Fit", "empty input")
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}
	if lr.penalty != "l2" && lr.penalty != "none" {
		return errors.NewValidationError("penalty", "must be 'l2' or 'none'", lr.penalty)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}

	prevClasses := lr.nClasses_
	lr.extractClasses(y)
	if lr.nClasses_ < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "y must contain at least two classes")
	}

	if !lr.warmStart || lr.coef_ == nil || prevClasses != lr.nClasses_ || lr.nFeatures_ != nFeatures {
		lr.initializeWeights(nFeatures)
	}
	lr.nFeatures_ = nFeatures

	if lr.nClasses_ == 2 {
		lr.fitVector(X, lr.binaryTarget(y, lr.classes_[1]), 0)
	} else {
		for k, class := range lr.classes_ {
			lr.fitVector(X, lr.binaryTarget(y, class), k)
		}
	}

	for k := range lr.coef_ {
		if err := errors.CheckNumericalStability("LogisticRegression.Fit", lr.coef_[k], lr.nIter_[k]); err != nil {
			return err
		}
		if lr.nIter_[k] >= lr.maxIter {
			errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.nIter_[k],
				"gradient did not fall below tol; increase max_iter"))
		}
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	return nil
}

// extractClasses identifies sorted unique class labels
func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	seen := make(map[float64]bool)
	lr.classes_ = lr.classes_[:0]
	for i := 0; i < rows; i++ {
		label := y.At(i, 0)
		if !seen[label] {
			seen[label] = true
			lr.classes_ = append(lr.classes_, label)
		}
	}
	sort.Float64s(lr.classes_)
	lr.nClasses_ = len(lr.classes_)
}

// initializeWeights draws small random starting weights
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	nVectors := lr.nClasses_
	if nVectors == 2 {
		nVectors = 1
	}
	rng := rand.New(rand.NewPCG(uint64(lr.randomState), uint64(lr.randomState)))

	lr.coef_ = make([][]float64, nVectors)
	for k := range lr.coef_ {
		lr.coef_[k] = make([]float64, nFeatures)
		for j := range lr.coef_[k] {
			lr.coef_[k][j] = rng.NormFloat64() * 0.01
		}
	}
	lr.intercept_ = make([]float64, nVectors)
	lr.nIter_ = make([]int, nVectors)
}

// binaryTarget maps y to 1 for the given class and 0 otherwise
func (lr *LogisticRegression) binaryTarget(y mat.Matrix, class float64) []float64 {
	rows, _ := y.Dims()
	out := make([]float64, rows)
	for i := range out {
		if y.At(i, 0) == class {
			out[i] = 1
		}
	}
	return out
}

// fitVector runs gradient descent on weight vector k with a decaying
// learning rate 1/(1+0.1·iter) until the largest gradient component is below tol.
func (lr *LogisticRegression) fitVector(X mat.Matrix, target []float64, k int) {
	nSamples, nFeatures := X.Dims()
	weights := lr.coef_[k]
	intercept := &lr.intercept_[k]
	gradWeights := make([]float64, nFeatures)

	for iter := 0; iter < lr.maxIter; iter++ {
		for j := range gradWeights {
			gradWeights[j] = 0
		}
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - target[i]
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
		}
		gradIntercept /= float64(nSamples)

		if lr.penalty == "l2" {
			lambda := 1.0 / lr.C
			for j := range weights {
				gradWeights[j] += lambda * weights[j]
			}
		}

		learningRate := 1.0 / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if lr.fitIntercept {
			*intercept -= learningRate * gradIntercept
		}

		lr.nIter_[k] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < lr.tol {
			break
		}
	}
}

// decision returns the linear score of row i for weight vector k
func (lr *LogisticRegression) decision(X mat.Matrix, i, k int) float64 {
	z := lr.intercept_[k]
	for j := 0; j < lr.nFeatures_; j++ {
		z += X.At(i, j) * lr.coef_[k][j]
	}
	return z
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := probas.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for k := 1; k < lr.nClasses_; k++ {
			if probas.At(i, k) > probas.At(i, best) {
				best = k
			}
		}
		predictions.Set(i, 0, lr.classes_[best])
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class.
// Binary: [1-p, p]. Multiclass: softmax over the one-vs-rest scores.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := lr.state.RequireFeatures("LogisticRegression.PredictProba", nFeatures); err != nil {
		return nil, err
	}

	probas := mat.NewDense(nSamples, lr.nClasses_, nil)
	if lr.nClasses_ == 2 {
		for i := 0; i < nSamples; i++ {
			p := sigmoid(lr.decision(X, i, 0))
			probas.Set(i, 0, 1.0-p)
			probas.Set(i, 1, p)
		}
		return probas, nil
	}

	scores := make([]float64, lr.nClasses_)
	for i := 0; i < nSamples; i++ {
		maxScore := math.Inf(-1)
		for k := range scores {
			scores[k] = lr.decision(X, i, k)
			maxScore = math.Max(maxScore, scores[k])
		}
		sum := 0.0
		for k := range scores {
			scores[k] = math.Exp(scores[k] - maxScore)
			sum += scores[k]
		}
		for k := range scores {
			probas.Set(i, k, scores[k]/sum)
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) float64 {
	predictions, err := lr.Predict(X)
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
func (lr *LogisticRegression) Classes() []float64 {
	return append([]float64(nil), lr.classes_...)
}

// Coef returns a copy of the fitted coefficients
func (lr *LogisticRegression) Coef() [][]float64 {
	out := make([][]float64, len(lr.coef_))
	for k := range lr.coef_ {
		out[k] = append([]float64(nil), lr.coef_[k]...)
	}
	return out
}

// NIter returns the iterations used per weight vector
func (lr *LogisticRegression) NIter() []int {
	return append([]int(nil), lr.nIter_...)
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"random_state":  lr.randomState,
		"max_iter":      lr.maxIter,
		"warm_start":    lr.warmStart,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		ok := true
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "random_state":
			lr.randomState, ok = value.(int64)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "warm_start":
			lr.warmStart, ok = value.(bool)
		case "tol":
			lr.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", value), value)
		}
	}
	return nil
}

type logisticState struct {
	Penalty      string
	C            float64
	FitIntercept bool
	RandomState  int64
	MaxIter      int
	Tol          float64
	WarmStart    bool
	Coef         [][]float64
	Intercept    []float64
	Classes      []float64
	NFeatures    int
	NIter        []int
	State        *model.StateManager
}

// GobEncode implements gob.GobEncoder.
func (lr *LogisticRegression) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(logisticState{
		Penalty:      lr.penalty,
		C:            lr.C,
		FitIntercept: lr.fitIntercept,
		RandomState:  lr.randomState,
		MaxIter:      lr.maxIter,
		Tol:          lr.tol,
		WarmStart:    lr.warmStart,
		Coef:         lr.coef_,
		Intercept:    lr.intercept_,
		Classes:      lr.classes_,
		NFeatures:    lr.nFeatures_,
		NIter:        lr.nIter_,
		State:        lr.state,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode logistic regression")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (lr *LogisticRegression) GobDecode(data []byte) error {
	var s logisticState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "failed to decode logistic regression")
	}
	if s.State == nil {
		s.State = model.NewStateManager()
	}
	*lr = LogisticRegression{
		state:        s.State,
		penalty:      s.Penalty,
		C:            s.C,
		fitIntercept: s.FitIntercept,
		randomState:  s.RandomState,
		maxIter:      s.MaxIter,
		tol:          s.Tol,
		warmStart:    s.WarmStart,
		coef_:        s.Coef,
		intercept_:   s.Intercept,
		classes_:     s.Classes,
		nClasses_:    len(s.Classes),
		nFeatures_:   s.NFeatures,
		nIter_:       s.NIter,
	}
	return nil
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-z))
}

func init() {
	gob.Register(&LogisticRegression{})
}
