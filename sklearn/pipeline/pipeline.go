// Package pipeline chains a feature scaler with a classifier.
package pipeline

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/core/model"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/preprocessing"
)

// Pipeline scales features before handing them to Classifier.
// Fit fits both steps on the training data; Predict and PredictProba reuse the
// fitted scaler. Both fields are exported so the whole pipeline can be stored
// with encoding/gob.
type Pipeline struct {
	Scaler     preprocessing.Scaler
	Classifier model.Model
}

// New returns a Pipeline of the given steps.
func New(scaler preprocessing.Scaler, classifier model.Model) *Pipeline {
	return &Pipeline{Scaler: scaler, Classifier: classifier}
}

// Fit fits the scaler on X, then the classifier on the scaled X.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	Xs, err := p.Scaler.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "pipeline: scaler")
	}
	if err := p.Classifier.Fit(Xs, y); err != nil {
		return errors.Wrap(err, "pipeline: classifier")
	}
	return nil
}

// Predict returns the classifier's labels for the scaled X.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xs, err := p.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Classifier.Predict(Xs)
}

// PredictProba returns class probabilities when the classifier provides them.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	pc, ok := p.Classifier.(model.ProbabilisticClassifier)
	if !ok {
		return nil, errors.NewModelError("Pipeline.PredictProba", "capability", errors.ErrNotImplemented)
	}
	Xs, err := p.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return pc.PredictProba(Xs)
}

// Probabilistic reports whether PredictProba is available.
func (p *Pipeline) Probabilistic() bool {
	_, ok := p.Classifier.(model.ProbabilisticClassifier)
	return ok
}

func init() {
	gob.Register(&Pipeline{})
}
