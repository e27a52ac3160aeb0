package trainer

import (
	"strings"

	"github.com/YuminosukeSato/synthpipe/core/model"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/preprocessing"
	"github.com/YuminosukeSato/synthpipe/sklearn/ensemble"
	"github.com/YuminosukeSato/synthpipe/sklearn/linear_model"
	"github.com/YuminosukeSato/synthpipe/sklearn/pipeline"
)

// Registry names of the default models.
const (
	LogisticRegressionName = "logistic_regression"
	RandomForestName       = "random_forest"
)

// Builder returns an unfitted model seeded with seed.
type Builder func(seed int64) model.Model

// Entry is one named model kind.
type Entry struct {
	Name  string
	Build Builder
}

// Registry is an ordered list of model kinds. Order decides which model wins
// an F1 tie.
type Registry struct {
	entries []Entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry holds a scaled logistic regression and an unscaled random forest.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.mustRegister(LogisticRegressionName, func(seed int64) model.Model {
		return pipeline.New(
			preprocessing.NewStandardScalerDefault(),
			linear_model.NewLogisticRegression(
				linear_model.WithLRMaxIter(1000),
				linear_model.WithLRRandomState(seed),
			),
		)
	})
	r.mustRegister(RandomForestName, func(seed int64) model.Model {
		return ensemble.NewRandomForestClassifier(
			ensemble.WithNEstimators(200),
			ensemble.WithForestRandomState(seed),
		)
	})
	return r
}

// Register appends a model kind. Names must be unique and usable as file names.
func (r *Registry) Register(name string, build Builder) error {
	if name == "" || build == nil {
		return errors.NewValidationError("registry", "name and builder are required", name)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.NewValidationError("registry", "name must be a plain file name", name)
	}
	for _, e := range r.entries {
		if e.Name == name {
			return errors.NewValidationError("registry", "duplicate model name", name)
		}
	}
	r.entries = append(r.entries, Entry{Name: name, Build: build})
	return nil
}

func (r *Registry) mustRegister(name string, build Builder) {
	if err := r.Register(name, build); err != nil {
		panic(err)
	}
}

// Entries returns the model kinds in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of model kinds.
func (r *Registry) Len() int {
	return len(r.entries)
}
