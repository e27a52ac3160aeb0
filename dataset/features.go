package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// FeatureMatrix is the numeric design matrix left after removing the target.
// Row i corresponds to row i of the source Dataset.
type FeatureMatrix struct {
	Names []string
	X     *mat.Dense
}

// Dims returns rows and feature count.
func (f *FeatureMatrix) Dims() (int, int) {
	return f.X.Dims()
}

// SplitTarget separates the target column from the features. The target must
// be numerical with values in {0, 1} and every remaining column must be
// numerical. Missing values are rejected on both sides.
func (d *Dataset) SplitTarget(target string) (*FeatureMatrix, *mat.VecDense, error) {
	col, ok := d.Column(target)
	if !ok {
		return nil, nil, errors.NewDataError("split_target", "target column '"+target+"' not found", nil)
	}
	if d.Len() == 0 {
		return nil, nil, errors.NewDataError("split_target", "dataset has no rows", errors.ErrEmptyData)
	}
	if col.Kind != Numerical {
		return nil, nil, errors.NewDataError("split_target", "target column '"+target+"' is categorical", nil)
	}
	y := mat.NewVecDense(d.Len(), nil)
	for i, v := range col.Num {
		if v != 0 && v != 1 {
			return nil, nil, errors.NewDataError("split_target",
				"target column '"+target+"' must be binary {0,1}, found "+col.Format(i), nil)
		}
		y.SetVec(i, v)
	}

	names := make([]string, 0, d.Width()-1)
	feats := make([]*Column, 0, d.Width()-1)
	for _, c := range d.cols {
		if c.Name == target {
			continue
		}
		if c.Kind != Numerical {
			return nil, nil, errors.NewDataError("split_target", "feature column '"+c.Name+"' is not numerical; encode it first", nil)
		}
		if c.MissingCount() > 0 {
			return nil, nil, errors.NewDataError("split_target", "feature column '"+c.Name+"' has missing values; clean it first", nil)
		}
		names = append(names, c.Name)
		feats = append(feats, c)
	}
	if len(feats) == 0 {
		return nil, nil, errors.NewDataError("split_target", "no feature columns besides the target", nil)
	}

	X := mat.NewDense(d.Len(), len(feats), nil)
	for j, c := range feats {
		X.SetCol(j, c.Num)
	}
	return &FeatureMatrix{Names: names, X: X}, y, nil
}

// FromFeatures rebuilds a Dataset from a feature matrix and target vector.
// The target column is placed last.
func FromFeatures(fm *FeatureMatrix, y *mat.VecDense, target string) (*Dataset, error) {
	r, c := fm.X.Dims()
	if len(fm.Names) != c {
		return nil, errors.NewDimensionError("from_features", c, len(fm.Names), 1)
	}
	if y.Len() != r {
		return nil, errors.NewDimensionError("from_features", r, y.Len(), 0)
	}
	cols := make([]*Column, 0, c+1)
	for j, name := range fm.Names {
		cols = append(cols, NewNumerical(name, mat.Col(nil, j, fm.X)))
	}
	cols = append(cols, NewNumerical(target, mat.Col(nil, 0, y)))
	return New(cols...)
}
