// Package preprocessing cleans, encodes and scales datasets before training.
package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/dataset"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/pkg/log"
	"github.com/YuminosukeSato/synthpipe/stats"
)

// CleanReport describes what Clean changed.
type CleanReport struct {
	DuplicatesRemoved int
	// Imputed maps a column name to the number of values filled in.
	Imputed map[string]int
}

// Preprocessor owns the fitted encoders and scaler of one pipeline run.
//
// Encoders are fitted the first time a column is encoded and the scaler the
// first time Scale is called; later calls reuse them. A Preprocessor is not
// safe for concurrent use.
type Preprocessor struct {
	encoders map[string]*LabelEncoder
	scaler   Scaler
	logger   log.Logger
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithLogger sets the logger used for stage summaries.
func WithLogger(l log.Logger) Option {
	return func(p *Preprocessor) {
		p.logger = l
	}
}

// WithScaler replaces the default StandardScaler.
func WithScaler(s Scaler) Option {
	return func(p *Preprocessor) {
		p.scaler = s
	}
}

// NewPreprocessor returns a Preprocessor with no fitted state.
func NewPreprocessor(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		encoders: make(map[string]*LabelEncoder),
		scaler:   NewStandardScalerDefault(),
		logger:   log.GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(log.ComponentKey, "preprocessor")
	return p
}

// Clean removes exact duplicate rows, keeping the first occurrence, then fills
// missing numerical values with the column median and missing categorical
// values with the column mode. Statistics are computed after deduplication.
// Columns with no values at all are left as they are. The input is not modified.
func (p *Preprocessor) Clean(ds *dataset.Dataset) (*dataset.Dataset, CleanReport) {
	report := CleanReport{Imputed: make(map[string]int)}

	seen := make(map[string]bool, ds.Len())
	keep := make([]int, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		key := ds.RowKey(i)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}
	report.DuplicatesRemoved = ds.Len() - len(keep)
	out := ds.Select(keep)

	for _, col := range out.Columns() {
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}
		var filled bool
		if col.Kind == dataset.Numerical {
			filled = fillNumerical(col)
		} else {
			filled = fillCategorical(col)
		}
		if filled {
			report.Imputed[col.Name] = missing
		}
	}

	p.logger.Info("dataset cleaned",
		log.OperationKey, log.OperationClean,
		log.DuplicatesKey, report.DuplicatesRemoved,
		log.SamplesKey, out.Len(),
		log.FeaturesKey, out.Width(),
	)
	return out, report
}

func fillNumerical(col *dataset.Column) bool {
	median, err := stats.Median(col.Num)
	if err != nil {
		return false
	}
	for i := range col.Num {
		if col.IsMissing(i) {
			col.Num[i] = median
		}
	}
	return true
}

func fillCategorical(col *dataset.Column) bool {
	mode, ok := Mode(col.Cat)
	if !ok {
		return false
	}
	for i := range col.Cat {
		if col.Cat[i] == "" {
			col.Cat[i] = mode
		}
	}
	return true
}

// Mode returns the most frequent non-empty label. Ties go to the
// lexicographically smallest label.
func Mode(labels []string) (string, bool) {
	counts := make(map[string]int)
	for _, l := range labels {
		if l != "" {
			counts[l]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}

// Encode replaces each named categorical column with its integer codes.
// Names absent from ds and columns that are already numerical are skipped.
// The encoder for a column is fitted on first use and reused afterwards, so a
// label unseen at fit time yields an UnknownCategoryError. Columns with
// missing values yield a DataError; run Clean first.
func (p *Preprocessor) Encode(ds *dataset.Dataset, categorical []string) (*dataset.Dataset, error) {
	out := ds
	encoded := 0
	for _, name := range categorical {
		col, ok := out.Column(name)
		if !ok || col.Kind != dataset.Categorical {
			continue
		}
		if col.MissingCount() > 0 {
			err := errors.NewDataError("encode", "column '"+name+"' has missing values; clean it first", nil)
			p.logger.Error("encoding failed", err, log.OperationKey, log.OperationEncode, log.ColumnKey, name)
			return nil, err
		}

		enc, fitted := p.encoders[name]
		if !fitted {
			enc = NewLabelEncoder(name)
			if err := enc.Fit(col.Cat); err != nil {
				return nil, err
			}
		}
		codes, err := enc.Transform(col.Cat)
		if err != nil {
			p.logger.Error("encoding failed", err, log.OperationKey, log.OperationEncode, log.ColumnKey, name)
			return nil, err
		}
		if !fitted {
			p.encoders[name] = enc
		}

		out, err = out.Replace(dataset.NewNumerical(name, codes))
		if err != nil {
			return nil, err
		}
		encoded++
	}

	p.logger.Info("categorical columns encoded",
		log.OperationKey, log.OperationEncode,
		"columns", encoded,
	)
	return out, nil
}

// Scale standardizes train and, when non-nil, test. The scaler is fitted on
// train the first time Scale is called; later calls only transform.
func (p *Preprocessor) Scale(train, test mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	var (
		scaledTrain mat.Matrix
		err         error
	)
	if !p.scaler.IsFitted() {
		scaledTrain, err = p.scaler.FitTransform(train)
	} else {
		scaledTrain, err = p.scaler.Transform(train)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "scale train")
	}
	if test == nil {
		return scaledTrain, nil, nil
	}
	scaledTest, err := p.scaler.Transform(test)
	if err != nil {
		return nil, nil, errors.Wrap(err, "scale test")
	}
	return scaledTrain, scaledTest, nil
}

// Prepare cleans ds, encodes the categorical columns and separates the
// target. The target must exist and be binary, and every remaining column
// must be numerical once encoding is done.
func (p *Preprocessor) Prepare(ds *dataset.Dataset, target string, categorical []string) (*dataset.FeatureMatrix, *mat.VecDense, error) {
	if !ds.Has(target) {
		return nil, nil, errors.NewDataError("prepare", "target column '"+target+"' not found", nil)
	}
	clean, _ := p.Clean(ds)
	encoded, err := p.Encode(clean, categorical)
	if err != nil {
		return nil, nil, err
	}
	fm, y, err := encoded.SplitTarget(target)
	if err != nil {
		return nil, nil, err
	}
	rows, cols := fm.Dims()
	p.logger.Info("data prepared", log.SamplesKey, rows, log.FeaturesKey, cols)
	return fm, y, nil
}

// Encoders returns the fitted encoders keyed by column name.
func (p *Preprocessor) Encoders() map[string]*LabelEncoder {
	out := make(map[string]*LabelEncoder, len(p.encoders))
	for k, v := range p.encoders {
		out[k] = v
	}
	return out
}

// Scaler returns the scaler used by Scale.
func (p *Preprocessor) Scaler() Scaler {
	return p.scaler
}
