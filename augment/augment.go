// Package augment enlarges a Dataset with perturbed, resampled or blended rows.
//
// Every Augmenter owns one PCG stream, so two Augmenters created with the same
// seed and fed the same calls produce the same rows.
package augment

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/synthpipe/dataset"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/pkg/log"
)

// Method names an augmentation strategy.
type Method string

const (
	MethodNoise      Method = "noise"
	MethodOversample Method = "oversample"
	MethodSynthetic  Method = "synthetic"
	MethodAll        Method = "all"
)

// ParseMethod reports whether s names a known Method.
func ParseMethod(s string) (Method, bool) {
	switch m := Method(s); m {
	case MethodNoise, MethodOversample, MethodSynthetic, MethodAll:
		return m, true
	}
	return "", false
}

// Defaults used by Augment.
const (
	DefaultNoiseFactor  = 0.1
	DefaultRatio        = 0.5
	DefaultCombinations = 50

	// allNoiseFactor and allCombinations are the milder settings MethodAll uses.
	allNoiseFactor  = 0.05
	allCombinations = 25
)

// Augmenter applies augmentation methods. It is not safe for concurrent use.
type Augmenter struct {
	src    *rand.PCG
	rng    *rand.Rand
	seed   int64
	logger log.Logger

	noiseFactor  float64
	ratio        float64
	combinations int
	strict       bool
}

// Option configures an Augmenter.
type Option func(*Augmenter)

// WithNoiseFactor sets the noise scale relative to each column's standard deviation.
func WithNoiseFactor(f float64) Option {
	return func(a *Augmenter) {
		a.noiseFactor = f
	}
}

// WithRatio sets the minority size oversampling aims for, as a fraction of the majority.
func WithRatio(r float64) Option {
	return func(a *Augmenter) {
		a.ratio = r
	}
}

// WithCombinations sets how many blended rows MethodSynthetic appends.
func WithCombinations(n int) Option {
	return func(a *Augmenter) {
		a.combinations = n
	}
}

// WithStrict makes Augment reject unknown methods instead of falling back to noise.
func WithStrict(strict bool) Option {
	return func(a *Augmenter) {
		a.strict = strict
	}
}

// WithLogger sets the structured logger.
func WithLogger(l log.Logger) Option {
	return func(a *Augmenter) {
		a.logger = l
	}
}

// New returns an Augmenter drawing from a PCG stream seeded by seed.
func New(seed int64, opts ...Option) *Augmenter {
	src := rand.NewPCG(uint64(seed), uint64(seed))
	a := &Augmenter{
		src:          src,
		rng:          rand.New(src),
		seed:         seed,
		logger:       log.GetLogger(),
		noiseFactor:  DefaultNoiseFactor,
		ratio:        DefaultRatio,
		combinations: DefaultCombinations,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(log.ComponentKey, "augmenter")
	return a
}

// Augment applies method to ds. numerical names the columns that noise and
// blending touch; target is the class column used by oversampling.
//
// An unknown method falls back to noise and raises an UnknownMethodWarning,
// unless the Augmenter is strict, in which case it is a ValidationError.
func (a *Augmenter) Augment(ds *dataset.Dataset, target string, numerical []string, method string) (*dataset.Dataset, error) {
	m, ok := ParseMethod(method)
	if !ok {
		if a.strict {
			return nil, errors.NewValidationError("method", "must be one of noise, oversample, synthetic, all", method)
		}
		errors.Warn(&errors.UnknownMethodWarning{Method: method, Fallback: string(MethodNoise)})
		a.logger.Warn("unknown augmentation method, using noise",
			log.MethodKey, method,
		)
		m = MethodNoise
	}

	var (
		out *dataset.Dataset
		err error
	)
	switch m {
	case MethodNoise:
		out, err = a.Noise(ds, numerical, a.noiseFactor)
	case MethodOversample:
		out, err = a.Oversample(ds, target, a.ratio)
	case MethodSynthetic:
		out, err = a.Synthetic(ds, numerical, a.combinations)
	case MethodAll:
		out, err = a.All(ds, target, numerical)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "augment %s", m)
	}

	a.logger.Info("dataset augmented",
		log.OperationKey, log.OperationAugment,
		log.MethodKey, string(m),
		log.SamplesKey, out.Len(),
		log.RandomSeedKey, a.seed,
	)
	return out, nil
}

// Noise adds Gaussian noise N(0, factor*std) to each named numerical column,
// where std is the column's sample standard deviation. Names absent from ds
// are skipped. The row count is unchanged.
func (a *Augmenter) Noise(ds *dataset.Dataset, numerical []string, factor float64) (*dataset.Dataset, error) {
	if factor < 0 {
		return nil, errors.NewValidationError("noise_factor", "must not be negative", factor)
	}
	out := ds
	for _, name := range numerical {
		col, ok := ds.Column(name)
		if !ok {
			continue
		}
		if col.Kind != dataset.Numerical {
			return nil, errors.NewDataError("noise", "column '"+name+"' is not numerical", nil)
		}

		sigma := factor * sampleStd(col.Num)
		noisy := make([]float64, len(col.Num))
		// Constant columns draw nothing from the stream.
		if sigma == 0 || math.IsNaN(sigma) {
			copy(noisy, col.Num)
		} else {
			dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: a.src}
			for i, v := range col.Num {
				noisy[i] = v + dist.Rand()
			}
		}

		var err error
		out, err = out.Replace(dataset.NewNumerical(name, noisy))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Oversample appends minority-class rows, drawn with replacement, until the
// minority holds int(majority*ratio) rows. When it already holds that many the
// input is returned unchanged.
func (a *Augmenter) Oversample(ds *dataset.Dataset, target string, ratio float64) (*dataset.Dataset, error) {
	col, ok := ds.Column(target)
	if !ok {
		return nil, errors.NewDataError("oversample", "target column '"+target+"' not found", nil)
	}
	if ratio <= 0 {
		return nil, errors.NewValidationError("ratio", "must be positive", ratio)
	}

	rowsByClass := make(map[string][]int)
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		k := col.Format(i)
		rowsByClass[k] = append(rowsByClass[k], i)
	}
	if len(rowsByClass) == 0 {
		return nil, errors.NewDataError("oversample", "target column '"+target+"' has no values", errors.ErrEmptyData)
	}

	classes := make([]string, 0, len(rowsByClass))
	for k := range rowsByClass {
		classes = append(classes, k)
	}
	sort.Strings(classes)
	minority, majority := classes[0], classes[0]
	for _, k := range classes[1:] {
		if len(rowsByClass[k]) < len(rowsByClass[minority]) {
			minority = k
		}
		if len(rowsByClass[k]) > len(rowsByClass[majority]) {
			majority = k
		}
	}

	pool := rowsByClass[minority]
	want := int(float64(len(rowsByClass[majority])) * ratio)
	need := want - len(pool)
	if need <= 0 {
		a.logger.Info("minority class already at target size, nothing to oversample",
			log.ColumnKey, target,
			log.SamplesKey, len(pool),
		)
		return ds, nil
	}

	picks := make([]int, need)
	for i := range picks {
		picks[i] = pool[a.rng.IntN(len(pool))]
	}
	return ds.AppendRows(ds, picks)
}

// Synthetic appends n rows, each blended from two distinct rows picked
// uniformly at random. The named numerical columns hold the mean of both
// parents; every other column is copied from the first parent.
func (a *Augmenter) Synthetic(ds *dataset.Dataset, numerical []string, n int) (*dataset.Dataset, error) {
	if n < 0 {
		return nil, errors.NewValidationError("combinations", "must not be negative", n)
	}
	rows := ds.Len()
	if rows < 2 {
		return nil, errors.NewDataError("synthetic", "need at least two rows to combine", nil)
	}
	if n == 0 {
		return ds, nil
	}

	first := make([]int, n)
	second := make([]int, n)
	for i := 0; i < n; i++ {
		p := a.rng.IntN(rows)
		q := a.rng.IntN(rows - 1)
		if q >= p {
			q++
		}
		first[i], second[i] = p, q
	}

	children := ds.Select(first)
	for _, name := range numerical {
		col, ok := ds.Column(name)
		if !ok {
			continue
		}
		if col.Kind != dataset.Numerical {
			return nil, errors.NewDataError("synthetic", "column '"+name+"' is not numerical", nil)
		}
		blended := make([]float64, n)
		for i := range blended {
			blended[i] = (col.Num[first[i]] + col.Num[second[i]]) / 2
		}
		var err error
		children, err = children.Replace(dataset.NewNumerical(name, blended))
		if err != nil {
			return nil, err
		}
	}
	return ds.Append(children)
}

// All runs noise, oversampling and blending in turn, each on the previous
// output, with a smaller noise factor and fewer combinations than the
// individual methods default to.
func (a *Augmenter) All(ds *dataset.Dataset, target string, numerical []string) (*dataset.Dataset, error) {
	out, err := a.Noise(ds, numerical, allNoiseFactor)
	if err != nil {
		return nil, err
	}
	if out, err = a.Oversample(out, target, a.ratio); err != nil {
		return nil, err
	}
	return a.Synthetic(out, numerical, allCombinations)
}

// sampleStd is the ddof=1 standard deviation of the non-missing values.
func sampleStd(values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) < 2 {
		return 0
	}
	return stat.StdDev(present, nil)
}
