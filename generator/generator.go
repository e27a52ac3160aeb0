// Package generator produces seeded synthetic customer datasets.
package generator

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/synthpipe/dataset"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/pkg/log"
)

// DefaultOutputDir is where Save writes when no directory is configured.
const DefaultOutputDir = "data/raw"

// forbiddenChars may not appear in a filename passed to Save.
const forbiddenChars = `<>:"|?*`

// Column names of a generated dataset, in order.
const (
	ColAge               = "age"
	ColIncome            = "income"
	ColPurchaseAmount    = "purchase_amount"
	ColMonthlyVisits     = "monthly_visits"
	ColSatisfactionScore = "satisfaction_score"
	ColGender            = "gender"
	ColProductType       = "product_type"
	ColPurchased         = "purchased"
)

var (
	genders      = []string{"Male", "Female"}
	productTypes = []string{"Electronics", "Clothing", "Books"}
)

// NumericalColumns are the feature columns drawn as integers.
func NumericalColumns() []string {
	return []string{ColAge, ColIncome, ColPurchaseAmount, ColMonthlyVisits, ColSatisfactionScore}
}

// CategoricalColumns are the feature columns drawn from fixed label sets.
func CategoricalColumns() []string {
	return []string{ColGender, ColProductType}
}

// Generator draws customer records from one PCG stream seeded by Seed.
// Every Generate call restarts the stream, so equal seeds and sample counts
// give equal datasets.
type Generator struct {
	seed      int64
	outputDir string
	errLog    *log.ErrorLog
	logger    log.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithOutputDir sets the directory Save writes into.
func WithOutputDir(dir string) Option {
	return func(g *Generator) {
		g.outputDir = dir
	}
}

// WithErrorLog sets the error log that rejected inputs are recorded to.
func WithErrorLog(l *log.ErrorLog) Option {
	return func(g *Generator) {
		g.errLog = l
	}
}

// WithLogger sets the structured logger.
func WithLogger(l log.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// New returns a Generator for seed.
func New(seed int64, opts ...Option) *Generator {
	g := &Generator{
		seed:      seed,
		outputDir: DefaultOutputDir,
		errLog:    log.NewErrorLog(log.DefaultErrorLogPath),
		logger:    log.GetLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(log.ComponentKey, "generator")
	return g
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Generate draws sampleCount records. sampleCount must be an int greater than
// zero; anything else is recorded to the error log and returned as a
// GenerationError.
//
// Columns are drawn one after another from the same stream:
//
//	age                 uniform integer in [18, 80)
//	income              uniform integer in [20000, 100000)
//	purchase_amount     uniform integer in [10, 500)
//	monthly_visits      uniform integer in [1, 20)
//	satisfaction_score  uniform integer in [1, 11)
//	gender              Male or Female
//	product_type        Electronics, Clothing or Books
//	purchased           Bernoulli(income/100000*0.5 + satisfaction_score/10*0.3 + 0.2)
func (g *Generator) Generate(sampleCount any) (*dataset.Dataset, error) {
	n, ok := sampleCount.(int)
	if !ok || n <= 0 {
		err := errors.NewGenerationError("sample_count", sampleCount)
		g.fail(log.OperationGenerate, err)
		return nil, err
	}

	src := rand.NewPCG(uint64(g.seed), uint64(g.seed))
	rng := rand.New(src)

	uniform := func(lo, hi int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(lo + rng.IntN(hi-lo))
		}
		return out
	}
	choice := func(labels []string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = labels[rng.IntN(len(labels))]
		}
		return out
	}

	age := uniform(18, 80)
	income := uniform(20000, 100000)
	amount := uniform(10, 500)
	visits := uniform(1, 20)
	satisfaction := uniform(1, 11)
	gender := choice(genders)
	product := choice(productTypes)

	purchased := make([]float64, n)
	for i := range purchased {
		p := income[i]/100000*0.5 + satisfaction[i]/10*0.3 + 0.2
		purchased[i] = distuv.Bernoulli{P: p, Src: src}.Rand()
	}

	ds, err := dataset.New(
		dataset.NewNumerical(ColAge, age),
		dataset.NewNumerical(ColIncome, income),
		dataset.NewNumerical(ColPurchaseAmount, amount),
		dataset.NewNumerical(ColMonthlyVisits, visits),
		dataset.NewNumerical(ColSatisfactionScore, satisfaction),
		dataset.NewCategorical(ColGender, gender),
		dataset.NewCategorical(ColProductType, product),
		dataset.NewNumerical(ColPurchased, purchased),
	)
	if err != nil {
		return nil, err
	}

	g.logger.Info("dataset generated",
		log.OperationKey, log.OperationGenerate,
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, ds.Width(),
		log.RandomSeedKey, g.seed,
	)
	return ds, nil
}

// Save writes ds as CSV to <output dir>/<filename> and returns that path.
// filename must be a string ending in ".csv" with no control characters and
// none of < > : " | ? *. Rejected names are recorded to the error log and
// returned as a PathError.
func (g *Generator) Save(ds *dataset.Dataset, filename any) (string, error) {
	name, err := validateFilename(filename)
	if err != nil {
		g.fail(log.OperationSave, err)
		return "", err
	}

	path := filepath.Join(g.outputDir, name)
	if err := dataset.SaveCSV(path, ds); err != nil {
		g.fail(log.OperationSave, err)
		return "", err
	}

	g.logger.Info("dataset saved",
		log.OperationKey, log.OperationSave,
		log.PathKey, path,
		log.SamplesKey, ds.Len(),
	)
	return path, nil
}

func validateFilename(filename any) (string, error) {
	name, ok := filename.(string)
	if !ok {
		return "", errors.NewPathError(filename, fmt.Sprintf("must be a string, got %T", filename))
	}
	if !strings.HasSuffix(name, ".csv") {
		return "", errors.NewPathError(name, "must end with .csv")
	}
	if i := strings.IndexAny(name, forbiddenChars); i >= 0 {
		return "", errors.NewPathError(name, fmt.Sprintf("contains forbidden character %q", name[i]))
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", errors.NewPathError(name, "contains control characters")
	}
	return name, nil
}

// fail records err to the error log before it is returned to the caller.
func (g *Generator) fail(op string, err error) {
	g.logger.Error("request rejected", err, log.OperationKey, op)
	if rerr := g.errLog.Record(err); rerr != nil {
		g.logger.Warn("error log unavailable", log.PathKey, g.errLog.Path(), "cause", rerr.Error())
	}
}
