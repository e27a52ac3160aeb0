// Package trainer splits a prepared dataset, fits every model of a Registry,
// evaluates them on the held-out rows, writes the models and a metrics report,
// and picks the model with the best F1 score.
package trainer

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/core/model"
	"github.com/YuminosukeSato/synthpipe/dataset"
	"github.com/YuminosukeSato/synthpipe/metrics"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/pkg/log"
	"github.com/YuminosukeSato/synthpipe/preprocessing"
)

// Config holds the plain values a run depends on.
type Config struct {
	TestFraction float64
	Seed         int64
	TargetColumn string
	ModelDir     string
	ResultsDir   string
}

// DefaultConfig returns the defaults: 20% test rows, seed 42, target
// "purchased", models/ and results/.
func DefaultConfig() Config {
	return Config{
		TestFraction: 0.2,
		Seed:         42,
		TargetColumn: "purchased",
		ModelDir:     "models",
		ResultsDir:   "results",
	}
}

// Validate checks the values before any stage runs.
func (c Config) Validate() error {
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return errors.NewValidationError("test_fraction", "must be in (0, 1)", c.TestFraction)
	}
	if c.TargetColumn == "" {
		return errors.NewValidationError("target_column", "must not be empty", c.TargetColumn)
	}
	if c.ModelDir == "" || c.ResultsDir == "" {
		return errors.NewValidationError("output_dir", "model and results directories are required", nil)
	}
	return nil
}

// fitted is a model that went through Fitting together with its evaluation.
type fitted struct {
	name   string
	model  model.Model
	record MetricsRecord
}

// Trainer runs one training pass. A Trainer is single use: once Run or
// RunFromFile returns, it stays in Done or Failed. It is not safe for
// concurrent use.
type Trainer struct {
	cfg      Config
	registry *Registry
	scaler   preprocessing.Scaler
	logger   log.Logger
	errLog   *log.ErrorLog
	now      func() time.Time
	runID    string

	state    State
	failedAt State

	features []string
	X        *mat.Dense
	y        *mat.VecDense
	trainX   *mat.Dense
	trainY   *mat.VecDense
	testX    *mat.Dense
	testY    *mat.VecDense
	models   []fitted
	records  []MetricsRecord
	paths    map[string]string
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithRegistry replaces DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(t *Trainer) {
		t.registry = r
	}
}

// WithScaler scales features after the split. s is fitted on the training
// rows only and stored with every artifact.
func WithScaler(s preprocessing.Scaler) Option {
	return func(t *Trainer) {
		t.scaler = s
	}
}

// WithLogger sets the structured logger.
func WithLogger(l log.Logger) Option {
	return func(t *Trainer) {
		t.logger = l
	}
}

// WithErrorLog records run failures to l.
func WithErrorLog(l *log.ErrorLog) Option {
	return func(t *Trainer) {
		t.errLog = l
	}
}

// WithClock replaces the time source used for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Trainer) {
		t.now = now
	}
}

// New returns a Trainer in state Initialized.
func New(cfg Config, opts ...Option) *Trainer {
	t := &Trainer{
		cfg:      cfg,
		registry: DefaultRegistry(),
		logger:   log.GetLogger(),
		now:      time.Now,
		runID:    uuid.NewString(),
		state:    Initialized,
		failedAt: Initialized,
		paths:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(
		log.ComponentKey, "trainer",
		log.EstimatorIDKey, t.runID,
	)
	return t
}

// State returns the current stage.
func (t *Trainer) State() State {
	return t.state
}

// FailedAt returns the stage whose work failed. It is only meaningful when
// State is Failed.
func (t *Trainer) FailedAt() State {
	return t.failedAt
}

// RunID identifies this run in logs and artifacts.
func (t *Trainer) RunID() string {
	return t.runID
}

// Records returns the metrics gathered so far, in registry order.
func (t *Trainer) Records() []MetricsRecord {
	return append([]MetricsRecord(nil), t.records...)
}

// Run trains every registered model on fm and y. names of fm become the
// feature schema stored in each artifact.
func (t *Trainer) Run(fm *dataset.FeatureMatrix, y *mat.VecDense) (*BestModelRecord, error) {
	err := t.step(DataLoaded, func() error {
		return t.load(fm, y)
	})
	if err != nil {
		return nil, err
	}
	return t.train()
}

// RunFromFile loads a prepared CSV, splits off Config.TargetColumn and trains
// on it. An unreadable file or a missing target fails the run at DataLoaded.
func (t *Trainer) RunFromFile(path string) (*BestModelRecord, error) {
	err := t.step(DataLoaded, func() error {
		ds, err := dataset.LoadCSV(path)
		if err != nil {
			return errors.NewDataError("load", "cannot read "+path, err)
		}
		fm, y, err := ds.SplitTarget(t.cfg.TargetColumn)
		if err != nil {
			return err
		}
		return t.load(fm, y)
	})
	if err != nil {
		return nil, err
	}
	return t.train()
}

func (t *Trainer) load(fm *dataset.FeatureMatrix, y *mat.VecDense) error {
	if err := t.cfg.Validate(); err != nil {
		return err
	}
	if fm == nil || fm.X == nil || y == nil {
		return errors.NewDataError("load", "feature matrix and target are required", errors.ErrEmptyData)
	}
	rows, cols := fm.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewDataError("load", "feature matrix is empty", errors.ErrEmptyData)
	}
	if y.Len() != rows {
		return errors.NewDimensionError("load", rows, y.Len(), 0)
	}
	if t.registry == nil || t.registry.Len() == 0 {
		return errors.NewValidationError("registry", "no models registered", nil)
	}
	t.features = append([]string(nil), fm.Names...)
	t.X = fm.X
	t.y = y
	t.logger.Info("training data loaded",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.TestFractionKey, t.cfg.TestFraction,
		log.RandomSeedKey, t.cfg.Seed,
	)
	return nil
}

// train runs the stages after DataLoaded.
func (t *Trainer) train() (*BestModelRecord, error) {
	if err := t.step(Split, t.split); err != nil {
		return nil, err
	}
	if err := t.step(ModelsBuilt, t.build); err != nil {
		return nil, err
	}
	if err := t.step(Fitting, t.fitAll); err != nil {
		return nil, err
	}
	if err := t.step(Evaluated, t.checkEvaluated); err != nil {
		return nil, err
	}
	if err := t.step(Persisted, t.persist); err != nil {
		return nil, err
	}

	var best *BestModelRecord
	err := t.step(Done, func() error {
		rec, err := selectBest(t.records)
		if err != nil {
			return err
		}
		best = &BestModelRecord{
			MetricsRecord: rec,
			RunID:         t.runID,
			ArtifactPath:  t.paths[rec.Name],
		}
		t.logger.Info("best model selected",
			log.ModelNameKey, rec.Name,
			log.F1Key, rec.F1,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

func (t *Trainer) split() error {
	p, err := stratifiedSplit(t.y, t.cfg.TestFraction, t.cfg.Seed)
	if err != nil {
		return err
	}
	t.trainX, t.trainY = takeRows(t.X, t.y, p.train)
	t.testX, t.testY = takeRows(t.X, t.y, p.test)
	if t.scaler != nil {
		if err := t.scale(); err != nil {
			return err
		}
	}
	t.logger.Info("data split",
		"train_samples", len(p.train),
		"test_samples", len(p.test),
	)
	return nil
}

func (t *Trainer) build() error {
	for _, e := range t.registry.Entries() {
		m := e.Build(t.cfg.Seed)
		if m == nil {
			return errors.NewModelError("build", "builder returned nil for "+e.Name, nil)
		}
		t.models = append(t.models, fitted{name: e.Name, model: m})
	}
	return nil
}

func (t *Trainer) fitAll() error {
	for i := range t.models {
		rec, err := t.fitAndEvaluate(t.models[i].name, t.models[i].model)
		if err != nil {
			return err
		}
		t.models[i].record = rec
		t.records = append(t.records, rec)
	}
	return nil
}

// fitAndEvaluate fits m on the training rows and scores it on the test rows.
// Models without class probabilities are scored on their predicted labels and
// flagged as degraded.
func (t *Trainer) fitAndEvaluate(name string, m model.Model) (rec MetricsRecord, err error) {
	defer errors.Recover(&err, "trainer.fitAndEvaluate."+name)

	if err := m.Fit(t.trainX, t.trainY); err != nil {
		return MetricsRecord{}, errors.Wrapf(err, "failed to fit %s", name)
	}
	pred, err := m.Predict(t.testX)
	if err != nil {
		return MetricsRecord{}, errors.Wrapf(err, "failed to predict with %s", name)
	}
	yPred := metrics.ColumnVector(pred, 0)

	scores, degraded, err := t.scores(m, yPred)
	if err != nil {
		return MetricsRecord{}, errors.Wrapf(err, "failed to score %s", name)
	}
	if degraded {
		errors.Warn(&errors.DegradedMetricWarning{Model: name, Metric: "roc_auc"})
	}

	report, err := metrics.EvaluateBinary(t.testY, yPred, scores)
	if err != nil {
		return MetricsRecord{}, errors.Wrapf(err, "failed to evaluate %s", name)
	}
	rec = MetricsRecord{Name: name, BinaryReport: report, Degraded: degraded}
	t.logger.Info("model evaluated",
		log.ModelNameKey, name,
		log.AccuracyKey, report.Accuracy,
		log.PrecisionKey, report.Precision,
		log.RecallKey, report.Recall,
		log.F1Key, report.F1,
		log.ROCAUCKey, report.ROCAUC,
		log.DegradedKey, degraded,
	)
	return rec, nil
}

// probabilisticReporter is implemented by wrappers whose PredictProba only
// works for some inner models.
type probabilisticReporter interface {
	Probabilistic() bool
}

// scores returns the positive-class probability of each test row, or the
// predicted labels when m has no probabilities.
func (t *Trainer) scores(m model.Model, yPred *mat.VecDense) (*mat.VecDense, bool, error) {
	pc, ok := m.(model.ProbabilisticClassifier)
	if r, wraps := m.(probabilisticReporter); wraps && !r.Probabilistic() {
		ok = false
	}
	if !ok {
		return yPred, true, nil
	}
	proba, err := pc.PredictProba(t.testX)
	if err != nil {
		return nil, false, err
	}
	_, cols := proba.Dims()
	if cols < 2 {
		return nil, false, errors.NewDimensionError("scores", 2, cols, 1)
	}
	return metrics.ColumnVector(proba, 1), false, nil
}

func (t *Trainer) checkEvaluated() error {
	if len(t.records) != len(t.models) {
		return errors.Newf("trainer: %d of %d models evaluated", len(t.records), len(t.models))
	}
	return nil
}

// scale fits the scaler on the training rows and applies it to both partitions.
func (t *Trainer) scale() error {
	train, err := t.scaler.FitTransform(t.trainX)
	if err != nil {
		return errors.Wrap(err, "scale train")
	}
	test, err := t.scaler.Transform(t.testX)
	if err != nil {
		return errors.Wrap(err, "scale test")
	}
	t.trainX = mat.DenseCopyOf(train)
	t.testX = mat.DenseCopyOf(test)
	t.logger.Info("features scaled", log.FeaturesKey, len(t.features))
	return nil
}

// persist writes every model, then the metrics report. A failed write leaves
// the artifacts written before it in place.
func (t *Trainer) persist() error {
	created := t.now()
	for _, f := range t.models {
		path, err := SaveArtifact(t.cfg.ModelDir, &Artifact{
			Name:      f.name,
			RunID:     t.runID,
			Features:  t.features,
			CreatedAt: created,
			Model:     f.model,
			Scaler:    t.scaler,
		})
		if err != nil {
			return err
		}
		t.paths[f.name] = path
		t.logger.Info("model persisted",
			log.OperationKey, log.OperationPersist,
			log.ModelNameKey, f.name,
			log.PathKey, path,
		)
	}

	path, err := WriteMetrics(t.cfg.ResultsDir, t.records)
	if err != nil {
		return err
	}
	t.logger.Info("metrics written", log.PathKey, path)
	return nil
}

// selectBest returns the record with the highest F1. The first record wins ties.
func selectBest(records []MetricsRecord) (MetricsRecord, error) {
	if len(records) == 0 {
		return MetricsRecord{}, errors.NewValueError("selectBest", "no metrics records")
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.F1 > best.F1 {
			best = r
		}
	}
	return best, nil
}
