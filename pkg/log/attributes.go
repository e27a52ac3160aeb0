package log

// Run and component context.
const (
	// ModelNameKey is the registry name of a classifier, e.g. "random_forest".
	ModelNameKey = "model.name"

	// EstimatorIDKey carries the run ID shared by every record of one pipeline run.
	EstimatorIDKey = "estimator.id"

	OperationKey = "ml.operation"
	ComponentKey = "ml.component"

	// StageKey names the trainer state the record was emitted from.
	StageKey = "pipeline.stage"
)

// Data shape.
const (
	SamplesKey    = "data.samples"
	FeaturesKey   = "data.features"
	ColumnKey     = "data.column"
	DuplicatesKey = "data.duplicates_removed"
	ImputedKey    = "data.imputed"
	PathKey       = "io.path"
)

// Evaluation metrics.
const (
	AccuracyKey  = "metrics.accuracy"
	PrecisionKey = "metrics.precision"
	RecallKey    = "metrics.recall"
	F1Key        = "metrics.f1"
	ROCAUCKey    = "metrics.roc_auc"

	// DegradedKey marks metrics whose ROC AUC was computed from predicted labels.
	DegradedKey = "metrics.degraded"
)

// Configuration.
const (
	RandomSeedKey   = "config.random_seed"
	MethodKey       = "augment.method"
	TestFractionKey = "config.test_fraction"
)

// ErrorTypeKey holds the concrete Go type of a logged error.
const ErrorTypeKey = "error.type"

// Standard operation values.
const (
	OperationGenerate = "generate"
	OperationSave     = "save"
	OperationClean    = "clean"
	OperationEncode   = "encode"
	OperationScale    = "scale"
	OperationAugment  = "augment"
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationPersist  = "persist"
)
