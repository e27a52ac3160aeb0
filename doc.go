// Package synthpipe generates a synthetic customer dataset and trains binary
// classifiers on it.
//
// A run moves through four stages:
//
//	generator      draws a seeded customer table and writes it as CSV
//	preprocessing  fills missing values, removes duplicates and label-encodes categories
//	augment        optionally adds noisy, oversampled or interpolated rows
//	trainer        splits, fits every registered model, scores it and keeps the best
//
// # Quick Start
//
//	gen := generator.New(42, generator.WithOutputDir("data/raw"))
//	ds, err := gen.Generate(1000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fm, y, err := preprocessing.NewPreprocessor().Prepare(ds, "purchased", generator.CategoricalColumns())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	best, err := trainer.New(trainer.DefaultConfig()).Run(fm, y)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("best model:", best.Name, best.F1)
//
// The synthpipe command in cmd/synthpipe wires the same stages together from a
// YAML config file and flags.
//
// # Packages
//
//   - dataset: column-oriented tables, CSV input and output, feature matrices
//   - generator: seeded synthetic data
//   - preprocessing: cleaning, label encoding and scalers
//   - augment: noise, oversampling and synthetic combinations
//   - trainer: model registry, stratified split, evaluation and artifacts
//   - metrics: accuracy, precision, recall, F1 and ROC AUC
//   - stats: column summaries
//   - visual: histogram and scatter charts
//   - config: YAML run settings
//   - sklearn/...: logistic regression, decision tree, random forest and pipelines
//   - core/model: model interfaces, fitted state and gob persistence
//   - pkg/errors, pkg/log: error types and structured logging
package synthpipe
