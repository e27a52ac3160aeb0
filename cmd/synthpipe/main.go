// Command synthpipe generates a synthetic customer dataset, prepares it,
// optionally augments it, trains the registered classifiers and prints the
// model with the best F1 score.
//
// Usage:
//
//	synthpipe [-config pipeline.yaml] [-samples 1000] [-seed 42] [-test-fraction 0.2]
//	          [-target purchased] [-augment noise|oversample|synthetic|all] [-plots]
//	          [-log-level info]
//
// Flags override values from the config file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/synthpipe/augment"
	"github.com/YuminosukeSato/synthpipe/config"
	"github.com/YuminosukeSato/synthpipe/dataset"
	"github.com/YuminosukeSato/synthpipe/generator"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/pkg/log"
	"github.com/YuminosukeSato/synthpipe/preprocessing"
	"github.com/YuminosukeSato/synthpipe/stats"
	"github.com/YuminosukeSato/synthpipe/trainer"
	"github.com/YuminosukeSato/synthpipe/visual"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "synthpipe: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	log.SetupLoggerTo(stderr, cfg.LogLevel)
	logger := log.GetLogger()
	prevWarn := errors.SetWarningHandler(func(w error) {
		logger.Warn(w.Error(), log.ErrorTypeKey, fmt.Sprintf("%T", w))
	})
	defer errors.SetWarningHandler(prevWarn)
	errLog := log.NewErrorLog(cfg.ErrorLogPath())

	gen := generator.New(cfg.Seed,
		generator.WithOutputDir(cfg.RawDir()),
		generator.WithErrorLog(errLog),
		generator.WithLogger(logger),
	)
	ds, err := gen.Generate(cfg.SampleCount)
	if err != nil {
		return err
	}
	if _, err := gen.Save(ds, config.RawFile); err != nil {
		return err
	}
	summarize(logger, ds, cfg.Numerical)

	if cfg.Plots {
		files, err := visual.Overview(ds, cfg.Numerical, cfg.PlotDir())
		if err != nil {
			return err
		}
		for _, f := range files {
			logger.Info("plot written", log.PathKey, f)
		}
	}

	scaler, err := preprocessing.NewScaler(cfg.Scaler)
	if err != nil {
		return err
	}
	pre := preprocessing.NewPreprocessor(preprocessing.WithLogger(logger))
	fm, y, err := pre.Prepare(ds, cfg.TargetColumn, cfg.Categorical)
	if err != nil {
		return err
	}

	processed, err := dataset.FromFeatures(fm, y, cfg.TargetColumn)
	if err != nil {
		return err
	}
	// Augmenting after cleaning keeps oversampled copies from being deduplicated.
	if cfg.Augment.Enabled() {
		aug := augment.New(cfg.Seed, append(cfg.AugmentOptions(), augment.WithLogger(logger))...)
		processed, err = aug.Augment(processed, cfg.TargetColumn, cfg.Numerical, cfg.Augment.Method)
		if err != nil {
			return err
		}
		if fm, y, err = processed.SplitTarget(cfg.TargetColumn); err != nil {
			return err
		}
	}
	processedPath := filepath.Join(cfg.ProcessedDir(), config.ProcessedFile)
	if err := dataset.SaveCSV(processedPath, processed); err != nil {
		return err
	}
	logger.Info("processed dataset saved", log.PathKey, processedPath, log.SamplesKey, processed.Len())

	opts := []trainer.Option{
		trainer.WithLogger(logger),
		trainer.WithErrorLog(errLog),
	}
	// The trainer fits the scaler on training rows only.
	if cfg.ScaleFeatures {
		opts = append(opts, trainer.WithScaler(scaler))
	}
	tr := trainer.New(cfg.Trainer(), opts...)
	best, err := tr.Run(fm, y)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "run %s\n", best.RunID)
	for _, r := range tr.Records() {
		fmt.Fprintf(stdout, "%-20s accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f roc_auc=%.4f\n",
			r.Name, r.Accuracy, r.Precision, r.Recall, r.F1, r.ROCAUC)
	}
	fmt.Fprintf(stdout, "best model: %s (f1=%.4f) saved to %s\n", best.Name, best.F1, best.ArtifactPath)
	return nil
}

// parseFlags loads the config file, if any, and applies the flags that were
// set explicitly on top of it.
func parseFlags(args []string, stderr io.Writer) (config.Config, error) {
	fs := flag.NewFlagSet("synthpipe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	def := config.Default()
	var (
		configPath   = fs.String("config", "", "Path to a YAML configuration file")
		samples      = fs.Int("samples", def.SampleCount, "Number of rows to generate")
		seed         = fs.Int64("seed", def.Seed, "Random seed for generation, augmentation and training")
		testFraction = fs.Float64("test-fraction", def.TestFraction, "Fraction of rows held out for evaluation (0-1)")
		target       = fs.String("target", def.TargetColumn, "Name of the binary target column")
		method       = fs.String("augment", "", "Augmentation method (noise|oversample|synthetic|all); empty skips it")
		plots        = fs.Bool("plots", def.Plots, "Write histogram and scatter PNGs of the raw data")
		logLevel     = fs.String("log-level", def.LogLevel, "Log level (debug|info|warn|error)")
	)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "samples":
			cfg.SampleCount = *samples
		case "seed":
			cfg.Seed = *seed
		case "test-fraction":
			cfg.TestFraction = *testFraction
		case "target":
			cfg.TargetColumn = *target
		case "augment":
			cfg.Augment.Method = *method
		case "plots":
			cfg.Plots = *plots
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// summarize logs count, mean, median and spread of each numerical column.
func summarize(logger log.Logger, ds *dataset.Dataset, numerical []string) {
	for _, name := range numerical {
		col, ok := ds.Column(name)
		if !ok || col.Kind != dataset.Numerical {
			continue
		}
		s, err := stats.Summarize(col.Num)
		if err != nil {
			logger.Warn("column summary unavailable", log.ColumnKey, name, "cause", err.Error())
			continue
		}
		logger.Info("column summary",
			log.ColumnKey, name,
			"count", s.Count,
			"mean", s.Mean,
			"median", s.Median,
			"std", s.Std,
			"min", s.Min,
			"max", s.Max,
		)
	}
}
