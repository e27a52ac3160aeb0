// Package config loads the settings of one pipeline run from YAML.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/synthpipe/augment"
	"github.com/YuminosukeSato/synthpipe/generator"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/pkg/log"
	"github.com/YuminosukeSato/synthpipe/preprocessing"
	"github.com/YuminosukeSato/synthpipe/trainer"
)

// File names written under DataDir.
const (
	RawFile       = "synthetic_data.csv"
	ProcessedFile = "processed_data.csv"
	ErrorLogFile  = "errors.txt"
)

// Augment configures the optional augmentation step. An empty Method skips it.
type Augment struct {
	Method       string  `yaml:"method"`
	NoiseFactor  float64 `yaml:"noise_factor"`
	Ratio        float64 `yaml:"ratio"`
	Combinations int     `yaml:"combinations"`
	Strict       bool    `yaml:"strict"`
}

// Enabled reports whether augmentation runs.
func (a Augment) Enabled() bool {
	return a.Method != ""
}

// Config holds every setting of a run.
type Config struct {
	SampleCount  int      `yaml:"sample_count"`
	Seed         int64    `yaml:"seed"`
	TestFraction float64  `yaml:"test_fraction"`
	TargetColumn string   `yaml:"target_column"`
	Categorical  []string `yaml:"categorical_columns"`
	Numerical    []string `yaml:"numerical_columns"`

	// Scaler is fitted on the training partition and applied to both
	// partitions when ScaleFeatures is set. Models that need scaling carry
	// their own.
	Scaler        string `yaml:"scaler"`
	ScaleFeatures bool   `yaml:"scale_features"`

	Augment Augment `yaml:"augment"`

	DataDir    string `yaml:"data_dir"`
	ModelDir   string `yaml:"model_dir"`
	ResultsDir string `yaml:"results_dir"`
	LogDir     string `yaml:"log_dir"`
	LogLevel   string `yaml:"log_level"`
	Plots      bool   `yaml:"plots"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	tc := trainer.DefaultConfig()
	return Config{
		SampleCount:  1000,
		Seed:         tc.Seed,
		TestFraction: tc.TestFraction,
		TargetColumn: tc.TargetColumn,
		Categorical:  generator.CategoricalColumns(),
		Numerical:    generator.NumericalColumns(),
		Scaler:       "standard",
		Augment: Augment{
			NoiseFactor:  augment.DefaultNoiseFactor,
			Ratio:        augment.DefaultRatio,
			Combinations: augment.DefaultCombinations,
		},
		DataDir:    "data",
		ModelDir:   tc.ModelDir,
		ResultsDir: tc.ResultsDir,
		LogDir:     "logs",
		LogLevel:   "info",
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes YAML from r over the defaults and validates the result.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every value before any stage runs.
func (c Config) Validate() error {
	if c.SampleCount <= 0 {
		return errors.NewValidationError("sample_count", "must be greater than zero", c.SampleCount)
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return errors.NewValidationError("test_fraction", "must be in (0, 1)", c.TestFraction)
	}
	if c.TargetColumn == "" {
		return errors.NewValidationError("target_column", "must not be empty", c.TargetColumn)
	}
	if _, err := preprocessing.NewScaler(c.Scaler); err != nil {
		return err
	}
	if c.Augment.Enabled() {
		if _, ok := augment.ParseMethod(c.Augment.Method); !ok && c.Augment.Strict {
			return errors.NewValidationError("augment.method", "unknown method", c.Augment.Method)
		}
		if c.Augment.NoiseFactor < 0 {
			return errors.NewValidationError("augment.noise_factor", "must not be negative", c.Augment.NoiseFactor)
		}
		if c.Augment.Ratio <= 0 {
			return errors.NewValidationError("augment.ratio", "must be positive", c.Augment.Ratio)
		}
		if c.Augment.Combinations < 0 {
			return errors.NewValidationError("augment.combinations", "must not be negative", c.Augment.Combinations)
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("log_level", err.Error(), c.LogLevel)
	}
	for name, dir := range map[string]string{
		"data_dir":    c.DataDir,
		"model_dir":   c.ModelDir,
		"results_dir": c.ResultsDir,
		"log_dir":     c.LogDir,
	} {
		if dir == "" {
			return errors.NewValidationError(name, "must not be empty", dir)
		}
	}
	return nil
}

// Trainer returns the trainer settings.
func (c Config) Trainer() trainer.Config {
	return trainer.Config{
		TestFraction: c.TestFraction,
		Seed:         c.Seed,
		TargetColumn: c.TargetColumn,
		ModelDir:     c.ModelDir,
		ResultsDir:   c.ResultsDir,
	}
}

// AugmentOptions returns the augmenter options.
func (c Config) AugmentOptions() []augment.Option {
	return []augment.Option{
		augment.WithNoiseFactor(c.Augment.NoiseFactor),
		augment.WithRatio(c.Augment.Ratio),
		augment.WithCombinations(c.Augment.Combinations),
		augment.WithStrict(c.Augment.Strict),
	}
}

// RawDir is where generated datasets are written.
func (c Config) RawDir() string {
	return filepath.Join(c.DataDir, "raw")
}

// ProcessedDir is where prepared datasets are written.
func (c Config) ProcessedDir() string {
	return filepath.Join(c.DataDir, "processed")
}

// PlotDir is where charts are written.
func (c Config) PlotDir() string {
	return filepath.Join(c.ResultsDir, "plots")
}

// ErrorLogPath is the append-only error log.
func (c Config) ErrorLogPath() string {
	return filepath.Join(c.LogDir, ErrorLogFile)
}
