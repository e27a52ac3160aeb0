package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Augment.Enabled())
	assert.Equal(t, filepath.Join("data", "raw"), cfg.RawDir())
	assert.Equal(t, filepath.Join("logs", "errors.txt"), cfg.ErrorLogPath())

	tc := cfg.Trainer()
	assert.Equal(t, 0.2, tc.TestFraction)
	assert.Equal(t, int64(42), tc.Seed)
	assert.Equal(t, "purchased", tc.TargetColumn)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sample_count: 300
seed: 123
augment:
  method: oversample
  ratio: 0.8
plots: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.SampleCount)
	assert.Equal(t, int64(123), cfg.Seed)
	assert.True(t, cfg.Plots)
	assert.True(t, cfg.Augment.Enabled())
	assert.Equal(t, 0.8, cfg.Augment.Ratio)
	// untouched keys keep their defaults
	assert.Equal(t, 0.1, cfg.Augment.NoiseFactor)
	assert.Equal(t, "purchased", cfg.TargetColumn)
	assert.Len(t, cfg.AugmentOptions(), 4)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("sample_size: 10\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero samples", func(c *Config) { c.SampleCount = 0 }},
		{"test fraction at one", func(c *Config) { c.TestFraction = 1 }},
		{"test fraction zero", func(c *Config) { c.TestFraction = 0 }},
		{"empty target", func(c *Config) { c.TargetColumn = "" }},
		{"unknown scaler", func(c *Config) { c.Scaler = "robust" }},
		{"strict unknown method", func(c *Config) {
			c.Augment.Method = "smote"
			c.Augment.Strict = true
		}},
		{"negative ratio", func(c *Config) {
			c.Augment.Method = "oversample"
			c.Augment.Ratio = -1
		}},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"empty model dir", func(c *Config) { c.ModelDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestValidateAllowsLenientUnknownMethod(t *testing.T) {
	cfg := Default()
	cfg.Augment.Method = "smote"
	assert.NoError(t, cfg.Validate())
}
