package generator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/synthpipe/dataset"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/pkg/log"
)

type fixture struct {
	gen     *Generator
	logPath string
	outDir  string
}

func newFixture(t *testing.T, seed int64) fixture {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "errors.txt")
	outDir := filepath.Join(dir, "raw")
	logger, _ := log.NewTestLogger(log.LevelDebug)
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	gen := New(seed,
		WithOutputDir(outDir),
		WithErrorLog(log.NewErrorLog(logPath).WithClock(clock)),
		WithLogger(logger),
	)
	return fixture{gen: gen, logPath: logPath, outDir: outDir}
}

func (f fixture) logLines(t *testing.T) []string {
	t.Helper()
	raw, err := os.ReadFile(f.logPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestGenerateShapeAndRanges(t *testing.T) {
	f := newFixture(t, 123)
	ds, err := f.gen.Generate(300)
	require.NoError(t, err)
	assert.Equal(t, 300, ds.Len())
	assert.Equal(t, []string{
		"age", "income", "purchase_amount", "monthly_visits", "satisfaction_score",
		"gender", "product_type", "purchased",
	}, ds.Names())

	ranges := map[string][2]float64{
		ColAge:               {18, 79},
		ColIncome:            {20000, 99999},
		ColPurchaseAmount:    {10, 499},
		ColMonthlyVisits:     {1, 19},
		ColSatisfactionScore: {1, 10},
		ColPurchased:         {0, 1},
	}
	for name, r := range ranges {
		col, ok := ds.Column(name)
		require.True(t, ok, name)
		for _, v := range col.Num {
			require.GreaterOrEqual(t, v, r[0], name)
			require.LessOrEqual(t, v, r[1], name)
			require.Equal(t, float64(int(v)), v, "%s must hold integers", name)
		}
	}
	gender, _ := ds.Column(ColGender)
	for _, g := range gender.Cat {
		require.Contains(t, genders, g)
	}
	product, _ := ds.Column(ColProductType)
	for _, p := range product.Cat {
		require.Contains(t, productTypes, p)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := newFixture(t, 42).gen.Generate(50)
	require.NoError(t, err)
	b, err := newFixture(t, 42).gen.Generate(50)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	// The same instance reseeds on every call.
	g := newFixture(t, 42).gen
	first, _ := g.Generate(50)
	second, _ := g.Generate(50)
	assert.True(t, first.Equal(second))

	other, err := newFixture(t, 7).gen.Generate(50)
	require.NoError(t, err)
	assert.False(t, a.Equal(other))
}

func TestGenerateRejectsBadCounts(t *testing.T) {
	tests := []struct {
		name  string
		count any
		typ   string
	}{
		{"string", "500", "string"},
		{"negative", -100, "int"},
		{"zero", 0, "int"},
		{"float", 2.5, "float64"},
		{"int64", int64(4), "int64"},
		{"nil", nil, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1)
			ds, err := f.gen.Generate(tt.count)
			assert.Nil(t, ds)

			var genErr *errors.GenerationError
			require.True(t, errors.As(err, &genErr), "got %v", err)
			assert.Equal(t, tt.typ, genErr.Type)

			lines := f.logLines(t)
			require.Len(t, lines, 1)
			assert.True(t, strings.HasPrefix(lines[0], "[2024-05-01T12:00:00] ERROR: "), lines[0])
			assert.Contains(t, lines[0], "sample_count must be a positive int,")
		})
	}
}

func TestSaveWritesCSV(t *testing.T) {
	f := newFixture(t, 3)
	ds, err := f.gen.Generate(20)
	require.NoError(t, err)

	path, err := f.gen.Save(ds, "customers.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.outDir, "customers.csv"), path)

	back, err := dataset.LoadCSV(path)
	require.NoError(t, err)
	assert.True(t, ds.Equal(back))
	assert.Empty(t, f.logLines(t))
}

func TestSaveRejectsBadFilenames(t *testing.T) {
	tests := []struct {
		name     string
		filename any
	}{
		{"wrong extension", "data.txt"},
		{"angle brackets", "bad<file>name.csv"},
		{"colon", "a:b.csv"},
		{"question mark", "what?.csv"},
		{"control character", "tab\there.csv"},
		{"not a string", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 3)
			ds, err := f.gen.Generate(5)
			require.NoError(t, err)

			path, err := f.gen.Save(ds, tt.filename)
			assert.Empty(t, path)
			var pathErr *errors.PathError
			require.True(t, errors.As(err, &pathErr), "got %v", err)

			assert.Len(t, f.logLines(t), 1)
			_, statErr := os.Stat(f.outDir)
			assert.True(t, os.IsNotExist(statErr), "nothing may be written")
		})
	}
}
