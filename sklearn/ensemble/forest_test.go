package ensemble

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// twoClusters returns n points per class around (0,0,0) and (4,4,4).
func twoClusters(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(2*n, 3, nil)
	y := mat.NewDense(2*n, 1, nil)
	for i := 0; i < 2*n; i++ {
		center := 0.0
		if i >= n {
			center = 4
			y.Set(i, 0, 1)
		}
		for j := 0; j < 3; j++ {
			X.Set(i, j, center+rng.NormFloat64()*0.5)
		}
	}
	return X, y
}

func TestRandomForestClassifier_FitPredict(t *testing.T) {
	X, y := twoClusters(30, 1)
	rf := NewRandomForestClassifier(WithNEstimators(25), WithForestRandomState(42))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if score := rf.Score(X, y); score < 0.95 {
		t.Errorf("Training accuracy too low: %v", score)
	}
	if got := len(rf.Estimators()); got != 25 {
		t.Errorf("Expected 25 trees, got %d", got)
	}
}

func TestRandomForestClassifier_ProbaRowsSumToOne(t *testing.T) {
	X, y := twoClusters(20, 2)
	rf := NewRandomForestClassifier(WithNEstimators(10), WithForestRandomState(3))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	p, err := rf.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict proba: %v", err)
	}
	rows, cols := p.Dims()
	if cols != 2 {
		t.Fatalf("Expected 2 columns, got %d", cols)
	}
	for i := 0; i < rows; i++ {
		if sum := p.At(i, 0) + p.At(i, 1); math.Abs(sum-1) > 1e-9 {
			t.Errorf("Row %d sums to %v", i, sum)
		}
	}
}

func TestRandomForestClassifier_DeterministicAcrossWorkers(t *testing.T) {
	X, y := twoClusters(20, 5)
	fit := func(jobs int) mat.Matrix {
		rf := NewRandomForestClassifier(
			WithNEstimators(12),
			WithForestRandomState(42),
			WithNJobs(jobs),
		)
		if err := rf.Fit(X, y); err != nil {
			t.Fatalf("Failed to fit: %v", err)
		}
		p, err := rf.PredictProba(X)
		if err != nil {
			t.Fatalf("Failed to predict: %v", err)
		}
		return p
	}
	if !mat.Equal(fit(1), fit(4)) {
		t.Error("Probabilities differ between 1 and 4 workers")
	}
}

func TestRandomForestClassifier_GobRoundTrip(t *testing.T) {
	X, y := twoClusters(15, 9)
	rf := NewRandomForestClassifier(WithNEstimators(8), WithForestRandomState(1))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rf); err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	var back RandomForestClassifier
	if err := gob.NewDecoder(&buf).Decode(&back); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	want, _ := rf.PredictProba(X)
	got, err := back.PredictProba(X)
	if err != nil {
		t.Fatalf("Decoded forest failed to predict: %v", err)
	}
	if !mat.Equal(want, got) {
		t.Error("Decoded forest predicts differently")
	}
}

func TestRandomForestClassifier_Errors(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"not fitted", func() error {
			_, err := NewRandomForestClassifier().Predict(mat.NewDense(1, 3, nil))
			return err
		}},
		{"row mismatch", func() error {
			return NewRandomForestClassifier().Fit(mat.NewDense(4, 2, nil), mat.NewDense(3, 1, nil))
		}},
		{"no trees", func() error {
			return NewRandomForestClassifier(WithNEstimators(0)).Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewDense(2, 1, []float64{0, 1}))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestDeriveSeedSpreadsStreams(t *testing.T) {
	seen := make(map[int64]bool)
	for i := uint64(0); i < 200; i++ {
		s := deriveSeed(42, i)
		if seen[s] {
			t.Fatalf("Seed collision at stream %d", i)
		}
		seen[s] = true
	}
}
