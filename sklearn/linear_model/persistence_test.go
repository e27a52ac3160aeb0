package linear_model

import (
	"bytes"
	"encoding/gob"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

func TestLogisticRegression_GobRoundTrip(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		3, 3,
		3, 4,
		4, 3,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(300), WithLRRandomState(42))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lr); err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	var back LogisticRegression
	if err := gob.NewDecoder(&buf).Decode(&back); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	want, _ := lr.PredictProba(X)
	got, err := back.PredictProba(X)
	if err != nil {
		t.Fatalf("Decoded model failed to predict: %v", err)
	}
	if !mat.Equal(want, got) {
		t.Error("Decoded model predicts differently")
	}
	if back.GetParams()["max_iter"].(int) != 300 {
		t.Errorf("max_iter lost in round trip: %v", back.GetParams()["max_iter"])
	}
}

func TestLogisticRegression_SameSeedSameWeights(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{0, 0, 0, 1, 1, 0, 1, 1})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	a := NewLogisticRegression(WithLRRandomState(7))
	b := NewLogisticRegression(WithLRRandomState(7))
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	ca, cb := a.Coef(), b.Coef()
	for j := range ca[0] {
		if ca[0][j] != cb[0][j] {
			t.Errorf("Coefficient %d differs: %v vs %v", j, ca[0][j], cb[0][j])
		}
	}
}

func TestLogisticRegression_ConvergenceWarning(t *testing.T) {
	var warnings []error
	prev := errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(prev)

	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	lr := NewLogisticRegression(WithLRMaxIter(1), WithLRTol(1e-12))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	if len(warnings) != 1 {
		t.Fatalf("Expected one warning, got %d", len(warnings))
	}
	var cw *errors.ConvergenceWarning
	if !errors.As(warnings[0], &cw) {
		t.Errorf("Expected ConvergenceWarning, got %T", warnings[0])
	}
}

func TestLogisticRegression_FitErrors(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	tests := []struct {
		name string
		lr   *LogisticRegression
		y    mat.Matrix
	}{
		{"single class", NewLogisticRegression(), mat.NewDense(4, 1, []float64{1, 1, 1, 1})},
		{"row mismatch", NewLogisticRegression(), mat.NewDense(3, 1, nil)},
		{"l1 penalty", NewLogisticRegression(WithLRPenalty("l1")), mat.NewDense(4, 1, []float64{0, 0, 1, 1})},
		{"non-positive C", NewLogisticRegression(WithLRC(0)), mat.NewDense(4, 1, []float64{0, 0, 1, 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.lr.Fit(X, tt.y); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
