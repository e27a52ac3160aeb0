package model

import (
	"os"
	"path/filepath"
	"testing"
)

type savedWeights struct {
	Name    string
	Weights []float64
	State   *StateManager
}

func TestSaveLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.gob")
	state := NewStateManager()
	state.SetFitted()
	state.SetDimensions(3, 10)

	in := savedWeights{Name: "lr", Weights: []float64{0.5, -1.25, 3}, State: state}
	if err := SaveModel(&in, path); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}

	var out savedWeights
	if err := LoadModel(&out, path); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if out.Name != in.Name || len(out.Weights) != 3 || out.Weights[1] != -1.25 {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if !out.State.IsFitted() {
		t.Error("fitted flag lost in round trip")
	}
	if nf, ns := out.State.GetDimensions(); nf != 3 || ns != 10 {
		t.Errorf("dimensions = (%d, %d), want (3, 10)", nf, ns)
	}
}

func TestSaveModelFailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")
	if err := SaveModel(&savedWeights{Name: "first"}, path); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	before, _ := os.ReadFile(path)

	bad := struct{ Fn func() }{Fn: func() {}}
	if err := SaveModel(&bad, path); err == nil {
		t.Fatal("expected encode error for func field")
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("failed save modified the existing artifact")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestRequireFitted(t *testing.T) {
	s := NewStateManager()
	if err := s.RequireFitted("StandardScaler", "Transform"); err == nil {
		t.Fatal("expected NotFittedError")
	}
	s.SetFitted()
	s.SetDimensions(4, 2)
	if err := s.RequireFitted("StandardScaler", "Transform"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RequireFeatures("Transform", 5); err == nil {
		t.Error("expected DimensionError for 5 features")
	}
	s.Reset()
	if s.IsFitted() {
		t.Error("Reset should clear fitted flag")
	}
}
