package trainer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/core/model"
	"github.com/YuminosukeSato/synthpipe/metrics"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
	"github.com/YuminosukeSato/synthpipe/preprocessing"
)

// MetricsFile is the name of the metrics report inside Config.ResultsDir.
const MetricsFile = "metrics.csv"

// metricsHeader is the first row of the metrics report.
var metricsHeader = []string{"model", "accuracy", "precision", "recall", "f1", "roc_auc"}

// MetricsRecord is the evaluation of one model on the test partition.
// Degraded is set when ROCAUC was computed from predicted labels because the
// model does not expose class probabilities.
type MetricsRecord struct {
	Name string
	metrics.BinaryReport
	Degraded bool
}

// BestModelRecord is the record selected by F1, plus where its model was written.
type BestModelRecord struct {
	MetricsRecord
	RunID        string
	ArtifactPath string
}

// Artifact is the on-disk form of one fitted model. Model holds the concrete
// classifier, so the packages defining it must be linked into any program
// that loads the artifact. Scaler is set when the run scaled its features
// after the split; Predict applies it before the model.
type Artifact struct {
	Name      string
	RunID     string
	Features  []string
	CreatedAt time.Time
	Model     model.Model
	Scaler    preprocessing.Scaler
}

// Predict scales X when a Scaler is stored, then forwards to the model.
func (a *Artifact) Predict(X mat.Matrix) (mat.Matrix, error) {
	if a.Model == nil {
		return nil, errors.NewModelError("Artifact.Predict", "empty artifact", errors.ErrEmptyData)
	}
	if a.Scaler != nil {
		scaled, err := a.Scaler.Transform(X)
		if err != nil {
			return nil, errors.Wrap(err, "scale input")
		}
		X = scaled
	}
	return a.Model.Predict(X)
}

// ArtifactPath returns <dir>/<name>.gob.
func ArtifactPath(dir, name string) string {
	return filepath.Join(dir, name+".gob")
}

// SaveArtifact writes a to <dir>/<a.Name>.gob. The file is replaced
// atomically, so an earlier artifact survives a failed write.
func SaveArtifact(dir string, a *Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create model directory %s", dir)
	}
	path := ArtifactPath(dir, a.Name)
	if err := model.SaveModel(a, path); err != nil {
		return "", errors.Wrapf(err, "failed to persist model %s", a.Name)
	}
	return path, nil
}

// LoadArtifact reads an artifact written by SaveArtifact.
func LoadArtifact(path string) (*Artifact, error) {
	var a Artifact
	if err := model.LoadModel(&a, path); err != nil {
		return nil, errors.Wrapf(err, "failed to load artifact %s", path)
	}
	return &a, nil
}

// WriteMetrics writes records to <dir>/metrics.csv, one row per model in the
// given order, replacing any previous report.
func WriteMetrics(dir string, records []MetricsRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create results directory %s", dir)
	}
	path := filepath.Join(dir, MetricsFile)
	tmp, err := os.CreateTemp(dir, "."+MetricsFile+".tmp-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create metrics file")
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, metricsHeader)
	for _, r := range records {
		rows = append(rows, []string{
			r.Name,
			formatMetric(r.Accuracy),
			formatMetric(r.Precision),
			formatMetric(r.Recall),
			formatMetric(r.F1),
			formatMetric(r.ROCAUC),
		})
	}
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return "", errors.Wrap(err, "failed to write metrics")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close metrics file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.Wrap(err, "failed to move metrics into place")
	}
	return path, nil
}

// ReadMetrics parses a report written by WriteMetrics. Degraded is not stored
// in the report and is always false.
func ReadMetrics(path string) ([]MetricsRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("read_metrics", "cannot open "+path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.NewDataError("read_metrics", "malformed report", err)
	}
	if len(rows) == 0 || len(rows[0]) != len(metricsHeader) {
		return nil, errors.NewDataError("read_metrics", "missing or malformed header", nil)
	}

	out := make([]MetricsRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		vals := make([]float64, len(row)-1)
		for j, s := range row[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.NewDataError("read_metrics", "bad value for "+metricsHeader[j+1], err)
			}
			vals[j] = v
		}
		out = append(out, MetricsRecord{
			Name: row[0],
			BinaryReport: metrics.BinaryReport{
				Accuracy:  vals[0],
				Precision: vals[1],
				Recall:    vals[2],
				F1:        vals[3],
				ROCAUC:    vals[4],
			},
		})
	}
	return out, nil
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
