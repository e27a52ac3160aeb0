// Package visual renders dataset columns as PNG charts.
package visual

import (
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/YuminosukeSato/synthpipe/dataset"
	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// DefaultBins is the histogram bin count used by Overview.
const DefaultBins = 20

// Chart size of a single plot.
const (
	width  = 6 * vg.Inch
	height = 4.5 * vg.Inch
)

// File names written by Overview inside its directory.
const (
	HistogramsFile = "histograms.png"
	ScatterFile    = "scatter.png"
)

// Histogram writes a histogram of values to path. NaN values are left out.
func Histogram(values []float64, column string, bins int, path string) error {
	p, err := histogramPlot(values, column, bins)
	if err != nil {
		return err
	}
	return save(p, path)
}

// Scatter writes a scatter plot of x against y to path. Pairs with a NaN on
// either side are left out.
func Scatter(x, y []float64, xLabel, yLabel, path string) error {
	if len(x) != len(y) {
		return errors.NewDimensionError("visual.Scatter", len(x), len(y), 0)
	}
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	if len(pts) == 0 {
		return errors.NewDataError("visual.Scatter", "no points to draw", errors.ErrEmptyData)
	}

	p := plot.New()
	p.Title.Text = "Scatter Plot: " + xLabel + " vs " + yLabel
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "failed to build scatter")
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)
	return save(p, path)
}

// Overview writes one image with a histogram per named numerical column, two
// per row, and a scatter of the first two columns when there are at least
// two. Names absent from ds are skipped. It returns the files written.
func Overview(ds *dataset.Dataset, numerical []string, dir string) ([]string, error) {
	var cols []*dataset.Column
	for _, name := range numerical {
		col, ok := ds.Column(name)
		if !ok {
			continue
		}
		if col.Kind != dataset.Numerical {
			return nil, errors.NewDataError("visual.Overview", "column '"+name+"' is not numerical", nil)
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return nil, errors.NewDataError("visual.Overview", "no numerical columns to plot", errors.ErrEmptyData)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create plot directory %s", dir)
	}

	const perRow = 2
	rows := (len(cols) + perRow - 1) / perRow
	grid := make([][]*plot.Plot, rows)
	for r := range grid {
		grid[r] = make([]*plot.Plot, perRow)
		for c := range grid[r] {
			i := r*perRow + c
			if i >= len(cols) {
				blank := plot.New()
				blank.HideAxes()
				grid[r][c] = blank
				continue
			}
			p, err := histogramPlot(cols[i].Num, cols[i].Name, DefaultBins)
			if err != nil {
				return nil, err
			}
			grid[r][c] = p
		}
	}

	histPath := filepath.Join(dir, HistogramsFile)
	if err := saveGrid(grid, histPath); err != nil {
		return nil, err
	}
	written := []string{histPath}

	if len(cols) >= 2 {
		scatterPath := filepath.Join(dir, ScatterFile)
		if err := Scatter(cols[0].Num, cols[1].Num, cols[0].Name, cols[1].Name, scatterPath); err != nil {
			return written, err
		}
		written = append(written, scatterPath)
	}
	return written, nil
}

func histogramPlot(values []float64, column string, bins int) (*plot.Plot, error) {
	if bins < 1 {
		return nil, errors.NewValidationError("bins", "must be at least 1", bins)
	}
	data := make(plotter.Values, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return nil, errors.NewDataError("visual.Histogram", "column '"+column+"' has no values", errors.ErrEmptyData)
	}

	p := plot.New()
	p.Title.Text = "Histogram of " + column
	p.X.Label.Text = column
	p.Y.Label.Text = "Frequency"
	p.Add(plotter.NewGrid())

	h, err := plotter.NewHist(data, bins)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to bin column %s", column)
	}
	p.Add(h)
	return p, nil
}

func save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create plot directory %s", dir)
		}
	}
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// saveGrid draws plots as aligned tiles on one PNG.
func saveGrid(grid [][]*plot.Plot, path string) (err error) {
	rows, cols := len(grid), len(grid[0])
	img := vgimg.New(vg.Length(cols)*width, vg.Length(rows)*height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(grid, tiles, dc)
	for r := range grid {
		for c := range grid[r] {
			grid[r][c].Draw(canvases[r][c])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close %s", path)
		}
	}()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	return nil
}
