package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// missingTokens are read as a missing value.
var missingTokens = map[string]bool{"": true, "NA": true, "NaN": true, "nan": true}

// ReadCSV parses a header row followed by one record per row. A column is
// numerical when every non-missing field parses as a float, categorical
// otherwise.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewDataError("read_csv", "malformed csv", err)
	}
	if len(records) == 0 {
		return nil, errors.NewDataError("read_csv", "missing header row", nil)
	}

	header, rows := records[0], records[1:]
	cols := make([]*Column, len(header))
	for j, name := range header {
		cols[j] = parseColumn(name, j, rows)
	}
	return New(cols...)
}

func parseColumn(name string, j int, rows [][]string) *Column {
	nums := make([]float64, len(rows))
	numeric := true
	for i, rec := range rows {
		field := rec[j]
		if missingTokens[field] {
			nums[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = v
	}
	if numeric {
		return NewNumerical(name, nums)
	}

	cats := make([]string, len(rows))
	for i, rec := range rows {
		if !missingTokens[rec[j]] {
			cats[i] = rec[j]
		}
	}
	return NewCategorical(name, cats)
}

// WriteCSV writes a header row and one record per row, in column order.
func WriteCSV(w io.Writer, d *Dataset) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.Names()); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	record := make([]string, d.Width())
	for i := 0; i < d.Len(); i++ {
		for j, c := range d.cols {
			record[j] = c.Format(i)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i)
		}
	}
	writer.Flush()
	return writer.Error()
}

// LoadCSV reads a dataset from path. Any failure is a DataError.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError("load", "cannot open dataset "+path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// SaveCSV writes d to path, creating parent directories.
func SaveCSV(path string, d *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := WriteCSV(f, d); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
