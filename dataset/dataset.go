// Package dataset holds the columnar table that flows between pipeline stages.
//
// A Dataset is an ordered list of equally long, typed columns. Numerical
// columns store float64 with NaN marking a missing value; categorical columns
// store strings with "" marking a missing value. Operations that change shape
// return a new Dataset and leave the receiver untouched.
package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// Kind is the type of a column.
type Kind int

const (
	Numerical Kind = iota
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numerical:
		return "numerical"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Column is a named, typed vector. Exactly one of Num or Cat is used,
// according to Kind.
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Cat  []string
}

// NewNumerical wraps values as a numerical column. The slice is not copied.
func NewNumerical(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numerical, Num: values}
}

// NewCategorical wraps values as a categorical column. The slice is not copied.
func NewCategorical(name string, values []string) *Column {
	return &Column{Name: name, Kind: Categorical, Cat: values}
}

// Len returns the number of values.
func (c *Column) Len() int {
	if c.Kind == Categorical {
		return len(c.Cat)
	}
	return len(c.Num)
}

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Categorical {
		return c.Cat[i] == ""
	}
	return math.IsNaN(c.Num[i])
}

// MissingCount returns the number of missing values.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Format renders row i the way it is written to CSV. Missing values render as "".
func (c *Column) Format(i int) string {
	if c.Kind == Categorical {
		return c.Cat[i]
	}
	v := c.Num[i]
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Clone returns a deep copy.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Categorical {
		out.Cat = append([]string(nil), c.Cat...)
	} else {
		out.Num = append([]float64(nil), c.Num...)
	}
	return out
}

func (c *Column) subset(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Categorical {
		out.Cat = make([]string, len(rows))
		for i, r := range rows {
			out.Cat[i] = c.Cat[r]
		}
	} else {
		out.Num = make([]float64, len(rows))
		for i, r := range rows {
			out.Num[i] = c.Num[r]
		}
	}
	return out
}

// Dataset is an ordered set of equally long columns.
type Dataset struct {
	cols  []*Column
	index map[string]int
}

// New builds a Dataset. Column names must be unique and all columns must have
// the same length.
func New(cols ...*Column) (*Dataset, error) {
	d := &Dataset{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, errors.NewDataError("dataset", "nil column at position "+strconv.Itoa(i), nil)
		}
		if _, dup := d.index[c.Name]; dup {
			return nil, errors.NewDataError("dataset", "duplicate column '"+c.Name+"'", nil)
		}
		if c.Len() != cols[0].Len() {
			return nil, errors.NewDimensionError("dataset", cols[0].Len(), c.Len(), 0)
		}
		d.index[c.Name] = i
	}
	return d, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if len(d.cols) == 0 {
		return 0
	}
	return d.cols[0].Len()
}

// Width returns the number of columns.
func (d *Dataset) Width() int {
	return len(d.cols)
}

// Names returns column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice must not be modified.
func (d *Dataset) Columns() []*Column {
	return d.cols
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

// Has reports whether the named column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	cols := make([]*Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.Clone()
	}
	return mustNew(cols)
}

// Select returns the given rows, in the given order. Rows may repeat.
func (d *Dataset) Select(rows []int) *Dataset {
	cols := make([]*Column, len(d.cols))
	for i, c := range d.cols {
		cols[i] = c.subset(rows)
	}
	return mustNew(cols)
}

// Drop returns a copy without the named column.
func (d *Dataset) Drop(name string) (*Dataset, error) {
	if !d.Has(name) {
		return nil, errors.NewDataError("drop", "column '"+name+"' not found", nil)
	}
	cols := make([]*Column, 0, len(d.cols)-1)
	for _, c := range d.cols {
		if c.Name != name {
			cols = append(cols, c.Clone())
		}
	}
	return mustNew(cols), nil
}

// Replace returns a copy with the column of the same name swapped for col.
func (d *Dataset) Replace(col *Column) (*Dataset, error) {
	i, ok := d.index[col.Name]
	if !ok {
		return nil, errors.NewDataError("replace", "column '"+col.Name+"' not found", nil)
	}
	if col.Len() != d.Len() {
		return nil, errors.NewDimensionError("replace", d.Len(), col.Len(), 0)
	}
	out := d.Clone()
	out.cols[i] = col
	return out, nil
}

// Append returns a copy with the rows of other added at the end. Both datasets
// must share the same column names, order and kinds.
func (d *Dataset) Append(other *Dataset) (*Dataset, error) {
	if err := d.sameSchema(other); err != nil {
		return nil, err
	}
	out := d.Clone()
	for i, c := range out.cols {
		src := other.cols[i]
		if c.Kind == Categorical {
			c.Cat = append(c.Cat, src.Cat...)
		} else {
			c.Num = append(c.Num, src.Num...)
		}
	}
	return out, nil
}

// AppendRows returns a copy of d followed by the given rows of src.
func (d *Dataset) AppendRows(src *Dataset, rows []int) (*Dataset, error) {
	return d.Append(src.Select(rows))
}

func (d *Dataset) sameSchema(other *Dataset) error {
	if d.Width() != other.Width() {
		return errors.NewDimensionError("append", d.Width(), other.Width(), 1)
	}
	for i, c := range d.cols {
		o := other.cols[i]
		if c.Name != o.Name || c.Kind != o.Kind {
			return errors.NewDataError("append", "schema mismatch at column '"+c.Name+"'", nil)
		}
	}
	return nil
}

// RowKey renders row i as a string that is equal for two rows exactly when
// every column value is equal. Missing values compare equal to each other.
func (d *Dataset) RowKey(i int) string {
	var b strings.Builder
	for j, c := range d.cols {
		if j > 0 {
			b.WriteByte('\x1f')
		}
		if c.Kind == Numerical {
			b.WriteString(strconv.FormatFloat(c.Num[i], 'g', -1, 64))
		} else {
			b.WriteString(strconv.Quote(c.Cat[i]))
		}
	}
	return b.String()
}

// Equal reports whether both datasets have the same schema and values.
// NaN equals NaN.
func (d *Dataset) Equal(other *Dataset) bool {
	if other == nil || d.Len() != other.Len() || d.sameSchema(other) != nil {
		return false
	}
	for j, c := range d.cols {
		o := other.cols[j]
		for i := 0; i < c.Len(); i++ {
			if c.Kind == Categorical {
				if c.Cat[i] != o.Cat[i] {
					return false
				}
				continue
			}
			a, b := c.Num[i], o.Num[i]
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				return false
			}
		}
	}
	return true
}

func mustNew(cols []*Column) *Dataset {
	d, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return d
}
