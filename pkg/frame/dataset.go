package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// IDAttribute is the dataset attribute holding the stable id used to
// correlate profile and importance calls made on the same data.
const IDAttribute = "RasgoID"

type Kind string

const (
	KindInteger  Kind = "integer"
	KindFloat    Kind = "float"
	KindBoolean  Kind = "boolean"
	KindDatetime Kind = "datetime"
	KindString   Kind = "string"
)

func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}

var nullTokens = []string{"", "NA", "NaN", "nan", "<nil>", "null", "NULL", "None"}

// Dataset is a dataframe plus free form attributes. It is always passed by
// pointer so that tags written by one call are visible to the next.
type Dataset struct {
	DF    dataframe.DataFrame
	Attrs map[string]string
}

func New(df dataframe.DataFrame) *Dataset {
	return &Dataset{DF: df, Attrs: map[string]string{}}
}

func FromColumns(columns ...series.Series) (*Dataset, error) {
	df := dataframe.New(columns...)
	if df.Err != nil {
		return nil, fmt.Errorf("error building dataframe: %w", df.Err)
	}
	return New(df), nil
}

// FromRecords loads a header row followed by data rows, detecting column types.
func FromRecords(records [][]string) (*Dataset, error) {
	df := dataframe.LoadRecords(records, dataframe.NaNValues(nullTokens))
	if df.Err != nil {
		return nil, fmt.Errorf("error loading records: %w", df.Err)
	}
	return New(df), nil
}

func ReadCSV(r io.Reader) (*Dataset, error) {
	df := dataframe.ReadCSV(r, dataframe.NaNValues(nullTokens))
	if df.Err != nil {
		return nil, fmt.Errorf("error reading csv: %w", df.Err)
	}
	return New(df), nil
}

// WriteCSV writes a header and all rows, nulls written as empty fields.
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	names := d.Names()
	if err := writer.Write(names); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	record := make([]string, len(names))
	for i := 0; i < d.Nrow(); i++ {
		for j, name := range names {
			record[j] = d.format(name, i)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (d *Dataset) format(column string, row int) string {
	v := d.Value(column, row)
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// Copy returns a deep copy, attributes included.
func (d *Dataset) Copy() *Dataset {
	return &Dataset{DF: d.DF.Copy(), Attrs: d.cloneAttrs()}
}

func (d *Dataset) cloneAttrs() map[string]string {
	attrs := maps.Clone(d.Attrs)
	if attrs == nil {
		attrs = map[string]string{}
	}
	return attrs
}

func (d *Dataset) Names() []string {
	return d.DF.Names()
}

func (d *Dataset) Nrow() int {
	return d.DF.Nrow()
}

func (d *Dataset) Ncol() int {
	return d.DF.Ncol()
}

func (d *Dataset) HasColumn(name string) bool {
	for _, n := range d.DF.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func (d *Dataset) Column(name string) series.Series {
	return d.DF.Col(name)
}

// Kind reports the logical type of a column. String columns whose non-null
// values all parse as dates are reported as datetime.
func (d *Dataset) Kind(name string) Kind {
	col := d.DF.Col(name)
	switch col.Type() {
	case series.Int:
		return KindInteger
	case series.Float:
		return KindFloat
	case series.Bool:
		return KindBoolean
	}
	if looksLikeDatetime(col) {
		return KindDatetime
	}
	return KindString
}

func looksLikeDatetime(col series.Series) bool {
	const sample = 100
	seen := 0
	for i := 0; i < col.Len() && seen < sample; i++ {
		elem := col.Elem(i)
		if isNullElement(elem) {
			continue
		}
		if _, err := dateparse.ParseAny(elem.String()); err != nil {
			return false
		}
		seen++
	}
	return seen > 0
}

func isNullElement(elem series.Element) bool {
	if elem.IsNA() {
		return true
	}
	return elem.Type() == series.Float && math.IsNaN(elem.Float())
}

func (d *Dataset) IsNull(column string, row int) bool {
	return isNullElement(d.DF.Col(column).Elem(row))
}

// Nulls returns a per row null mask for a column.
func (d *Dataset) Nulls(column string) []bool {
	col := d.DF.Col(column)
	mask := make([]bool, col.Len())
	for i := range mask {
		mask[i] = isNullElement(col.Elem(i))
	}
	return mask
}

func (d *Dataset) NullCount(column string) int {
	count := 0
	for _, null := range d.Nulls(column) {
		if null {
			count++
		}
	}
	return count
}

// Value returns the typed value of a cell, nil when null.
func (d *Dataset) Value(column string, row int) any {
	elem := d.DF.Col(column).Elem(row)
	if isNullElement(elem) {
		return nil
	}
	switch elem.Type() {
	case series.Int:
		v, err := elem.Int()
		if err != nil {
			return nil
		}
		return v
	case series.Float:
		return elem.Float()
	case series.Bool:
		v, err := elem.Bool()
		if err != nil {
			return nil
		}
		return v
	default:
		return elem.String()
	}
}

// Floats returns the column as float64 values, NaN where null.
func (d *Dataset) Floats(column string) []float64 {
	col := d.DF.Col(column)
	out := make([]float64, col.Len())
	for i := range out {
		elem := col.Elem(i)
		if isNullElement(elem) {
			out[i] = math.NaN()
		} else {
			out[i] = elem.Float()
		}
	}
	return out
}

// Strings returns the column rendered as strings, empty where null.
func (d *Dataset) Strings(column string) []string {
	out := make([]string, d.Nrow())
	for i := range out {
		out[i] = d.format(column, i)
	}
	return out
}

// Key renders the values of the given columns in a row as a comparable key.
func (d *Dataset) Key(row int, columns []string) string {
	var sb strings.Builder
	for _, c := range columns {
		if d.IsNull(c, row) {
			sb.WriteString("\x00")
		} else {
			sb.WriteString(d.format(c, row))
		}
		sb.WriteString("\x1f")
	}
	return sb.String()
}

// Rows returns a new dataset holding the given rows in the given order.
func (d *Dataset) Rows(idx []int) *Dataset {
	attrs := d.cloneAttrs()
	if len(idx) == 0 {
		columns := make([]series.Series, 0, d.Ncol())
		for _, name := range d.Names() {
			col := d.DF.Col(name)
			columns = append(columns, series.New([]string{}, col.Type(), name))
		}
		return &Dataset{DF: dataframe.New(columns...), Attrs: attrs}
	}
	return &Dataset{DF: d.DF.Subset(idx), Attrs: attrs}
}

// DropColumns returns a copy without the named columns.
func (d *Dataset) DropColumns(names ...string) (*Dataset, error) {
	if len(names) == 0 {
		return d.Copy(), nil
	}
	df := d.DF.Drop(names)
	if df.Err != nil {
		return nil, fmt.Errorf("error dropping columns %v: %w", names, df.Err)
	}
	return &Dataset{DF: df, Attrs: d.cloneAttrs()}, nil
}

// SelectColumns returns a copy holding only the named columns, in order.
func (d *Dataset) SelectColumns(names ...string) (*Dataset, error) {
	df := d.DF.Select(names)
	if df.Err != nil {
		return nil, fmt.Errorf("error selecting columns %v: %w", names, df.Err)
	}
	return &Dataset{DF: df, Attrs: d.cloneAttrs()}, nil
}

// SetColumn adds or replaces a column in place.
func (d *Dataset) SetColumn(s series.Series) error {
	df := d.DF.Mutate(s)
	if df.Err != nil {
		return fmt.Errorf("error setting column %s: %w", s.Name, df.Err)
	}
	d.DF = df
	return nil
}

func (d *Dataset) RenameColumn(oldName, newName string) error {
	df := d.DF.Rename(newName, oldName)
	if df.Err != nil {
		return fmt.Errorf("error renaming column %s: %w", oldName, df.Err)
	}
	d.DF = df
	return nil
}

// Concat appends the rows of other, which must have the same columns.
func (d *Dataset) Concat(other *Dataset) (*Dataset, error) {
	if other.Nrow() == 0 {
		return d.Copy(), nil
	}
	if d.Nrow() == 0 {
		out := other.Copy()
		out.Attrs = d.cloneAttrs()
		return out, nil
	}
	df := d.DF.RBind(other.DF)
	if df.Err != nil {
		return nil, fmt.Errorf("error concatenating dataframes: %w", df.Err)
	}
	return &Dataset{DF: df, Attrs: d.cloneAttrs()}, nil
}

func (d *Dataset) String() string {
	return d.DF.String()
}

// NullableStrings builds a string column that is null wherever valid is false.
func NullableStrings(name string, values []string, valid []bool) series.Series {
	raw := make([]string, len(values))
	for i, v := range values {
		if valid[i] {
			raw[i] = v
		} else {
			raw[i] = "NaN"
		}
	}
	return series.New(raw, series.String, name)
}

// DropEmptyColumns returns a copy without the columns that hold no values.
func (d *Dataset) DropEmptyColumns() (*Dataset, error) {
	var empty []string
	for _, name := range d.Names() {
		if d.NullCount(name) == d.Nrow() {
			empty = append(empty, name)
		}
	}
	if len(empty) == d.Ncol() {
		return &Dataset{DF: dataframe.DataFrame{}, Attrs: d.cloneAttrs()}, nil
	}
	return d.DropColumns(empty...)
}

// NullRows returns the rows holding a null in any of the given columns, or in
// any column when none are given.
func (d *Dataset) NullRows(columns ...string) []int {
	if len(columns) == 0 {
		columns = d.Names()
	}
	masks := make([][]bool, len(columns))
	for i, c := range columns {
		masks[i] = d.Nulls(c)
	}

	var rows []int
	for row := 0; row < d.Nrow(); row++ {
		for _, mask := range masks {
			if mask[row] {
				rows = append(rows, row)
				break
			}
		}
	}
	return rows
}

// DropNullRows returns a copy without the rows NullRows reports.
func (d *Dataset) DropNullRows(columns ...string) *Dataset {
	nulls := d.NullRows(columns...)
	keep := make([]int, 0, d.Nrow()-len(nulls))
	next := 0
	for row := 0; row < d.Nrow(); row++ {
		if next < len(nulls) && nulls[next] == row {
			next++
			continue
		}
		keep = append(keep, row)
	}
	return d.Rows(keep)
}
