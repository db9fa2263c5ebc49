// Package table provides the normalized in-memory representation of a batch
// of pitch events fetched from Baseball Savant.
//
// Savant's CSV export is a moving target: the column set differs between
// seasons and query modes, and numeric columns arrive with empty cells for
// untracked pitches. Table models this as a sparse typed table: a fixed
// column set per table, nullable scalar cells, and presence checks instead
// of fixed structs.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrDecode reports a payload that could not be parsed as delimited text.
var ErrDecode = errors.New("table: malformed CSV payload")

// --------------------------------------------------------------------------
// Value: nullable scalar cell
// --------------------------------------------------------------------------

// Kind identifies the runtime type of a cell.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
)

// Value is a single nullable cell. The zero value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// Null returns the null cell.
func Null() Value { return Value{} }

// String returns a string cell.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer cell.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float cell.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Kind returns the cell's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float64 returns the cell as a float64. Integer cells convert; string and
// null cells report ok=false.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Int64 returns the cell as an int64. Float cells truncate.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return int64(v.f), true
	default:
		return 0, false
	}
}

// Text returns the cell rendered as a string. Null renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return ""
	}
}

// Native returns the cell as a plain Go value: string, int64, float64, or
// nil for null. Used when handing rows to encoders.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	default:
		return nil
	}
}

// Equal compares two cells. Numeric cells compare by value, so an integer 2
// equals a float 2.0; CSV round-trips may legitimately change the numeric
// kind of a whole-number cell.
func (v Value) Equal(o Value) bool {
	if v.kind == o.kind {
		return v == o
	}
	vf, vok := v.Float64()
	of, ook := o.Float64()
	return vok && ook && vf == of
}

// ParseCell converts a raw CSV cell into a typed Value. Empty cells are null;
// everything that parses as a number becomes numeric, the rest stays a string.
func ParseCell(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Null()
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Float(f)
	}
	return String(trimmed)
}

// --------------------------------------------------------------------------
// Table
// --------------------------------------------------------------------------

// Row maps column name to cell. Absent columns are treated as null.
type Row map[string]Value

// Table is an ordered sequence of rows sharing one column set. It is
// immutable by convention once handed off: transformations return new tables.
type Table struct {
	cols []string
	rows []Row
}

// New creates an empty table with the given column order.
func New(cols ...string) *Table {
	return &Table{cols: append([]string(nil), cols...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t == nil || len(t.rows) == 0 }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// HasColumn reports whether the named column is present.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.cols {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a row. Cells for unknown columns are dropped; missing cells
// read as null, keeping the per-table column set invariant.
func (t *Table) Append(r Row) {
	row := make(Row, len(t.cols))
	for _, c := range t.cols {
		if v, ok := r[c]; ok {
			row[c] = v
		}
	}
	t.rows = append(t.rows, row)
}

// Row returns the i-th row.
func (t *Table) Row(i int) Row { return t.rows[i] }

// At returns the cell at row i, column name. Absent columns read as null.
func (t *Table) At(i int, name string) Value {
	if v, ok := t.rows[i][name]; ok {
		return v
	}
	return Null()
}

// Column returns all cells of one column in row order.
func (t *Table) Column(name string) []Value {
	out := make([]Value, len(t.rows))
	for i := range t.rows {
		out[i] = t.At(i, name)
	}
	return out
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.cols...)
	for _, r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// WithColumn returns a new table that has the named column. Existing rows
// get the value produced by fn; a nil fn fills the column with nulls.
func (t *Table) WithColumn(name string, fn func(Row) Value) *Table {
	cols := t.cols
	if !t.HasColumn(name) {
		cols = append(t.Columns(), name)
	}
	out := New(cols...)
	for _, r := range t.rows {
		row := make(Row, len(cols))
		for k, v := range r {
			row[k] = v
		}
		if fn != nil {
			row[name] = fn(r)
		}
		out.rows = append(out.rows, row)
	}
	return out
}

// Maps renders every row as a plain map of native Go values, one entry per
// column, null cells as nil. The result is safe to hand to json encoders.
func (t *Table) Maps() []map[string]any {
	if t.Empty() {
		return []map[string]any{}
	}
	out := make([]map[string]any, 0, len(t.rows))
	for i := range t.rows {
		m := make(map[string]any, len(t.cols))
		for _, col := range t.cols {
			m[col] = t.At(i, col).Native()
		}
		out = append(out, m)
	}
	return out
}

// Group is one bucket produced by GroupBy.
type Group struct {
	Key  Value
	Rows *Table
}

// GroupBy buckets rows by a column, preserving first-seen key order and the
// original row order inside each bucket. Null keys form their own bucket.
func (t *Table) GroupBy(name string) []Group {
	index := map[string]int{}
	var groups []Group
	for i := range t.rows {
		key := t.At(i, name)
		rendered := key.Text()
		gi, ok := index[rendered]
		if !ok {
			gi = len(groups)
			index[rendered] = gi
			groups = append(groups, Group{Key: key, Rows: New(t.cols...)})
		}
		groups[gi].rowsAppend(t.rows[i])
	}
	return groups
}

func (g *Group) rowsAppend(r Row) {
	g.Rows.rows = append(g.Rows.rows, r)
}

// Unique returns the distinct non-duplicate values of a column in
// first-seen order. Null cells are skipped.
func (t *Table) Unique(name string) []Value {
	seen := map[string]bool{}
	var out []Value
	for i := range t.rows {
		v := t.At(i, name)
		if v.IsNull() {
			continue
		}
		key := v.Text()
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

// Equal reports whether two tables have the same columns and cell values.
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() || len(t.cols) != len(o.cols) {
		return false
	}
	for i, c := range t.cols {
		if o.cols[i] != c {
			return false
		}
	}
	for i := range t.rows {
		for _, c := range t.cols {
			if !t.At(i, c).Equal(o.At(i, c)) {
				return false
			}
		}
	}
	return true
}

// --------------------------------------------------------------------------
// CSV codec
// --------------------------------------------------------------------------

// ReadCSV decodes delimited text into a table. The first record is the
// header. An empty body yields an empty table; upstream signals "no data"
// with an empty 200 response, which is not a decode failure. Short records
// leave trailing cells null; long records are a decode failure.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	t := New(cols...)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if len(record) > len(cols) {
			return nil, fmt.Errorf("%w: record has %d fields, header has %d", ErrDecode, len(record), len(cols))
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if i < len(record) {
				row[c] = ParseCell(record[i])
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// WriteCSV encodes the table as delimited text with a header record. Null
// cells are written as empty strings, matching what upstream sends.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.cols))
	for i := range t.rows {
		for j, c := range t.cols {
			record[j] = t.At(i, c).Text()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
