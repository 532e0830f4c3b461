package ir

import (
	"fmt"
	"strings"
)

// DataRow is a positional tuple of column-name → value bindings.
//
// A row is owned by the QueryResult it was added to. Values align
// positionally with columns.
type DataRow struct {
	columns []string
	values  []Value
}

// NewDataRow creates a row from a full set of columns and values.
// Returns an error when the counts differ.
func NewDataRow(columns []string, values []Value) (DataRow, error) {
	if len(columns) != len(values) {
		return DataRow{}, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}
	row := DataRow{
		columns: make([]string, len(columns)),
		values:  make([]Value, len(values)),
	}
	copy(row.columns, columns)
	for i, v := range values {
		if v == nil {
			v = Null{}
		}
		row.values[i] = v
	}
	return row, nil
}

// NewSingleValueRow creates a one-column row, the common shape for
// single-column tables.
func NewSingleValueRow(name string, v Value) DataRow {
	if v == nil {
		v = Null{}
	}
	return DataRow{columns: []string{name}, values: []Value{v}}
}

// Len returns the number of values in the row.
func (r DataRow) Len() int {
	return len(r.values)
}

// Columns returns a copy of the row's column names.
func (r DataRow) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Value returns the value at position i.
func (r DataRow) Value(i int) Value {
	if i < 0 || i >= len(r.values) {
		return Null{}
	}
	return r.values[i]
}

// Get returns the value bound to the named column.
// Column names compare case-insensitively.
func (r DataRow) Get(name string) (Value, bool) {
	i := indexOf(r.columns, name)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

func (r DataRow) String() string {
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = r.columns[i] + "=" + v.SQL()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// QueryResult is an ordered set of unique column names plus the rows that
// were returned for them.
//
// The column list is fixed at construction; rows may be appended.
type QueryResult struct {
	columns []string
	rows    []DataRow
}

// NewQueryResult creates an empty result with the given columns.
// Returns an error when two columns share a name (case-insensitively).
func NewQueryResult(columns ...string) (*QueryResult, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		key := strings.ToLower(c)
		if seen[key] {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		seen[key] = true
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &QueryResult{columns: cols}, nil
}

// MustQueryResult is NewQueryResult for fixtures; it panics on duplicates.
func MustQueryResult(columns ...string) *QueryResult {
	q, err := NewQueryResult(columns...)
	if err != nil {
		panic(err)
	}
	return q
}

// AddRow appends a row. The row's columns must match the result's columns
// by count and, case-insensitively, by name and position.
func (q *QueryResult) AddRow(row DataRow) error {
	if row.Len() != len(q.columns) {
		return fmt.Errorf("row has %d values, result has %d columns", row.Len(), len(q.columns))
	}
	for i, c := range row.columns {
		if !strings.EqualFold(c, q.columns[i]) {
			return fmt.Errorf("row column %d is %q, expected %q", i, c, q.columns[i])
		}
	}
	q.rows = append(q.rows, row)
	return nil
}

// AddValues appends a row built from values aligned with the result columns.
func (q *QueryResult) AddValues(values ...Value) error {
	row, err := NewDataRow(q.columns, values)
	if err != nil {
		return err
	}
	q.rows = append(q.rows, row)
	return nil
}

// Columns returns a copy of the column names.
func (q *QueryResult) Columns() []string {
	out := make([]string, len(q.columns))
	copy(out, q.columns)
	return out
}

// Rows returns the rows in insertion order.
// The returned slice is a copy; the rows themselves are immutable.
func (q *QueryResult) Rows() []DataRow {
	out := make([]DataRow, len(q.rows))
	copy(out, q.rows)
	return out
}

// Size returns the number of rows.
func (q *QueryResult) Size() int {
	return len(q.rows)
}

// IsEmpty reports whether the result has no rows.
func (q *QueryResult) IsEmpty() bool {
	return len(q.rows) == 0
}

// ColumnIndex returns the position of the named column, or -1.
func (q *QueryResult) ColumnIndex(name string) int {
	return indexOf(q.columns, name)
}

// HasColumn reports whether the named column exists.
func (q *QueryResult) HasColumn(name string) bool {
	return indexOf(q.columns, name) >= 0
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}
