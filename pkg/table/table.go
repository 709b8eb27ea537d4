// Package table provides the column-ordered in-memory result set that flows
// between the store, the summary cleaner and the write sink.
package table

import (
	"database/sql"
	"fmt"
)

// WriteMode controls how a table is written to a named relation.
type WriteMode string

// Write modes.
const (
	// Append creates the relation if absent and inserts every row.
	Append WriteMode = "append"
	// Replace drops the relation first, so the result holds only this table.
	Replace WriteMode = "replace"
)

// ParseWriteMode validates a write mode string.
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(s) {
	case Append, Replace:
		return WriteMode(s), nil
	default:
		return "", fmt.Errorf("unknown write mode %q (expected %q or %q)", s, Append, Replace)
	}
}

// Table is an ordered set of named columns and the rows that fill them.
// Every row has exactly len(Columns) cells; a nil cell is a missing value.
type Table struct {
	Columns []string
	Rows    [][]any
	// Types holds the SQL type of each column when it is known. It is
	// either empty or as long as Columns; an empty entry is inferred from
	// the values when the table is written.
	Types []string
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no columns at all.
func (t *Table) Empty() bool {
	return t == nil || len(t.Columns) == 0
}

// Index returns the position of a column, or -1 if absent.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table contains a column.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Column returns a copy of the values of the named column.
func (t *Table) Column(name string) ([]any, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Get returns the cell at row i in the named column.
func (t *Table) Get(i int, name string) (any, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	return t.Rows[i][idx], nil
}

// Append adds a row. The row must match the column count.
func (t *Table) Append(row ...any) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// AddColumn appends a new column with one value per existing row.
func (t *Table) AddColumn(name string, values []any) error {
	if t.Has(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	if len(t.Types) > 0 {
		t.Types = append(t.Types, "")
	}
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// Head returns a table holding at most the first n rows. Rows are shared.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n], Types: t.Types}
}

// Type returns the SQL type recorded for a column, or "" when unknown.
func (t *Table) Type(name string) string {
	idx := t.Index(name)
	if idx < 0 || idx >= len(t.Types) {
		return ""
	}
	return t.Types[idx]
}

// SetType records the SQL type of a column.
func (t *Table) SetType(name, sqlType string) error {
	idx := t.Index(name)
	if idx < 0 {
		return fmt.Errorf("column %q not found", name)
	}
	if len(t.Types) == 0 {
		t.Types = make([]string, len(t.Columns))
	}
	t.Types[idx] = sqlType
	return nil
}

// Clone returns a deep copy of the column list and row slices.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	if len(t.Types) > 0 {
		out.Types = append([]string(nil), t.Types...)
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

// FromRows reads every row of a result set into a Table and closes it.
// Driver values are normalized with Normalize. Column types reported by the
// driver are kept in Types.
func FromRows(rows *sql.Rows) (*Table, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	t := New(cols...)
	if cts, err := rows.ColumnTypes(); err == nil {
		for i, ct := range cts {
			if name := ct.DatabaseTypeName(); name != "" {
				if len(t.Types) == 0 {
					t.Types = make([]string, len(cols))
				}
				t.Types[i] = name
			}
		}
	}

	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, v := range values {
			values[i] = Normalize(v)
		}
		t.Rows = append(t.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return t, nil
}
