package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

// WriteTable writes t into the named relation inside one transaction.
//
// With table.Replace the relation is dropped first. When the relation does not
// exist it is created with the column types recorded in t, inferring the rest
// from the data; otherwise every column of t must already exist in it. Rows are
// inserted in order through a prepared statement and values are coerced to the
// stored column type. A fractional value bound for an integer column fails the
// write.
func (b *BaseSQLAdapter) WriteTable(ctx context.Context, name string, t *table.Table, mode table.WriteMode) (written int64, err error) {
	if b.DB == nil {
		return 0, ErrNotConnected
	}
	if t.Empty() {
		return 0, fmt.Errorf("cannot write %s: table has no columns", name)
	}
	if mode != table.Append && mode != table.Replace {
		return 0, fmt.Errorf("cannot write %s: unknown write mode %q", name, mode)
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				b.logger().Warn("rollback failed", "table", name, "error", rbErr)
			}
		}
	}()

	target := b.qualified(name)

	if mode == table.Replace {
		if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+target); err != nil {
			return 0, fmt.Errorf("failed to drop %s: %w", name, err)
		}
	}

	existing, err := b.columns(ctx, tx, name)
	if err != nil {
		return 0, err
	}

	types, err := b.prepareTarget(ctx, tx, name, target, t, existing)
	if err != nil {
		return 0, err
	}

	written, err = insertRows(ctx, tx, target, t, types)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", name, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit write to %s: %w", name, err)
	}

	b.logger().Debug("table written", "table", name, "mode", string(mode), "rows", written)
	return written, nil
}

// typeRe matches the SQL type names accepted in a CREATE TABLE column list.
var typeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\([0-9, ]+\))?$`)

// prepareTarget creates the relation when absent and returns the SQL type of
// each column of t, in column order. A new relation takes the types recorded
// in t and infers the rest from the values.
func (b *BaseSQLAdapter) prepareTarget(ctx context.Context, tx *sql.Tx, name, target string, t *table.Table, existing []Column) ([]string, error) {
	types := make([]string, len(t.Columns))

	if len(existing) == 0 {
		defs := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			types[i] = t.Type(col)
			if types[i] == "" {
				values, _ := t.Column(col)
				types[i] = table.SQLType(values)
			}
			if !typeRe.MatchString(types[i]) {
				return nil, fmt.Errorf("invalid type %q for column %q", types[i], col)
			}
			defs[i] = QuoteIdent(col) + " " + types[i]
		}
		ddl := fmt.Sprintf("CREATE TABLE %s (%s)", target, strings.Join(defs, ", "))
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", name, err)
		}
		return types, nil
	}

	byName := make(map[string]string, len(existing))
	for _, c := range existing {
		byName[c.Name] = c.Type
	}
	for i, col := range t.Columns {
		typ, ok := byName[col]
		if !ok {
			return nil, fmt.Errorf("column %q does not exist in %s", col, name)
		}
		types[i] = typ
	}
	return types, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, target string, t *table.Table, types []string) (int64, error) {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = QuoteIdent(c)
		marks[i] = "?"
	}

	//nolint:gosec // identifiers are quoted
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", target, strings.Join(cols, ", "), strings.Join(marks, ", "))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var n int64
	args := make([]any, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			if table.Truncates(v, types[i]) {
				return n, fmt.Errorf("row %d: %v does not fit %s column %q", n, v, types[i], t.Columns[i])
			}
			args[i] = table.Coerce(v, types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, fmt.Errorf("row %d: %w", n, err)
		}
		n++
	}
	return n, nil
}
