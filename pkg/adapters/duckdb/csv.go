package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/vendorsummary/pkg/adapter"
)

// stageTable holds a file while it is appended to its target.
const stageTable = "vendorsummary_csv_stage"

// LoadCSV appends a headed CSV file to name.
//
// The file is staged with read_csv_auto over every row, so a column that
// holds a fraction or text anywhere in the file gets a type that fits all of
// it. Chunks are then appended from the stage by column name. The whole load
// runs in one transaction. A file with a header and no rows creates nothing.
func (a *Adapter) LoadCSV(ctx context.Context, name, path string, chunkSize int, onChunk adapter.CSVChunkFunc) (loaded int64, err error) {
	if a.DB == nil {
		return 0, adapter.ErrNotConnected
	}
	if chunkSize <= 0 {
		return 0, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	if info.Size() == 0 {
		return 0, errors.New("file is empty")
	}

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				a.Logger.Warn("rollback failed", "table", name, "error", rbErr)
			}
		}
	}()

	stage := adapter.QuoteIdent(stageTable)
	//nolint:gosec // path is quoted as a string literal
	create := fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s AS SELECT * FROM read_csv_auto('%s', header=true, sample_size=-1)",
		stage, strings.ReplaceAll(absPath, "'", "''"))
	if _, err = tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("failed to read CSV: %w", err)
	}

	var total int64
	if err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+stage).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count staged rows: %w", err)
	}

	if total > 0 {
		if err = a.prepareCSVTarget(ctx, tx, name, stage); err != nil {
			return 0, err
		}

		target := a.quoteTable(name)
		chunk := 0
		for offset := int64(0); offset < total; offset += int64(chunkSize) {
			if err = ctx.Err(); err != nil {
				return 0, err
			}
			chunk++
			//nolint:gosec // identifiers are quoted
			insert := fmt.Sprintf("INSERT INTO %s BY NAME SELECT * FROM %s WHERE rowid >= ? AND rowid < ? ORDER BY rowid", target, stage)
			res, execErr := tx.ExecContext(ctx, insert, offset, offset+int64(chunkSize))
			if execErr != nil {
				err = fmt.Errorf("chunk %d: %w", chunk, execErr)
				return 0, err
			}
			n, _ := res.RowsAffected()
			loaded += n
			if onChunk != nil {
				onChunk(chunk, n)
			}
		}
	}

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+stage); err != nil {
		return 0, fmt.Errorf("failed to drop stage: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit load of %s: %w", name, err)
	}
	return loaded, nil
}

// prepareCSVTarget creates name with the staged column types when it does not
// exist. An existing relation must hold every staged column with a type the
// staged values widen into.
func (a *Adapter) prepareCSVTarget(ctx context.Context, tx *sql.Tx, name, stage string) error {
	staged, err := columnTypes(ctx, tx, "temp", DefaultSchema, stageTable)
	if err != nil {
		return err
	}

	schema, table := adapter.ParseQualifiedName(name, a.DefaultSchema)
	existing, err := columnTypes(ctx, tx, "", schema, table)
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		//nolint:gosec // identifiers are quoted
		ddl := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s LIMIT 0", a.quoteTable(name), stage)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		return nil
	}

	for _, col := range staged {
		have, ok := lookup(existing, col.Name)
		if !ok {
			return fmt.Errorf("column %q does not exist in %s", col.Name, name)
		}
		if !widens(col.Type, have) {
			return fmt.Errorf("column %q is %s in the file but %s in %s", col.Name, col.Type, have, name)
		}
	}
	return nil
}

func (a *Adapter) quoteTable(name string) string {
	schema, table := adapter.ParseQualifiedName(name, a.DefaultSchema)
	return adapter.QuoteIdent(schema) + "." + adapter.QuoteIdent(table)
}

// columnTypes lists the columns of a table in catalog, or in the current
// database when catalog is empty. Temporary tables live in the "temp" catalog.
func columnTypes(ctx context.Context, tx *sql.Tx, catalog, schema, table string) ([]adapter.Column, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_catalog = COALESCE(NULLIF(?, ''), current_database())
		  AND table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, catalog, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []adapter.Column
	for rows.Next() {
		var c adapter.Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func lookup(cols []adapter.Column, name string) (string, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

var (
	integerTypes = map[string]bool{"TINYINT": true, "SMALLINT": true, "INTEGER": true, "BIGINT": true, "HUGEINT": true}
	floatTypes   = map[string]bool{"FLOAT": true, "DOUBLE": true}
)

// widens reports whether values of type from fit a column of type to without
// losing information.
func widens(from, to string) bool {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	switch {
	case from == to, to == "VARCHAR":
		return true
	case integerTypes[from] && (floatTypes[to] || to == "BIGINT" || to == "HUGEINT"):
		return true
	case from == "FLOAT" && to == "DOUBLE":
		return true
	default:
		return false
	}
}
