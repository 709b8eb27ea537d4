package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vendorsummary/internal/testutil"
	"github.com/leapstack-labs/vendorsummary/pkg/adapter"
	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

// fakeStore reports chunks of a fixed number of rows per file without reading them.
type fakeStore struct {
	rows   map[string]int64
	failOn string
	loaded []string
}

func (s *fakeStore) LoadCSV(_ context.Context, name, _ string, chunkSize int, onChunk adapter.CSVChunkFunc) (int64, error) {
	if name == s.failOn {
		onChunk(1, int64(chunkSize))
		return 0, errors.New("chunk 2: load refused")
	}
	s.loaded = append(s.loaded, name)
	total := s.rows[name]
	chunk := 0
	for left := total; left > 0; left -= int64(chunkSize) {
		chunk++
		onChunk(chunk, min(left, int64(chunkSize)))
	}
	return total, nil
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "purchases", TableName("purchases.csv"))
	assert.Equal(t, "vendor_invoice", TableName("/data/vendor_invoice.csv"))
	assert.Equal(t, "sales.2024", TableName("sales.2024.csv"))
}

func TestLoader_LoadFileChunks(t *testing.T) {
	path := testutil.WriteCSV(t, t.TempDir(), "vendor_invoice.csv", []string{"VendorNumber"}, []string{"1"})

	store := &fakeStore{rows: map[string]int64{"vendor_invoice": 25}}
	logger, logs := testutil.NewCaptureLogger()
	res := NewLoader(store, 10, logger).LoadFile(context.Background(), path, "vendor_invoice")

	require.NoError(t, res.Err)
	assert.Equal(t, int64(25), res.Rows)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, "vendor_invoice.csv", res.File)
	assert.False(t, res.CompletedAt.Before(res.StartedAt))

	assert.Equal(t, 3, strings.Count(logs.String(), "ingesting chunk"))
	assert.Contains(t, logs.String(), "rows=5")
	assert.Contains(t, logs.String(), "finished ingestion")
}

func TestLoader_DefaultChunkSize(t *testing.T) {
	path := testutil.WriteCSV(t, t.TempDir(), "a.csv", []string{"x"}, []string{"1"})

	store := &fakeStore{rows: map[string]int64{"a": DefaultChunkSize + 1}}
	res := NewLoader(store, 0, nil).LoadFile(context.Background(), path, "a")

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Chunks)
}

func TestLoader_LoadDirIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteCSV(t, dir, "purchases.csv", []string{"VendorNumber"}, []string{"1"}, []string{"2"})
	testutil.WriteCSV(t, dir, "sales.csv", []string{"VendorNo"}, []string{"1"})
	testutil.WriteCSV(t, dir, "vendor_invoice.csv", []string{"VendorNumber"}, []string{"3"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.csv"), 0o750))

	store := &fakeStore{rows: map[string]int64{"purchases": 2, "vendor_invoice": 1}, failOn: "sales"}
	logger, logs := testutil.NewCaptureLogger()
	report, err := NewLoader(store, 10, logger).LoadDir(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, report.Files, 3)
	assert.Equal(t, "purchases", report.Files[0].Table)
	assert.Equal(t, "sales", report.Files[1].Table)
	assert.Equal(t, "vendor_invoice", report.Files[2].Table)
	assert.Equal(t, int64(3), report.Rows())

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "sales.csv", failed[0].File)
	assert.Zero(t, failed[0].Rows)
	assert.Zero(t, failed[0].Chunks, "a failed file reports no chunks")
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "sales.csv: chunk 2: load refused")

	assert.Contains(t, logs.String(), "error processing file")
	assert.Contains(t, logs.String(), "all ingestion complete")
	assert.Equal(t, []string{"purchases", "vendor_invoice"}, store.loaded, "files after a failure still load")
}

func TestLoader_LoadDirMissing(t *testing.T) {
	_, err := NewLoader(&fakeStore{}, 10, nil).LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read data directory")
}

func TestLoader_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteCSV(t, dir, "a.csv", []string{"x"}, []string{"1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(&fakeStore{}, 10, nil).LoadDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

// querySingle returns the first row of a query against store.
func querySingle(t *testing.T, store adapter.Adapter, sql string) []any {
	t.Helper()
	rows, err := store.Query(context.Background(), sql)
	require.NoError(t, err)
	got, err := table.FromRows(rows.Rows)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	return got.Rows[0]
}

func TestLoader_IntoDuckDB(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore(t)
	dir := t.TempDir()

	var rows [][]string
	for i := range 23 {
		rows = append(rows, []string{"1", "B" + strconv.Itoa(i%3), strconv.Itoa(i), "2.5"})
	}
	testutil.WriteCSV(t, dir, "sales.csv", []string{"VendorNo", "Brand", "SalesQuantity", "SalesDollars"}, rows...)

	loader := NewLoader(store, 5, nil)
	report, err := loader.LoadDir(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, 5, report.Files[0].Chunks)
	assert.Equal(t, int64(23), report.Files[0].Rows)

	n, err := store.CountRows(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, int64(23), n)

	// A second load appends.
	_, err = loader.LoadDir(ctx, dir)
	require.NoError(t, err)
	n, err = store.CountRows(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, int64(46), n)
}

func TestLoader_FractionsAfterWholeNumbers(t *testing.T) {
	for _, chunkSize := range []int{1, 2, 3} {
		t.Run("chunk size "+strconv.Itoa(chunkSize), func(t *testing.T) {
			store := testutil.NewMemoryStore(t)
			path := testutil.WriteCSV(t, t.TempDir(), "purchases.csv", []string{"VendorNumber", "Quantity", "Dollars"},
				[]string{"1", "1", "50"},
				[]string{"1", "2", "60"},
				[]string{"1", "3", "12.5"},
				[]string{"1", "4", "0.4"},
			)

			res := NewLoader(store, chunkSize, nil).LoadFile(context.Background(), path, "purchases")
			require.NoError(t, res.Err)
			assert.Equal(t, int64(4), res.Rows)
			assert.Equal(t, (4+chunkSize-1)/chunkSize, res.Chunks)

			got := querySingle(t, store, `SELECT SUM(Dollars), CAST(SUM(Quantity) AS DOUBLE) FROM purchases`)
			assert.InDelta(t, 122.9, got[0], 1e-9)
			assert.InDelta(t, 10.0, got[1], 1e-9)

			meta, err := store.GetTableMetadata(context.Background(), "purchases")
			require.NoError(t, err)
			assert.Equal(t, "DOUBLE", meta.Columns[2].Type)
		})
	}
}

func TestLoader_TextAfterNumbers(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	path := testutil.WriteCSV(t, t.TempDir(), "purchase_prices.csv", []string{"Brand", "Volume"},
		[]string{"58", "750"},
		[]string{"62", "1000"},
		[]string{"70", "Widget"},
	)

	res := NewLoader(store, 1, nil).LoadFile(context.Background(), path, "purchase_prices")
	require.NoError(t, res.Err)
	assert.Equal(t, int64(3), res.Rows)

	got := querySingle(t, store, `SELECT Volume FROM purchase_prices WHERE Brand = 70`)
	assert.Equal(t, "Widget", got[0])
}

func TestLoader_FailedFileLeavesTableUnchanged(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore(t)
	dir := t.TempDir()

	first := testutil.WriteCSV(t, dir, "sales.csv", []string{"VendorNo", "Brand"}, []string{"1", "58"}, []string{"2", "62"})
	loader := NewLoader(store, 1, nil)
	require.NoError(t, loader.LoadFile(ctx, first, "sales").Err)

	second := testutil.WriteCSV(t, t.TempDir(), "sales.csv", []string{"VendorNo", "Brand"}, []string{"3", "70"}, []string{"4", "Gin"})
	res := loader.LoadFile(ctx, second, "sales")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), `column "Brand" is VARCHAR in the file but BIGINT in sales`)

	n, err := store.CountRows(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestLoader_FileErrors(t *testing.T) {
	store := testutil.NewMemoryStore(t)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	res := NewLoader(store, 10, nil).LoadFile(context.Background(), empty, "empty")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "file is empty")

	res = NewLoader(store, 10, nil).LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "missing")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "failed to open file")

	tables, err := store.ListTables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestLoader_HeaderOnly(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	path := testutil.WriteCSV(t, t.TempDir(), "sales.csv", []string{"VendorNo", "Brand"})

	res := NewLoader(store, 10, nil).LoadFile(context.Background(), path, "sales")

	require.NoError(t, res.Err)
	assert.Zero(t, res.Rows)
	assert.Zero(t, res.Chunks)

	tables, err := store.ListTables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	assert.Empty(t, r.Failed())
	assert.NoError(t, r.Err())
}
