package testutil

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vendorsummary/pkg/adapter"
	"github.com/leapstack-labs/vendorsummary/pkg/adapters/duckdb"
	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

// Purchase is one row of the purchases relation.
type Purchase struct {
	VendorNumber  int64
	VendorName    string
	Brand         string
	Description   string
	PurchasePrice float64
	Quantity      int64
	Dollars       float64
}

// Price is one row of the purchase_prices relation.
type Price struct {
	Brand  string
	Volume string
	Price  float64
}

// Sale is one row of the sales relation.
type Sale struct {
	VendorNo      int64
	Brand         string
	SalesQuantity int64
	SalesDollars  float64
	SalesPrice    float64
	ExciseTax     float64
}

// Invoice is one row of the vendor_invoice relation.
type Invoice struct {
	VendorNumber int64
	Freight      float64
}

// BaseRelations holds the rows of the four input relations.
type BaseRelations struct {
	Purchases []Purchase
	Prices    []Price
	Sales     []Sale
	Invoices  []Invoice
}

var baseDDL = []string{
	`CREATE TABLE purchases (VendorNumber BIGINT, VendorName VARCHAR, Brand VARCHAR, Description VARCHAR, PurchasePrice DOUBLE, Quantity BIGINT, Dollars DOUBLE)`,
	`CREATE TABLE purchase_prices (Brand VARCHAR, Volume VARCHAR, Price DOUBLE)`,
	`CREATE TABLE sales (VendorNo BIGINT, Brand VARCHAR, SalesQuantity BIGINT, SalesDollars DOUBLE, SalesPrice DOUBLE, ExciseTax DOUBLE)`,
	`CREATE TABLE vendor_invoice (VendorNumber BIGINT, Freight DOUBLE)`,
}

// NewMemoryStore connects an in-memory DuckDB adapter that is closed with the test.
func NewMemoryStore(t testing.TB) *duckdb.Adapter {
	t.Helper()
	adp := duckdb.New(NewTestLogger(t))
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

// Seed creates the four base relations in adp and fills them with r.
// Relations are created even when they receive no rows.
func Seed(t testing.TB, adp adapter.Adapter, r BaseRelations) {
	t.Helper()
	ctx := context.Background()

	for _, ddl := range baseDDL {
		require.NoError(t, adp.Exec(ctx, ddl))
	}

	purchases := table.New("VendorNumber", "VendorName", "Brand", "Description", "PurchasePrice", "Quantity", "Dollars")
	for _, p := range r.Purchases {
		require.NoError(t, purchases.Append(p.VendorNumber, p.VendorName, p.Brand, p.Description, p.PurchasePrice, p.Quantity, p.Dollars))
	}
	prices := table.New("Brand", "Volume", "Price")
	for _, p := range r.Prices {
		require.NoError(t, prices.Append(p.Brand, p.Volume, p.Price))
	}
	sales := table.New("VendorNo", "Brand", "SalesQuantity", "SalesDollars", "SalesPrice", "ExciseTax")
	for _, s := range r.Sales {
		require.NoError(t, sales.Append(s.VendorNo, s.Brand, s.SalesQuantity, s.SalesDollars, s.SalesPrice, s.ExciseTax))
	}
	invoices := table.New("VendorNumber", "Freight")
	for _, i := range r.Invoices {
		require.NoError(t, invoices.Append(i.VendorNumber, i.Freight))
	}

	for name, tbl := range map[string]*table.Table{
		"purchases":       purchases,
		"purchase_prices": prices,
		"sales":           sales,
		"vendor_invoice":  invoices,
	} {
		_, err := adp.WriteTable(ctx, name, tbl, table.Append)
		require.NoError(t, err)
	}
}

// WriteCSV writes a CSV file with a header row into dir and returns its path.
func WriteCSV(t testing.TB, dir, name string, header []string, rows ...[]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path) //nolint:gosec // test path
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	return path
}
