// Package summary builds the vendor_sales_summary relation: it aggregates
// purchases, sales and freight per vendor and brand, derives profitability
// ratios and writes the result back to the store.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/vendorsummary/pkg/core"
	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

// DefaultTable is the relation the summary is written to.
const DefaultTable = "vendor_sales_summary"

// Querier runs a read-only query against the store.
type Querier interface {
	Query(ctx context.Context, sql string) (*core.Rows, error)
}

// Columns produced by the aggregation, in order.
var aggregateColumns = []string{
	"VendorNumber", "VendorName", "Brand", "Description", "ActualPrice", "PurchasePrice", "Volume",
	"TotalPurchaseQuantity", "TotalPurchaseDollars", "TotalSalesQuantity", "TotalSalesDollar",
	"TotalSalesPrice", "TotalExciseTax", "FreightCost",
}

// Freight is summed per vendor only and joined onto every brand row of the vendor.
// Rows are ordered by TotalPurchaseDollars and then by the grouping key so that
// repeated runs over the same data return identical tables.
const vendorSummaryQuery = `
WITH FreightSummary AS (
    SELECT
        VendorNumber,
        SUM(Freight) AS FreightCost
    FROM vendor_invoice
    GROUP BY VendorNumber
),
PurchaseSummary AS (
    SELECT
        p.VendorNumber,
        p.VendorName,
        p.Brand,
        p.Description,
        p.PurchasePrice,
        pp.Volume,
        pp.Price AS ActualPrice,
        SUM(p.Quantity) AS TotalPurchaseQuantity,
        SUM(p.Dollars) AS TotalPurchaseDollars
    FROM purchases p
    JOIN purchase_prices pp ON p.Brand = pp.Brand
    WHERE p.PurchasePrice > 0
    GROUP BY
        p.VendorNumber, p.VendorName, p.Brand, p.Description,
        p.PurchasePrice, pp.Price, pp.Volume
),
SalesSummary AS (
    SELECT
        VendorNo,
        Brand,
        SUM(SalesQuantity) AS TotalSalesQuantity,
        SUM(SalesDollars) AS TotalSalesDollar,
        SUM(SalesPrice) AS TotalSalesPrice,
        SUM(ExciseTax) AS TotalExciseTax
    FROM sales
    GROUP BY VendorNo, Brand
)
SELECT
    ps.VendorNumber,
    ps.VendorName,
    ps.Brand,
    ps.Description,
    ps.ActualPrice,
    ps.PurchasePrice,
    ps.Volume,
    ps.TotalPurchaseQuantity,
    ps.TotalPurchaseDollars,
    ss.TotalSalesQuantity,
    ss.TotalSalesDollar,
    ss.TotalSalesPrice,
    ss.TotalExciseTax,
    fs.FreightCost
FROM PurchaseSummary ps
LEFT JOIN SalesSummary ss
    ON ps.VendorNumber = ss.VendorNo AND ps.Brand = ss.Brand
LEFT JOIN FreightSummary fs
    ON ps.VendorNumber = fs.VendorNumber
ORDER BY
    ps.TotalPurchaseDollars DESC,
    ps.VendorNumber,
    ps.VendorName,
    ps.Brand,
    ps.Description,
    ps.PurchasePrice,
    ps.ActualPrice,
    ps.Volume
`

const duplicateBrandsQuery = `
SELECT
    CAST(Brand AS VARCHAR) AS Brand,
    COUNT(*) OVER () AS Total
FROM purchase_prices
GROUP BY Brand
HAVING COUNT(*) > 1
ORDER BY Brand
LIMIT %d
`

const maxReportedBrands = 10

// BuildVendorSummary runs the vendor aggregation against q.
//
// Failures are logged and produce an empty table (no columns, no rows); they
// are never returned. Callers check Empty before going on.
func BuildVendorSummary(ctx context.Context, q Querier, logger *slog.Logger) *table.Table {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	t, err := buildVendorSummary(ctx, q)
	if err != nil {
		logger.Error("error creating vendor summary", "error", err)
		return table.New()
	}

	logger.Info("vendor summary created", "rows", t.Len())
	return t
}

func buildVendorSummary(ctx context.Context, q Querier) (*table.Table, error) {
	if err := checkUniquePrices(ctx, q); err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, vendorSummaryQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to run vendor aggregation: %w", err)
	}

	t, err := table.FromRows(rows.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read vendor aggregation: %w", err)
	}
	if !slices.Equal(t.Columns, aggregateColumns) {
		return nil, fmt.Errorf("unexpected aggregation columns %v", t.Columns)
	}
	return t, nil
}

// checkUniquePrices requires purchase_prices to hold one row per Brand.
func checkUniquePrices(ctx context.Context, q Querier) error {
	rows, err := q.Query(ctx, fmt.Sprintf(duplicateBrandsQuery, maxReportedBrands))
	if err != nil {
		return fmt.Errorf("failed to check purchase_prices: %w", err)
	}

	dups, err := table.FromRows(rows.Rows)
	if err != nil {
		return fmt.Errorf("failed to read purchase_prices check: %w", err)
	}
	if dups.Len() == 0 {
		return nil
	}

	perr := &AmbiguousPriceError{Total: dups.Len()}
	for _, row := range dups.Rows {
		perr.Brands = append(perr.Brands, fmt.Sprint(row[0]))
	}
	if total, err := table.ToFloat(dups.Rows[0][1]); err == nil {
		perr.Total = int(total)
	}
	return perr
}
