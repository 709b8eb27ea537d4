package summary

import (
	"fmt"
	"math"
	"strings"

	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

// Derived columns appended by Clean, in order.
var derivedColumns = []string{"GrossProfit", "ProfitMargin", "StockTurnover", "SalestoPurchaseRatio"}

var cleanInputColumns = []string{
	"VendorName", "Description", "Volume",
	"TotalPurchaseQuantity", "TotalPurchaseDollars", "TotalSalesQuantity", "TotalSalesDollar",
}

// measureColumns are the aggregated numeric columns. They are stored as DOUBLE
// whatever types the source tables had.
var measureColumns = []string{
	"ActualPrice", "PurchasePrice", "Volume",
	"TotalPurchaseQuantity", "TotalPurchaseDollars", "TotalSalesQuantity", "TotalSalesDollar",
	"TotalSalesPrice", "TotalExciseTax", "FreightCost",
}

// Clean normalizes an aggregated summary and appends the derived metrics.
//
// Measures become float64 with missing values as 0, other missing cells become
// 0, VendorName and Description are trimmed, and GrossProfit, ProfitMargin,
// StockTurnover and SalestoPurchaseRatio are computed. A ratio with a zero
// denominator is NaN. Measures and derived metrics are typed DOUBLE; the other
// columns keep the type the aggregation reported. Rows are never dropped or
// reordered. The input table is not modified.
//
// A table without columns is returned as is.
func Clean(t *table.Table) (*table.Table, error) {
	if t.Empty() {
		return t, nil
	}
	for _, col := range cleanInputColumns {
		if !t.Has(col) {
			return nil, fmt.Errorf("summary is missing column %q", col)
		}
	}

	out := t.Clone()

	if err := coerceFloat(out, "Volume"); err != nil {
		return nil, err
	}
	for _, col := range measureColumns {
		if !out.Has(col) {
			continue
		}
		if err := coerceFloat(out, col); err != nil {
			return nil, err
		}
		if err := out.SetType(col, table.TypeDouble); err != nil {
			return nil, err
		}
	}
	fillMissing(out)
	trimText(out, "VendorName")
	trimText(out, "Description")

	if err := derive(out); err != nil {
		return nil, err
	}
	for _, col := range derivedColumns {
		if err := out.SetType(col, table.TypeDouble); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// coerceFloat converts every cell of col to float64, missing cells to 0.
func coerceFloat(t *table.Table, col string) error {
	idx := t.Index(col)
	for i, row := range t.Rows {
		if row[idx] == nil {
			row[idx] = float64(0)
			continue
		}
		f, err := table.ToFloat(row[idx])
		if err != nil {
			return &CoercionError{Column: col, Row: i, Value: row[idx], Err: err}
		}
		row[idx] = f
	}
	return nil
}

// fillMissing replaces the remaining nil cells with int64 zero. Measures are
// already filled by coerceFloat.
func fillMissing(t *table.Table) {
	for c := range t.Columns {
		for _, row := range t.Rows {
			if row[c] == nil {
				row[c] = int64(0)
			}
		}
	}
}

func trimText(t *table.Table, col string) {
	idx := t.Index(col)
	for _, row := range t.Rows {
		if s, ok := row[idx].(string); ok {
			row[idx] = strings.TrimSpace(s)
		}
	}
}

func derive(t *table.Table) error {
	n := t.Len()
	gross := make([]any, n)
	margin := make([]any, n)
	turnover := make([]any, n)
	ratio := make([]any, n)

	for i := range t.Rows {
		v, err := numbers(t, i, "TotalSalesDollar", "TotalPurchaseDollars", "TotalSalesQuantity", "TotalPurchaseQuantity")
		if err != nil {
			return err
		}
		salesDollars, purchaseDollars, salesQty, purchaseQty := v[0], v[1], v[2], v[3]

		gp := salesDollars - purchaseDollars
		gross[i] = gp
		margin[i] = divide(gp, salesDollars) * 100
		turnover[i] = divide(salesQty, purchaseQty) * 100
		ratio[i] = divide(salesDollars, purchaseDollars)
	}

	for i, values := range [][]any{gross, margin, turnover, ratio} {
		if err := t.AddColumn(derivedColumns[i], values); err != nil {
			return err
		}
	}
	return nil
}

func numbers(t *table.Table, row int, cols ...string) ([]float64, error) {
	out := make([]float64, len(cols))
	for i, col := range cols {
		v, err := t.Get(row, col)
		if err != nil {
			return nil, err
		}
		f, err := table.ToFloat(v)
		if err != nil {
			return nil, &CoercionError{Column: col, Row: row, Value: v, Err: err}
		}
		out[i] = f
	}
	return out, nil
}

// divide returns NaN for any zero denominator, 0/0 included.
func divide(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
