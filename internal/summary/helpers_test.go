package summary

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vendorsummary/pkg/table"
)

// num reads a numeric cell of the row matching vendor and brand.
func num(t *testing.T, tbl *table.Table, vendor int64, brand, col string) float64 {
	t.Helper()
	row := findRow(t, tbl, vendor, brand)
	v, err := tbl.Get(row, col)
	require.NoError(t, err)
	require.NotNil(t, v, "%s is null for vendor %d brand %s", col, vendor, brand)
	f, err := table.ToFloat(v)
	require.NoError(t, err)
	return f
}

func findRow(t *testing.T, tbl *table.Table, vendor int64, brand string) int {
	t.Helper()
	found := -1
	for i := range tbl.Rows {
		v, _ := tbl.Get(i, "VendorNumber")
		b, _ := tbl.Get(i, "Brand")
		f, err := table.ToFloat(v)
		if err == nil && int64(f) == vendor && fmt.Sprint(b) == brand {
			require.Equal(t, -1, found, "vendor %d brand %s appears more than once", vendor, brand)
			found = i
		}
	}
	require.NotEqual(t, -1, found, "vendor %d brand %s not found", vendor, brand)
	return found
}

// pairs lists the (VendorNumber, Brand) keys of a table in row order.
func pairs(t *testing.T, tbl *table.Table) []string {
	t.Helper()
	out := make([]string, tbl.Len())
	for i := range tbl.Rows {
		v, err := tbl.Get(i, "VendorNumber")
		require.NoError(t, err)
		b, err := tbl.Get(i, "Brand")
		require.NoError(t, err)
		out[i] = fmt.Sprintf("%v/%v", v, b)
	}
	return out
}
