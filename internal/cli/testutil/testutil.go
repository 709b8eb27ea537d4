// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/vendorsummary/internal/cli/output"
)

// rawData holds the CSV files of a small project: two vendors, three brands,
// one purchase with a zero price that the summary excludes.
var rawData = map[string]string{
	"purchases.csv": `VendorNumber,VendorName,Brand,Description,PurchasePrice,Quantity,Dollars
1,Acme Spirits ,58,Gin,5.00,10,50.00
1,Acme Spirits ,62,Rum,2.50,4,10.00
2,Globex,70,Sample,0,3,0
`,
	"purchase_prices.csv": `Brand,Volume,Price
58,750,12.99
62,1000,4.50
70,375,9.00
`,
	"sales.csv": `VendorNo,Brand,SalesQuantity,SalesDollars,SalesPrice,ExciseTax
1,58,8,100.00,12.50,1.50
1,58,2,20.00,10.00,0.50
`,
	"vendor_invoice.csv": `VendorNumber,Freight
1,3.00
1,1.50
2,9.00
`,
}

// SetupTestProject creates a temporary project with a config file and a data
// directory holding the four raw CSV files. The store and the run ledger are
// files inside the project.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		t.Fatalf("failed to create directory %s: %v", dataDir, err)
	}

	for name, content := range rawData {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	cfg := `data_dir: data
state_path: .vendorsummary/state.db
target:
  type: duckdb
  database: inventory.duckdb
log:
  file: log/vendorsummary.log
  level: debug
`
	if err := os.WriteFile(filepath.Join(tmpDir, "vendorsummary.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to create vendorsummary.yaml: %v", err)
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
