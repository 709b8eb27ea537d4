package summary

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySummary is returned by Run when the aggregation produced no table,
// so nothing was cleaned or written.
var ErrEmptySummary = errors.New("vendor summary is empty")

// CoercionError reports a cell that could not be read as a number.
type CoercionError struct {
	Column string
	Row    int
	Value  any
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot convert %s value %q at row %d to float: %v", e.Column, fmt.Sprint(e.Value), e.Row, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// AmbiguousPriceError is returned when purchase_prices holds more than one
// row for a Brand. Brands lists at most maxReportedBrands of them.
type AmbiguousPriceError struct {
	Brands []string
	Total  int
}

func (e *AmbiguousPriceError) Error() string {
	msg := fmt.Sprintf("purchase_prices has multiple rows for %d brand(s): %s", e.Total, strings.Join(e.Brands, ", "))
	if e.Total > len(e.Brands) {
		msg += fmt.Sprintf(" (and %d more)", e.Total-len(e.Brands))
	}
	return msg + "\nHint: purchase_prices must hold exactly one Volume and Price per Brand"
}
