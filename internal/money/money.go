// Package money converts between paise (the ledger unit) and rupee strings
// (what PayU and Cashfree put on the wire). Conversions go through decimal
// so that "499.999" style float drift can never reach the ledger.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToPaise converts a major-unit amount ("500", "500.50") into paise.
// Amounts with sub-paise precision are rejected rather than rounded.
func ToPaise(major string) (int64, error) {
	d, err := decimal.NewFromString(major)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", major, err)
	}
	paise := d.Mul(hundred)
	if !paise.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-paise precision", major)
	}
	if paise.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", major)
	}
	return paise.IntPart(), nil
}

// ToRupees renders paise as a two-decimal major-unit string, e.g. 50000 ->
// "500.00". This is the format PayU hashes over, so it must be stable.
func ToRupees(paise int64) string {
	return decimal.NewFromInt(paise).Div(hundred).StringFixed(2)
}
