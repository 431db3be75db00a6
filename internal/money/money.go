// Package money formats and computes integer cent amounts.
package money

import "github.com/shopspring/decimal"

// Format renders cents as a dollar string, e.g. 7500 -> "$75.00".
func Format(cents int64) string {
	d := decimal.New(cents, -2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Percent returns round_half_up(cents * pct / 100) for non-negative inputs.
func Percent(cents int64, pct float64) int64 {
	return decimal.NewFromInt(cents).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// FromFloat rounds a cent value held as a float to whole cents, half up.
func FromFloat(cents float64) int64 {
	return decimal.NewFromFloat(cents).Round(0).IntPart()
}
