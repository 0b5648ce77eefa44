// Package money provides fixed-point decimal arithmetic and timezone-correct
// day arithmetic for the repayment engine. All financial amounts flow through
// decimal values; rounding to the minor unit happens only at the explicit
// points defined by the schedule and accrual algorithms, never mid-calculation.
package money

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of minor-unit decimal places amounts are rounded to.
const Scale = 2

// Zero is the zero amount.
var Zero = decimal.Zero

// RoundCents rounds an amount to the minor unit using half-up rounding.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// IsPositive reports whether the amount is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}

// ClampNonNegative returns the amount, or zero if it is negative.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}

// Min returns the smaller of two amounts.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Sum adds a list of amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MustParse parses a decimal string and panics on malformed input. It is
// intended for configuration values validated at startup and for test
// fixtures, not for request data.
func MustParse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("money: invalid decimal " + s + ": " + err.Error())
	}
	return d
}
