package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places every monetary output is rounded to.
const MoneyPlaces = 2

// Decimal exponents of the largest and smallest non-zero float64 magnitudes.
const (
	maxFiniteExponent = 308
	minFiniteExponent = -324
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)

	maxFinite = decimal.NewFromFloat(math.MaxFloat64)
)

// IsFinite reports whether v lies within float64 range. Larger magnitudes stand for
// infinity in untrusted input. Only the exponent and digit count are inspected, so
// the check stays cheap for values like 1e99999999 whose arithmetic would not be.
func IsFinite(v decimal.Decimal) bool {
	if v.IsZero() {
		return true
	}
	magnitude := int64(v.Exponent()) + int64(v.NumDigits()) - 1
	switch {
	case magnitude > maxFiniteExponent:
		return false
	case magnitude < maxFiniteExponent:
		return true
	}
	return !v.Abs().GreaterThan(maxFinite)
}

// finiteOrZero maps infinite magnitudes to zero and flushes values below the
// smallest float64 to zero, as a float64 parse would.
func finiteOrZero(v decimal.Decimal) decimal.Decimal {
	if v.IsZero() || !IsFinite(v) {
		return decimal.Zero
	}
	if int64(v.Exponent())+int64(v.NumDigits())-1 < minFiniteExponent {
		return decimal.Zero
	}
	return v
}

// RoundMoney rounds v to MoneyPlaces using half away from zero.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(MoneyPlaces)
}

// FormatMoney renders v as a fixed two-decimal string, e.g. "198.00".
func FormatMoney(v decimal.Decimal) string {
	return v.StringFixed(MoneyPlaces)
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
