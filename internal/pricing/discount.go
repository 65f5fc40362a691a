package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountKind identifies how a discount value is interpreted.
type DiscountKind string

const (
	// DiscountPercentage interprets the value as 0-100 percent of the remaining balance.
	DiscountPercentage DiscountKind = "PERCENTAGE"
	// DiscountFixedAmount interprets the value as an absolute currency amount.
	DiscountFixedAmount DiscountKind = "FIXED_AMOUNT"
)

// ParseDiscountKind maps user facing spellings onto a DiscountKind.
func ParseDiscountKind(value string) (DiscountKind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "percentage", "percent", "pct":
		return DiscountPercentage, true
	case "fixed_amount", "fixed", "amount":
		return DiscountFixedAmount, true
	default:
		return "", false
	}
}

// DiscountSpec is one step of a discount sequence.
type DiscountSpec struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// ComposeDiscounts returns the total discount produced by applying discounts in order.
func ComposeDiscounts(base decimal.Decimal, discounts []DiscountSpec) decimal.Decimal {
	total := decimal.Zero
	for _, step := range ComposeDiscountSteps(base, discounts) {
		total = total.Add(step)
	}
	return total
}

// ComposeDiscountSteps returns the amount taken by each discount. Every step is computed
// against the balance left by the previous ones, so 10% then 10% removes 19% overall.
func ComposeDiscountSteps(base decimal.Decimal, discounts []DiscountSpec) []decimal.Decimal {
	steps := make([]decimal.Decimal, len(discounts))
	remaining := nonNegative(base)
	for i, d := range discounts {
		step := decimal.Zero
		switch d.Kind {
		case DiscountPercentage:
			step = remaining.Mul(clamp(d.Value, decimal.Zero, hundred)).Div(hundred)
		case DiscountFixedAmount:
			step = clamp(d.Value, decimal.Zero, remaining)
		}
		steps[i] = step
		remaining = nonNegative(remaining.Sub(step))
	}
	return steps
}
