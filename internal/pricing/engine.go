package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTaxRatePercent is applied when neither the product nor the store policy carries a rate.
// It models a 10% VAT regime and is only reached when no TaxPolicy is supplied at all.
var DefaultTaxRatePercent = decimal.NewFromInt(10)

// CartLine describes a single cart row as entered by the cashier.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineTotal returns UnitPrice × Quantity before any tax decomposition.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ProductTaxProfile carries optional per-product overrides. A nil field falls back to the TaxPolicy.
type ProductTaxProfile struct {
	TaxRate     *decimal.Decimal `json:"taxRate,omitempty"`
	TaxIncluded *bool            `json:"taxIncluded,omitempty"`
	Taxable     *bool            `json:"taxable,omitempty"`
}

// ProfileLookup maps product identifiers to their tax profile. Missing keys use global defaults.
type ProfileLookup map[uuid.UUID]ProductTaxProfile

// TaxPolicy is the store level tax configuration.
type TaxPolicy struct {
	TaxEnabled                bool
	DefaultTaxRatePercent     decimal.Decimal
	PricesIncludeTaxByDefault bool
}

// DefaultTaxPolicy is used when the caller passes a nil policy: tax enabled, 10%, tax-exclusive prices.
func DefaultTaxPolicy() TaxPolicy {
	return TaxPolicy{
		TaxEnabled:                true,
		DefaultTaxRatePercent:     DefaultTaxRatePercent,
		PricesIncludeTaxByDefault: false,
	}
}

// LineBreakdown reports how a single line was decomposed. Monetary fields are rounded for display.
type LineBreakdown struct {
	ProductID       uuid.UUID
	Quantity        int
	Taxable         bool
	TaxIncluded     bool
	TaxRatePercent  decimal.Decimal
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	SubtotalWithTax decimal.Decimal
}

// CartTotals aggregates computed pricing components. It is recomputed on every call.
type CartTotals struct {
	Subtotal        decimal.Decimal
	SubtotalWithTax decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal
	ItemCount       int
	Lines           []LineBreakdown
}

// ComputeTotals prices the cart with a single discount.
func ComputeTotals(lines []CartLine, profiles ProfileLookup, discountValue decimal.Decimal, kind DiscountKind, policy *TaxPolicy) CartTotals {
	return ComputeTotalsWithDiscounts(lines, profiles, []DiscountSpec{{Kind: kind, Value: discountValue}}, policy)
}

// ComputeTotalsWithDiscounts prices the cart and applies discounts sequentially on the
// tax-inclusive subtotal. It never fails: missing profiles and a nil policy fall back to defaults.
func ComputeTotalsWithDiscounts(lines []CartLine, profiles ProfileLookup, discounts []DiscountSpec, policy *TaxPolicy) CartTotals {
	effective := DefaultTaxPolicy()
	if policy != nil {
		effective = *policy
	}

	var (
		subtotal  = decimal.Zero
		withTax   = decimal.Zero
		itemCount int
		breakdown = make([]LineBreakdown, 0, len(lines))
	)
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if line.UnitPrice.IsNegative() {
			line.UnitPrice = decimal.Zero
		}
		lb := decompose(line, profiles[line.ProductID], effective)
		subtotal = subtotal.Add(lb.Subtotal)
		withTax = withTax.Add(lb.SubtotalWithTax)
		itemCount += line.Quantity

		lb.Subtotal = RoundMoney(lb.Subtotal)
		lb.TaxAmount = RoundMoney(lb.TaxAmount)
		lb.SubtotalWithTax = RoundMoney(lb.SubtotalWithTax)
		breakdown = append(breakdown, lb)
	}

	roundedSubtotal := RoundMoney(subtotal)
	roundedWithTax := RoundMoney(withTax)
	discount := RoundMoney(ComposeDiscounts(roundedWithTax, discounts))

	return CartTotals{
		Subtotal:        roundedSubtotal,
		SubtotalWithTax: roundedWithTax,
		TaxAmount:       roundedWithTax.Sub(roundedSubtotal),
		DiscountAmount:  discount,
		Total:           nonNegative(roundedWithTax.Sub(discount)),
		ItemCount:       itemCount,
		Lines:           breakdown,
	}
}

// decompose splits one line into its pre-tax and tax parts without rounding.
func decompose(line CartLine, profile ProductTaxProfile, policy TaxPolicy) LineBreakdown {
	amount := line.LineTotal()
	lb := LineBreakdown{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Taxable:   true,
		TaxAmount: decimal.Zero,
	}
	if profile.Taxable != nil {
		lb.Taxable = *profile.Taxable
	}
	lb.TaxRatePercent = policy.DefaultTaxRatePercent
	if profile.TaxRate != nil {
		lb.TaxRatePercent = *profile.TaxRate
	}
	lb.TaxRatePercent = clamp(lb.TaxRatePercent, decimal.Zero, hundred)
	lb.TaxIncluded = policy.PricesIncludeTaxByDefault
	if profile.TaxIncluded != nil {
		lb.TaxIncluded = *profile.TaxIncluded
	}

	if !policy.TaxEnabled || !lb.Taxable {
		lb.Taxable = false
		lb.Subtotal = amount
		lb.SubtotalWithTax = amount
		return lb
	}

	if lb.TaxIncluded {
		// The listed price already contains tax, so the net part is extracted by division.
		lb.SubtotalWithTax = amount
		lb.Subtotal = amount.Div(one.Add(lb.TaxRatePercent.Div(hundred)))
		lb.TaxAmount = lb.SubtotalWithTax.Sub(lb.Subtotal)
		return lb
	}
	lb.Subtotal = amount
	lb.TaxAmount = amount.Mul(lb.TaxRatePercent).Div(hundred)
	lb.SubtotalWithTax = amount.Add(lb.TaxAmount)
	return lb
}
