package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func boolPtr(v bool) *bool { return &v }

func requireMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	require.Truef(t, got.Equal(dec(want)), "%s: expected %s, got %s", field, want, got.String())
}

func requireInvariants(t *testing.T, totals CartTotals) {
	t.Helper()
	require.True(t, totals.SubtotalWithTax.Equal(totals.Subtotal.Add(totals.TaxAmount)), "subtotalWithTax must equal subtotal + tax")
	require.True(t, totals.Total.Equal(nonNegative(totals.SubtotalWithTax.Sub(totals.DiscountAmount))), "total must equal max(0, subtotalWithTax - discount)")
	for _, v := range []decimal.Decimal{totals.Subtotal, totals.SubtotalWithTax, totals.DiscountAmount, totals.TaxAmount, totals.Total} {
		require.True(t, v.Equal(v.Round(MoneyPlaces)), "value %s not rounded to cents", v)
		require.False(t, v.IsNegative(), "value %s negative", v)
	}
	require.True(t, totals.DiscountAmount.LessThanOrEqual(totals.SubtotalWithTax))
}

func TestComputeTotalsMixedTaxDirections(t *testing.T) {
	exclusive := uuid.New()
	inclusive := uuid.New()
	profiles := ProfileLookup{
		exclusive: {TaxRate: decPtr("10"), TaxIncluded: boolPtr(false)},
		inclusive: {TaxRate: decPtr("10"), TaxIncluded: boolPtr(true)},
	}
	lines := []CartLine{
		{ProductID: exclusive, Quantity: 1, UnitPrice: dec("100")},
		{ProductID: inclusive, Quantity: 1, UnitPrice: dec("110")},
	}
	policy := DefaultTaxPolicy()

	totals := ComputeTotals(lines, profiles, dec("10"), DiscountPercentage, &policy)

	requireMoney(t, "200.00", totals.Subtotal, "subtotal")
	requireMoney(t, "20.00", totals.TaxAmount, "tax")
	requireMoney(t, "220.00", totals.SubtotalWithTax, "subtotalWithTax")
	requireMoney(t, "22.00", totals.DiscountAmount, "discount")
	requireMoney(t, "198.00", totals.Total, "total")
	require.Equal(t, 2, totals.ItemCount)
	require.Len(t, totals.Lines, 2)
	require.False(t, totals.Lines[0].TaxIncluded)
	require.True(t, totals.Lines[1].TaxIncluded)
	requireMoney(t, "100.00", totals.Lines[1].Subtotal, "inclusive line subtotal")
	requireInvariants(t, totals)
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	policy := DefaultTaxPolicy()
	totals := ComputeTotals(nil, ProfileLookup{}, decimal.Zero, DiscountFixedAmount, &policy)

	for name, v := range map[string]decimal.Decimal{
		"subtotal":        totals.Subtotal,
		"subtotalWithTax": totals.SubtotalWithTax,
		"discount":        totals.DiscountAmount,
		"tax":             totals.TaxAmount,
		"total":           totals.Total,
	} {
		require.Truef(t, v.IsZero(), "%s expected zero, got %s", name, v)
	}
	require.Zero(t, totals.ItemCount)
	require.Empty(t, totals.Lines)
}

func TestComputeTotalsTaxDirectionDuality(t *testing.T) {
	id := uuid.New()
	price := dec("99.99")
	rate := dec("21")
	factor := one.Add(rate.Div(hundred))
	tolerance := dec("0.01")

	t.Run("inclusive", func(t *testing.T) {
		totals := ComputeTotals(
			[]CartLine{{ProductID: id, Quantity: 1, UnitPrice: price}},
			ProfileLookup{id: {TaxRate: &rate, TaxIncluded: boolPtr(true)}},
			decimal.Zero, DiscountPercentage, nil,
		)
		require.True(t, totals.Subtotal.Sub(price.Div(factor)).Abs().LessThanOrEqual(tolerance))
		requireMoney(t, "99.99", totals.SubtotalWithTax, "subtotalWithTax")
		requireInvariants(t, totals)
	})

	t.Run("exclusive", func(t *testing.T) {
		totals := ComputeTotals(
			[]CartLine{{ProductID: id, Quantity: 1, UnitPrice: price}},
			ProfileLookup{id: {TaxRate: &rate, TaxIncluded: boolPtr(false)}},
			decimal.Zero, DiscountPercentage, nil,
		)
		requireMoney(t, "99.99", totals.Subtotal, "subtotal")
		require.True(t, totals.SubtotalWithTax.Sub(price.Mul(factor)).Abs().LessThanOrEqual(tolerance))
		requireInvariants(t, totals)
	})
}

func TestComputeTotalsFallbacks(t *testing.T) {
	known := uuid.New()
	unknown := uuid.New()
	policy := TaxPolicy{TaxEnabled: true, DefaultTaxRatePercent: dec("11"), PricesIncludeTaxByDefault: true}
	lines := []CartLine{
		{ProductID: known, Quantity: 2, UnitPrice: dec("50")},
		{ProductID: unknown, Quantity: 1, UnitPrice: dec("111")},
	}
	profiles := ProfileLookup{known: {TaxIncluded: boolPtr(false)}}

	totals := ComputeTotals(lines, profiles, decimal.Zero, DiscountFixedAmount, &policy)

	// known: 100 exclusive at the policy rate of 11% -> tax 11
	// unknown: 111 inclusive at 11% -> net 100, tax 11
	requireMoney(t, "200.00", totals.Subtotal, "subtotal")
	requireMoney(t, "22.00", totals.TaxAmount, "tax")
	requireMoney(t, "222.00", totals.Total, "total")
	require.Equal(t, 3, totals.ItemCount)
	require.True(t, totals.Lines[0].TaxRatePercent.Equal(dec("11")))
	require.True(t, totals.Lines[1].TaxIncluded)
	requireInvariants(t, totals)
}

func TestComputeTotalsNonTaxable(t *testing.T) {
	exempt := uuid.New()
	regular := uuid.New()
	lines := []CartLine{
		{ProductID: exempt, Quantity: 3, UnitPrice: dec("10")},
		{ProductID: regular, Quantity: 1, UnitPrice: dec("10")},
	}

	t.Run("product exempt", func(t *testing.T) {
		totals := ComputeTotals(lines, ProfileLookup{exempt: {Taxable: boolPtr(false), TaxRate: decPtr("50")}}, decimal.Zero, DiscountPercentage, nil)
		requireMoney(t, "40.00", totals.Subtotal, "subtotal")
		requireMoney(t, "1.00", totals.TaxAmount, "tax")
		require.False(t, totals.Lines[0].Taxable)
		require.True(t, totals.Lines[0].TaxAmount.IsZero())
		requireInvariants(t, totals)
	})

	t.Run("tax disabled", func(t *testing.T) {
		policy := TaxPolicy{TaxEnabled: false, DefaultTaxRatePercent: dec("10"), PricesIncludeTaxByDefault: true}
		totals := ComputeTotals(lines, nil, decimal.Zero, DiscountPercentage, &policy)
		requireMoney(t, "40.00", totals.Subtotal, "subtotal")
		requireMoney(t, "40.00", totals.SubtotalWithTax, "subtotalWithTax")
		require.True(t, totals.TaxAmount.IsZero())
		requireInvariants(t, totals)
	})
}

func TestComputeTotalsDiscountClampsTotal(t *testing.T) {
	id := uuid.New()
	lines := []CartLine{{ProductID: id, Quantity: 1, UnitPrice: dec("10")}}

	totals := ComputeTotals(lines, nil, dec("500"), DiscountFixedAmount, nil)
	requireMoney(t, "11.00", totals.SubtotalWithTax, "subtotalWithTax")
	requireMoney(t, "11.00", totals.DiscountAmount, "discount")
	require.True(t, totals.Total.IsZero())
	requireInvariants(t, totals)

	totals = ComputeTotals(lines, nil, dec("11"), DiscountFixedAmount, nil)
	require.True(t, totals.Total.IsZero())
}

func TestComputeTotalsRoundsOnlyAggregates(t *testing.T) {
	id := uuid.New()
	// Rounding each 0.335 line first would give 1.02 instead of 1.01.
	lines := make([]CartLine, 0, 3)
	for i := 0; i < 3; i++ {
		lines = append(lines, CartLine{ProductID: id, Quantity: 1, UnitPrice: dec("0.335")})
	}
	totals := ComputeTotals(lines, nil, decimal.Zero, DiscountPercentage, nil)
	requireMoney(t, "1.01", totals.Subtotal, "subtotal")
	requireMoney(t, "1.11", totals.SubtotalWithTax, "subtotalWithTax")
	requireInvariants(t, totals)
}

func TestComputeTotalsIgnoresInvalidLines(t *testing.T) {
	lines := []CartLine{
		{ProductID: uuid.New(), Quantity: 0, UnitPrice: dec("100")},
		{ProductID: uuid.New(), Quantity: -2, UnitPrice: dec("100")},
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: dec("-5")},
	}
	totals := ComputeTotals(lines, nil, dec("10"), DiscountPercentage, nil)
	require.Equal(t, 1, totals.ItemCount)
	require.True(t, totals.Total.IsZero())
	requireInvariants(t, totals)
}

func TestComputeTotalsDeterministic(t *testing.T) {
	id := uuid.New()
	lines := []CartLine{{ProductID: id, Quantity: 7, UnitPrice: dec("13.37")}}
	profiles := ProfileLookup{id: {TaxRate: decPtr("7.5"), TaxIncluded: boolPtr(true)}}
	discounts := []DiscountSpec{{Kind: DiscountPercentage, Value: dec("12.5")}, {Kind: DiscountFixedAmount, Value: dec("3")}}

	first := ComputeTotalsWithDiscounts(lines, profiles, discounts, nil)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, ComputeTotalsWithDiscounts(lines, profiles, discounts, nil))
	}
	requireInvariants(t, first)
	require.Equal(t, CartLine{ProductID: id, Quantity: 7, UnitPrice: dec("13.37")}, lines[0])
}
