package quote

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-pricing/internal/pricing"
)

// LineInput is one cart row in a quote request.
type LineInput struct {
	ProductID string          `json:"productId" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// DiscountInput carries a discount exactly as the client sent it. Value is normalised
// before validation, so numbers and numeric strings are both accepted.
type DiscountInput struct {
	Kind  string `json:"kind" validate:"required,discountkind"`
	Value any    `json:"value"`
}

// Request is the body of POST /pricing/quote.
type Request struct {
	Lines      []LineInput     `json:"lines" validate:"required,min=1,dive"`
	Discount   *DiscountInput  `json:"discount"`
	Discounts  []DiscountInput `json:"discounts" validate:"max=10,dive"`
	PromoCodes []string        `json:"promoCodes" validate:"max=10,dive,required,max=64"`
}

// LineResult is the per-line tax decomposition returned to the client.
type LineResult struct {
	ProductID       string `json:"productId"`
	Quantity        int    `json:"quantity"`
	Taxable         bool   `json:"taxable"`
	TaxIncluded     bool   `json:"taxIncluded"`
	TaxRatePercent  string `json:"taxRatePercent"`
	Subtotal        string `json:"subtotal"`
	TaxAmount       string `json:"taxAmount"`
	SubtotalWithTax string `json:"subtotalWithTax"`
}

// Step reports what a single discount removed from the remaining balance.
type Step struct {
	Source string               `json:"source"`
	Code   string               `json:"code,omitempty"`
	Kind   pricing.DiscountKind `json:"kind"`
	Value  string               `json:"value"`
	Amount string               `json:"amount"`
}

// Step sources.
const (
	SourcePromotion = "promotion"
	SourceDiscount  = "discount"
	SourceManual    = "manual"
)

// Result is the priced cart. Money fields are fixed two-decimal strings.
type Result struct {
	Subtotal          string       `json:"subtotal"`
	SubtotalWithTax   string       `json:"subtotalWithTax"`
	DiscountAmount    string       `json:"discountAmount"`
	TaxAmount         string       `json:"taxAmount"`
	Total             string       `json:"total"`
	ItemCount         int          `json:"itemCount"`
	Lines             []LineResult `json:"lines"`
	DiscountSteps     []Step       `json:"discountSteps"`
	Promotions        []string     `json:"promotions"`
	IgnoredPromoCodes []string     `json:"ignoredPromoCodes,omitempty"`
}

// CheckRequest is the body of POST /pricing/discounts/validate.
type CheckRequest struct {
	Kind          string `json:"kind" validate:"required,discountkind"`
	Value         any    `json:"value"`
	TaxedSubtotal any    `json:"taxedSubtotal"`
}

// CheckResult reports whether a discount would be accepted.
type CheckResult struct {
	Valid           bool     `json:"valid"`
	NormalizedValue string   `json:"normalizedValue"`
	Violations      []string `json:"violations"`
}

func newResult(totals pricing.CartTotals) Result {
	lines := make([]LineResult, 0, len(totals.Lines))
	for _, l := range totals.Lines {
		lines = append(lines, LineResult{
			ProductID:       l.ProductID.String(),
			Quantity:        l.Quantity,
			Taxable:         l.Taxable,
			TaxIncluded:     l.TaxIncluded,
			TaxRatePercent:  l.TaxRatePercent.String(),
			Subtotal:        pricing.FormatMoney(l.Subtotal),
			TaxAmount:       pricing.FormatMoney(l.TaxAmount),
			SubtotalWithTax: pricing.FormatMoney(l.SubtotalWithTax),
		})
	}
	return Result{
		Subtotal:        pricing.FormatMoney(totals.Subtotal),
		SubtotalWithTax: pricing.FormatMoney(totals.SubtotalWithTax),
		DiscountAmount:  pricing.FormatMoney(totals.DiscountAmount),
		TaxAmount:       pricing.FormatMoney(totals.TaxAmount),
		Total:           pricing.FormatMoney(totals.Total),
		ItemCount:       totals.ItemCount,
		Lines:           lines,
		DiscountSteps:   []Step{},
		Promotions:      []string{},
	}
}
