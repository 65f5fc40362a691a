package pricing

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrDiscountNegative is reported for discounts below zero.
	ErrDiscountNegative = errors.New("discount must be a positive number")
	// ErrPercentageTooLarge is reported for percentage discounts above 100.
	ErrPercentageTooLarge = errors.New("percentage discount cannot exceed 100%")
	// ErrFixedExceedsSubtotal is reported for fixed discounts larger than the tax-inclusive subtotal.
	ErrFixedExceedsSubtotal = errors.New("fixed discount cannot exceed the tax-inclusive subtotal")
)

// NormalizeDiscountInput coerces untrusted input into a finite decimal. Anything that is
// not a finite number, including empty strings and magnitudes beyond float64 range such
// as "1e400", becomes zero.
func NormalizeDiscountInput(raw any) decimal.Decimal {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return finiteOrZero(v)
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero
		}
		return finiteOrZero(*v)
	case bool:
		if v {
			return one
		}
		return decimal.Zero
	case int:
		return decimal.NewFromInt(int64(v))
	case int8:
		return decimal.NewFromInt(int64(v))
	case int16:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return fromUint(uint64(v))
	case uint8:
		return decimal.NewFromInt(int64(v))
	case uint16:
		return decimal.NewFromInt(int64(v))
	case uint32:
		return decimal.NewFromInt(int64(v))
	case uint64:
		return fromUint(v)
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case json.Number:
		return fromString(v.String())
	case string:
		return fromString(v)
	default:
		return decimal.Zero
	}
}

func fromUint(u uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func fromString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return finiteOrZero(d)
}

// DiscountViolations checks every rule and joins the failures. It returns nil when the
// discount may be handed to the composer.
func DiscountViolations(value decimal.Decimal, kind DiscountKind, taxedSubtotal decimal.Decimal) error {
	var errs []error
	if value.IsNegative() {
		errs = append(errs, ErrDiscountNegative)
	}
	if kind == DiscountPercentage && value.GreaterThan(hundred) {
		errs = append(errs, ErrPercentageTooLarge)
	}
	if kind == DiscountFixedAmount && value.GreaterThan(taxedSubtotal) {
		errs = append(errs, ErrFixedExceedsSubtotal)
	}
	return errors.Join(errs...)
}

// ValidateDiscount returns human readable violations. An empty slice means the discount is valid.
func ValidateDiscount(value decimal.Decimal, kind DiscountKind, taxedSubtotal decimal.Decimal) []string {
	err := DiscountViolations(value, kind, taxedSubtotal)
	if err == nil {
		return []string{}
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	parts := joined.Unwrap()
	out := make([]string, 0, len(parts))
	for _, e := range parts {
		out = append(out, e.Error())
	}
	return out
}

// IsValidDiscount reports whether ValidateDiscount finds no violations.
func IsValidDiscount(value decimal.Decimal, kind DiscountKind, taxedSubtotal decimal.Decimal) bool {
	return DiscountViolations(value, kind, taxedSubtotal) == nil
}
