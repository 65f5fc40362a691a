package promo

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-pricing/internal/pricing"
)

var (
	// ErrNotActive is returned when a promotion is evaluated before its window opens.
	ErrNotActive = errors.New("promotion not active")
	// ErrExpired is returned when the promotion window has already closed.
	ErrExpired = errors.New("promotion expired")
	// ErrMinimumSpendUnmet indicates the tax-inclusive subtotal did not meet the promotion requirement.
	ErrMinimumSpendUnmet = errors.New("promotion minimum spend not met")
	// ErrNotFound is returned by stores when no promotion exists for a code.
	ErrNotFound = errors.New("promotion not found")
)

// Rule captures the runtime constraints of a promotion.
type Rule struct {
	Code       string               `json:"code"`
	Kind       pricing.DiscountKind `json:"kind"`
	Value      decimal.Decimal      `json:"value"`
	MinSpend   decimal.Decimal      `json:"minSpend"`
	ValidFrom  *time.Time           `json:"validFrom,omitempty"`
	ValidTo    *time.Time           `json:"validTo,omitempty"`
	Combinable bool                 `json:"combinable"`
	Priority   int                  `json:"priority"`
}

// NormalizeCode canonicalises promotion codes for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate ensures the rule can be applied at the provided instant against the given base.
func (r Rule) Validate(now time.Time, base decimal.Decimal) error {
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrNotActive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrExpired
	}
	if base.LessThan(r.MinSpend) {
		return ErrMinimumSpendUnmet
	}
	return nil
}

// Spec converts the rule into a composer step.
func (r Rule) Spec() pricing.DiscountSpec {
	return pricing.DiscountSpec{Kind: r.Kind, Value: r.Value}
}

// Resolve picks the promotions that apply and returns them in application order.
// A non-combinable best rule is applied alone; otherwise combinable rules stack up to maxStack.
func Resolve(rules []Rule, now time.Time, base decimal.Decimal, maxStack int) ([]Rule, []pricing.DiscountSpec) {
	eligible := make([]Rule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		code := NormalizeCode(r.Code)
		if _, dup := seen[code]; dup {
			continue
		}
		if err := r.Validate(now, base); err != nil {
			continue
		}
		seen[code] = struct{}{}
		eligible = append(eligible, r)
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return NormalizeCode(eligible[i].Code) < NormalizeCode(eligible[j].Code)
	})

	var applied []Rule
	if !eligible[0].Combinable {
		applied = eligible[:1]
	} else {
		for _, r := range eligible {
			if !r.Combinable {
				continue
			}
			if maxStack > 0 && len(applied) >= maxStack {
				break
			}
			applied = append(applied, r)
		}
	}

	specs := make([]pricing.DiscountSpec, 0, len(applied))
	for _, r := range applied {
		specs = append(specs, r.Spec())
	}
	return applied, specs
}
