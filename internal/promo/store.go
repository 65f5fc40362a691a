package promo

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/pos-pricing/internal/cache"
	"github.com/noah-isme/pos-pricing/internal/pricing"
)

// Store persists promotion rules as JSON documents keyed by normalised code.
type Store struct {
	Cache *cache.Cache
}

// Get loads a rule by code.
func (s Store) Get(ctx context.Context, code string) (Rule, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Rule{}, ErrNotFound
	}
	var rule Rule
	found, err := s.Cache.GetJSON(ctx, cache.KeyPromotion(code), &rule)
	if err != nil {
		return Rule{}, fmt.Errorf("load promotion %s: %w", code, err)
	}
	if !found {
		return Rule{}, ErrNotFound
	}
	return rule, nil
}

// Lookup loads every known code, skipping codes that do not exist.
func (s Store) Lookup(ctx context.Context, codes []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(codes))
	for _, code := range codes {
		rule, err := s.Get(ctx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Put stores or replaces a rule.
func (s Store) Put(ctx context.Context, rule Rule) error {
	rule.Code = NormalizeCode(rule.Code)
	if rule.Code == "" {
		return errors.New("promotion code required")
	}
	kind, ok := pricing.ParseDiscountKind(string(rule.Kind))
	if !ok {
		return fmt.Errorf("promotion %s: unknown kind %q", rule.Code, rule.Kind)
	}
	rule.Kind = kind
	if !pricing.IsFinite(rule.Value) || !pricing.IsFinite(rule.MinSpend) {
		return fmt.Errorf("promotion %s: amount out of range", rule.Code)
	}
	return s.Cache.SetJSON(ctx, cache.KeyPromotion(rule.Code), rule)
}
