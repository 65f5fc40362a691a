package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/pos-pricing/internal/catalog"
	"github.com/noah-isme/pos-pricing/internal/common"
	"github.com/noah-isme/pos-pricing/internal/obs"
	"github.com/noah-isme/pos-pricing/internal/pricing"
	"github.com/noah-isme/pos-pricing/internal/promo"
)

// DefaultMaxLines bounds a quote when Service.MaxLines is unset.
const DefaultMaxLines = 500

// PromoLookup resolves promotion codes into rules. Unknown codes are skipped.
type PromoLookup interface {
	Lookup(ctx context.Context, codes []string) ([]promo.Rule, error)
}

// Service prices carts on behalf of the HTTP handlers.
type Service struct {
	Profiles catalog.ProfileSource
	Promos   PromoLookup
	Policy   pricing.TaxPolicy
	MaxStack int
	MaxLines int
	Metrics  *obs.PricingMetrics
	Logger   zerolog.Logger
	Now      func() time.Time
}

type plannedStep struct {
	source string
	code   string
	spec   pricing.DiscountSpec
}

// Quote validates the request, resolves tax profiles and promotions, and prices the cart.
// Discounts apply in order: promotions, then the discounts list, then the manual discount.
func (s *Service) Quote(ctx context.Context, req Request) (res Result, err error) {
	ctx, span := obs.Tracer("quote").Start(ctx, "Service.Quote")
	start := time.Now()
	outcome := "ok"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("pricing.result", outcome))
		span.End()
		if s.Metrics != nil {
			s.Metrics.QuotesTotal.WithLabelValues(outcome).Inc()
			s.Metrics.QuoteDuration.Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	lines, err := s.parseRequest(req)
	if err != nil {
		outcome = "invalid_request"
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("pricing.lines", len(lines)))

	profiles := s.lookupProfiles(ctx, lines)
	base := pricing.ComputeTotalsWithDiscounts(lines, profiles, nil, &s.Policy).SubtotalWithTax

	requested, err := s.requestedDiscounts(req, base)
	if err != nil {
		outcome = "invalid_discount"
		return Result{}, err
	}

	applied, ignored := s.resolvePromotions(ctx, req.PromoCodes, base)
	steps := append(applied, requested...)
	specs := make([]pricing.DiscountSpec, 0, len(steps))
	for _, st := range steps {
		specs = append(specs, st.spec)
	}

	totals := pricing.ComputeTotalsWithDiscounts(lines, profiles, specs, &s.Policy)
	res = newResult(totals)
	for i, amount := range pricing.ComposeDiscountSteps(totals.SubtotalWithTax, specs) {
		st := steps[i]
		res.DiscountSteps = append(res.DiscountSteps, Step{
			Source: st.source,
			Code:   st.code,
			Kind:   st.spec.Kind,
			Value:  st.spec.Value.String(),
			Amount: pricing.FormatMoney(pricing.RoundMoney(amount)),
		})
		if st.source == SourcePromotion {
			res.Promotions = append(res.Promotions, st.code)
		}
	}
	res.IgnoredPromoCodes = ignored

	s.Logger.Debug().
		Int("lines", len(lines)).
		Str("subtotal_with_tax", res.SubtotalWithTax).
		Str("discount", res.DiscountAmount).
		Str("total", res.Total).
		Msg("cart priced")
	return res, nil
}

// CheckDiscount runs the discount rules against a tax-inclusive subtotal without pricing a cart.
func (s *Service) CheckDiscount(req CheckRequest) (CheckResult, error) {
	if err := validate.Struct(req); err != nil {
		return CheckResult{}, common.BadRequest("VALIDATION_ERROR", "invalid discount payload", err).WithDetails(fieldErrors(err))
	}
	kind, _ := pricing.ParseDiscountKind(req.Kind)
	value := pricing.NormalizeDiscountInput(req.Value)
	subtotal := pricing.NormalizeDiscountInput(req.TaxedSubtotal)
	violations := pricing.ValidateDiscount(value, kind, subtotal)
	if len(violations) > 0 && s.Metrics != nil {
		s.Metrics.DiscountRejections.WithLabelValues(string(kind)).Inc()
	}
	return CheckResult{
		Valid:           len(violations) == 0,
		NormalizedValue: value.String(),
		Violations:      violations,
	}, nil
}

func (s *Service) parseRequest(req Request) ([]pricing.CartLine, error) {
	maxLines := s.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	if len(req.Lines) > maxLines {
		return nil, common.BadRequest("TOO_MANY_LINES", fmt.Sprintf("a quote may contain at most %d lines", maxLines), nil)
	}
	if err := validate.Struct(req); err != nil {
		return nil, common.BadRequest("VALIDATION_ERROR", "invalid quote payload", err).WithDetails(fieldErrors(err))
	}

	lines := make([]pricing.CartLine, 0, len(req.Lines))
	var problems []string
	for i, in := range req.Lines {
		id, err := uuid.Parse(in.ProductID)
		if err != nil {
			problems = append(problems, fmt.Sprintf("lines[%d].productId: uuid", i))
			continue
		}
		if !pricing.IsFinite(in.UnitPrice) {
			problems = append(problems, fmt.Sprintf("lines[%d].unitPrice: out of range", i))
			continue
		}
		if in.UnitPrice.IsNegative() {
			problems = append(problems, fmt.Sprintf("lines[%d].unitPrice: must not be negative", i))
			continue
		}
		lines = append(lines, pricing.CartLine{ProductID: id, Quantity: in.Quantity, UnitPrice: in.UnitPrice})
	}
	if len(problems) > 0 {
		return nil, common.BadRequest("VALIDATION_ERROR", "invalid quote payload", nil).WithDetails(problems)
	}
	return lines, nil
}

func (s *Service) lookupProfiles(ctx context.Context, lines []pricing.CartLine) pricing.ProfileLookup {
	if s.Profiles == nil {
		return pricing.ProfileLookup{}
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	profiles, err := s.Profiles.Profiles(ctx, ids)
	if err != nil {
		s.Logger.Warn().Err(err).Int("products", len(ids)).Msg("tax profile lookup failed; pricing with store defaults")
		if s.Metrics != nil {
			s.Metrics.CatalogFallbacks.Inc()
		}
		return pricing.ProfileLookup{}
	}
	return profiles
}

// requestedDiscounts normalises and gates every client supplied discount against base.
func (s *Service) requestedDiscounts(req Request, base decimal.Decimal) ([]plannedStep, error) {
	var (
		steps      []plannedStep
		violations []string
	)
	check := func(in DiscountInput, source, label string) {
		kind, _ := pricing.ParseDiscountKind(in.Kind)
		value := pricing.NormalizeDiscountInput(in.Value)
		found := pricing.ValidateDiscount(value, kind, base)
		if len(found) > 0 {
			if s.Metrics != nil {
				s.Metrics.DiscountRejections.WithLabelValues(string(kind)).Inc()
			}
			for _, v := range found {
				if label != "" {
					v = label + ": " + v
				}
				violations = append(violations, v)
			}
			return
		}
		steps = append(steps, plannedStep{source: source, spec: pricing.DiscountSpec{Kind: kind, Value: value}})
	}

	for i, in := range req.Discounts {
		check(in, SourceDiscount, fmt.Sprintf("discounts[%d]", i))
	}
	if req.Discount != nil {
		check(*req.Discount, SourceManual, "")
	}
	if len(violations) > 0 {
		return nil, common.Unprocessable("INVALID_DISCOUNT", "discount rejected", nil).WithDetails(violations)
	}
	return steps, nil
}

// resolvePromotions returns the promotion steps to apply and the codes that were dropped.
// Lookup failures price the cart without promotions.
func (s *Service) resolvePromotions(ctx context.Context, codes []string, base decimal.Decimal) ([]plannedStep, []string) {
	if len(codes) == 0 {
		return nil, nil
	}
	if s.Promos == nil {
		return nil, normalizeCodes(codes)
	}
	rules, err := s.Promos.Lookup(ctx, codes)
	if err != nil {
		s.Logger.Warn().Err(err).Strs("codes", codes).Msg("promotion lookup failed")
		return nil, normalizeCodes(codes)
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	applied, _ := promo.Resolve(rules, now, base, s.MaxStack)

	steps := make([]plannedStep, 0, len(applied))
	used := make(map[string]struct{}, len(applied))
	for _, r := range applied {
		code := promo.NormalizeCode(r.Code)
		used[code] = struct{}{}
		steps = append(steps, plannedStep{source: SourcePromotion, code: code, spec: r.Spec()})
	}
	var ignored []string
	for _, code := range normalizeCodes(codes) {
		if _, ok := used[code]; !ok {
			ignored = append(ignored, code)
		}
	}
	return steps, ignored
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = promo.NormalizeCode(c)
		if _, dup := seen[c]; dup || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
