package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-pricing/internal/pricing"
)

const selectProfiles = `SELECT product_id::text, tax_rate::text, tax_included, taxable
FROM product_tax_profiles
WHERE product_id = ANY($1::uuid[])`

const upsertProfile = `INSERT INTO product_tax_profiles (product_id, tax_rate, tax_included, taxable, updated_at)
VALUES ($1::uuid, $2::numeric, $3, $4, now())
ON CONFLICT (product_id) DO UPDATE
SET tax_rate = EXCLUDED.tax_rate, tax_included = EXCLUDED.tax_included, taxable = EXCLUDED.taxable, updated_at = now()`

// Querier is the subset of pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource loads tax profiles from the product_tax_profiles table.
type PostgresSource struct {
	DB Querier
}

// Profiles implements ProfileSource.
func (s PostgresSource) Profiles(ctx context.Context, ids []uuid.UUID) (pricing.ProfileLookup, error) {
	ids = uniqueIDs(ids)
	out := make(pricing.ProfileLookup, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if s.DB == nil {
		return nil, errors.New("catalog source not configured")
	}
	params := make([]string, 0, len(ids))
	for _, id := range ids {
		params = append(params, id.String())
	}
	rows, err := s.DB.Query(ctx, selectProfiles, params)
	if err != nil {
		return nil, fmt.Errorf("query tax profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rawID    string
			rate     *string
			included *bool
			taxable  *bool
		)
		if err := rows.Scan(&rawID, &rate, &included, &taxable); err != nil {
			return nil, fmt.Errorf("scan tax profile: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse product id %q: %w", rawID, err)
		}
		profile := pricing.ProductTaxProfile{TaxIncluded: included, Taxable: taxable}
		if rate != nil {
			d, err := decimal.NewFromString(*rate)
			if err != nil {
				return nil, fmt.Errorf("parse tax rate for %s: %w", id, err)
			}
			profile.TaxRate = &d
		}
		out[id] = profile
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax profiles: %w", err)
	}
	return out, nil
}

// Execer is the subset of pgxpool.Pool used to write profiles.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UpsertProfile stores profile for id. Nil fields are written as NULL so the product
// falls back to the store policy for that attribute.
func UpsertProfile(ctx context.Context, db Execer, id uuid.UUID, profile pricing.ProductTaxProfile) error {
	if profile.TaxRate != nil && (profile.TaxRate.IsNegative() || profile.TaxRate.GreaterThan(decimal.NewFromInt(100))) {
		return fmt.Errorf("tax rate for %s must be between 0 and 100, got %s", id, profile.TaxRate)
	}
	var rate *string
	if profile.TaxRate != nil {
		s := profile.TaxRate.String()
		rate = &s
	}
	if _, err := db.Exec(ctx, upsertProfile, id.String(), rate, profile.TaxIncluded, profile.Taxable); err != nil {
		return fmt.Errorf("upsert tax profile %s: %w", id, err)
	}
	return nil
}
