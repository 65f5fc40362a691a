package cache

import "github.com/google/uuid"

// KeyTaxProfile returns the cache key holding a product's tax profile.
func KeyTaxProfile(productID uuid.UUID) string {
	return "catalog:taxprofile:" + productID.String()
}

// KeyPromotion returns the key holding a promotion rule. Codes are expected to be normalised.
func KeyPromotion(code string) string {
	return "promo:" + code
}
