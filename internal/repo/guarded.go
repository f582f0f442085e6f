package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/magiccart-api/internal/catalog"
	"github.com/noah-isme/magiccart-api/internal/resilience"
	"github.com/noah-isme/magiccart-api/internal/rules"
)

// IsStoreAnswer reports errors that mean the store answered, so they do not
// count against a breaker.
func IsStoreAnswer(err error) bool {
	return errors.Is(err, catalog.ErrNotFound)
}

func guard[T any](ctx context.Context, b *resilience.Breaker, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := b.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// GuardedCatalog routes catalog reads through a circuit breaker.
type GuardedCatalog struct {
	Repo    *CatalogRepo
	Breaker *resilience.Breaker
}

func (g GuardedCatalog) GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) (catalog.Product, error) { return g.Repo.GetProduct(ctx, id) })
}

func (g GuardedCatalog) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) (bool, error) { return g.Repo.ProductExists(ctx, id) })
}

func (g GuardedCatalog) GetVendor(ctx context.Context, id uuid.UUID) (catalog.Vendor, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) (catalog.Vendor, error) { return g.Repo.GetVendor(ctx, id) })
}

func (g GuardedCatalog) GetVendorsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Vendor, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) (map[uuid.UUID]catalog.Vendor, error) {
		return g.Repo.GetVendorsByIDs(ctx, ids)
	})
}

func (g GuardedCatalog) VendorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) (bool, error) { return g.Repo.VendorExists(ctx, id) })
}

func (g GuardedCatalog) ListVendors(ctx context.Context, status catalog.VendorStatus) ([]catalog.Vendor, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) ([]catalog.Vendor, error) { return g.Repo.ListVendors(ctx, status) })
}

func (g GuardedCatalog) GetEligibleOffers(ctx context.Context, productID uuid.UUID, asOf time.Time) ([]catalog.Offer, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) ([]catalog.Offer, error) {
		return g.Repo.GetEligibleOffers(ctx, productID, asOf)
	})
}

func (g GuardedCatalog) GetOffers(ctx context.Context, vendorID, productID uuid.UUID) ([]catalog.Offer, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) ([]catalog.Offer, error) {
		return g.Repo.GetOffers(ctx, vendorID, productID)
	})
}

// GuardedRules routes rule reads through a circuit breaker.
type GuardedRules struct {
	Repo    *RulesRepo
	Breaker *resilience.Breaker
}

func (g GuardedRules) GetVendorAndCategoryRules(ctx context.Context, vendorID uuid.UUID, category string) ([]rules.VendorRule, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) ([]rules.VendorRule, error) {
		return g.Repo.GetVendorAndCategoryRules(ctx, vendorID, category)
	})
}

func (g GuardedRules) GetSpecificProductRules(ctx context.Context, vendorID, productID uuid.UUID) ([]rules.VendorRule, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) ([]rules.VendorRule, error) {
		return g.Repo.GetSpecificProductRules(ctx, vendorID, productID)
	})
}

func (g GuardedRules) GetBundleRules(ctx context.Context, vendorID uuid.UUID) ([]rules.VendorRule, error) {
	return guard(ctx, g.Breaker, func(ctx context.Context) ([]rules.VendorRule, error) {
		return g.Repo.GetBundleRules(ctx, vendorID)
	})
}
