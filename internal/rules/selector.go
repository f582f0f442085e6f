package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Lookup reads persisted vendor rules. Implementations return active rules only.
type Lookup interface {
	// GetVendorAndCategoryRules returns VENDOR_WIDE rules plus CATEGORY rules matching category.
	GetVendorAndCategoryRules(ctx context.Context, vendorID uuid.UUID, category string) ([]VendorRule, error)
	// GetSpecificProductRules returns SPECIFIC_PRODUCTS rules linked to productID.
	GetSpecificProductRules(ctx context.Context, vendorID, productID uuid.UUID) ([]VendorRule, error)
	// GetBundleRules returns every BUNDLE rule of the vendor.
	GetBundleRules(ctx context.Context, vendorID uuid.UUID) ([]VendorRule, error)
}

// Selector picks the rules that apply to a vendor/product pair.
type Selector struct {
	lookup Lookup
}

// NewSelector constructs a Selector.
func NewSelector(lookup Lookup) (*Selector, error) {
	if lookup == nil {
		return nil, errors.New("rules: lookup is required")
	}
	return &Selector{lookup: lookup}, nil
}

// SelectApplicable returns the active rules of vendorID that apply to the product,
// deduplicated by rule id and ordered by descending priority. Rules of equal
// priority keep the order they were gathered in.
func (s *Selector) SelectApplicable(ctx context.Context, vendorID, productID uuid.UUID, category string) ([]VendorRule, error) {
	general, err := s.lookup.GetVendorAndCategoryRules(ctx, vendorID, category)
	if err != nil {
		return nil, fmt.Errorf("vendor and category rules: %w", err)
	}
	specific, err := s.lookup.GetSpecificProductRules(ctx, vendorID, productID)
	if err != nil {
		return nil, fmt.Errorf("specific product rules: %w", err)
	}
	bundle, err := s.lookup.GetBundleRules(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("bundle rules: %w", err)
	}

	out := make([]VendorRule, 0, len(general)+len(specific)+len(bundle))
	seen := make(map[uuid.UUID]struct{}, cap(out))
	for _, group := range [][]VendorRule{general, specific, bundle} {
		for _, rule := range group {
			if !rule.Active {
				continue
			}
			if _, dup := seen[rule.ID]; dup {
				continue
			}
			seen[rule.ID] = struct{}{}
			out = append(out, rule)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out, nil
}
