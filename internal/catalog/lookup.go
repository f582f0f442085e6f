package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups when the referenced entity does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ProductLookup resolves products.
type ProductLookup interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// VendorLookup resolves vendors.
type VendorLookup interface {
	GetVendor(ctx context.Context, id uuid.UUID) (Vendor, error)
	// GetVendorsByIDs returns the vendors that exist; missing ids are absent from the map.
	GetVendorsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Vendor, error)
	VendorExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListVendors(ctx context.Context, status VendorStatus) ([]Vendor, error)
}

// OfferLookup resolves vendor offers.
type OfferLookup interface {
	GetEligibleOffers(ctx context.Context, productID uuid.UUID, asOf time.Time) ([]Offer, error)
	GetOffers(ctx context.Context, vendorID, productID uuid.UUID) ([]Offer, error)
}
