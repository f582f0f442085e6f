package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/catalog"
)

const productColumns = `id, name, brand, model, category, msrp, specifications, created_at, updated_at`

const vendorColumns = `id, name, rating, logo_url, integration_level, status, product_url_template,
support_contact, affiliate_base_url, api_endpoint, coupon_api_endpoint`

const offerColumns = `id, vendor_id, product_id, base_price, shipping_cost, tax_rate, delivery_days,
inventory_count, valid_from, valid_until, is_active`

// CatalogRepo reads products, vendors and offers from Postgres.
type CatalogRepo struct {
	DB DBTX
}

// NewCatalogRepo constructs a CatalogRepo.
func NewCatalogRepo(db DBTX) *CatalogRepo {
	return &CatalogRepo{DB: db}
}

func scanProduct(row scanner) (catalog.Product, error) {
	var p catalog.Product
	var brand, model *string
	var specs []byte
	if err := row.Scan(&p.ID, &p.Name, &brand, &model, &p.Category, &p.MSRP, &specs, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return catalog.Product{}, err
	}
	if brand != nil {
		p.Brand = *brand
	}
	if model != nil {
		p.Model = *model
	}
	if len(specs) > 0 {
		p.Specifications = specs
	}
	return p, nil
}

func scanVendor(row scanner) (catalog.Vendor, error) {
	var v catalog.Vendor
	var rating decimal.NullDecimal
	var level, status string
	if err := row.Scan(&v.ID, &v.Name, &rating, &v.LogoURL, &level, &status, &v.ProductURLTemplate,
		&v.SupportContact, &v.AffiliateBaseURL, &v.APIEndpoint, &v.CouponAPIEndpoint); err != nil {
		return catalog.Vendor{}, err
	}
	if rating.Valid {
		r := rating.Decimal
		v.Rating = &r
	}
	v.IntegrationLevel = catalog.ParseIntegrationLevel(level)
	v.Status = catalog.VendorStatus(status)
	return v, nil
}

func scanOffer(row scanner) (catalog.Offer, error) {
	var o catalog.Offer
	if err := row.Scan(&o.ID, &o.VendorID, &o.ProductID, &o.BasePrice, &o.ShippingCost, &o.TaxRate, &o.DeliveryDays,
		&o.InventoryCount, &o.ValidFrom, &o.ValidUntil, &o.Active); err != nil {
		return catalog.Offer{}, err
	}
	return o, nil
}

// GetProduct implements catalog.ProductLookup.
func (r *CatalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	if r == nil || r.DB == nil {
		return catalog.Product{}, ErrStoreUnavailable
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return catalog.Product{}, notFound(err, "get product")
	}
	return p, nil
}

// ProductExists implements catalog.ProductLookup.
func (r *CatalogRepo) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if r == nil || r.DB == nil {
		return false, ErrStoreUnavailable
	}
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// GetVendor implements catalog.VendorLookup.
func (r *CatalogRepo) GetVendor(ctx context.Context, id uuid.UUID) (catalog.Vendor, error) {
	if r == nil || r.DB == nil {
		return catalog.Vendor{}, ErrStoreUnavailable
	}
	v, err := scanVendor(r.DB.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
	if err != nil {
		return catalog.Vendor{}, notFound(err, "get vendor")
	}
	return v, nil
}

// GetVendorsByIDs implements catalog.VendorLookup. Unknown ids are absent from the map.
func (r *CatalogRepo) GetVendorsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Vendor, error) {
	if r == nil || r.DB == nil {
		return nil, ErrStoreUnavailable
	}
	out := make(map[uuid.UUID]catalog.Vendor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ANY($1::uuid[])`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	vendors, err := collect(rows, scanVendor)
	if err != nil {
		return nil, err
	}
	for _, v := range vendors {
		out[v.ID] = v
	}
	return out, nil
}

// VendorExists implements catalog.VendorLookup.
func (r *CatalogRepo) VendorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if r == nil || r.DB == nil {
		return false, ErrStoreUnavailable
	}
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListVendors implements catalog.VendorLookup.
func (r *CatalogRepo) ListVendors(ctx context.Context, status catalog.VendorStatus) ([]catalog.Vendor, error) {
	if r == nil || r.DB == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := r.DB.Query(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE status = $1 ORDER BY name, id`, string(status))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanVendor)
}

// GetEligibleOffers implements catalog.OfferLookup.
func (r *CatalogRepo) GetEligibleOffers(ctx context.Context, productID uuid.UUID, asOf time.Time) ([]catalog.Offer, error) {
	if r == nil || r.DB == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := r.DB.Query(ctx, `SELECT `+offerColumns+` FROM vendor_offers
WHERE product_id = $1 AND is_active AND valid_from <= $2 AND (valid_until IS NULL OR valid_until >= $2)
ORDER BY created_at, id`, productID, asOf)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOffer)
}

// GetOffers implements catalog.OfferLookup.
func (r *CatalogRepo) GetOffers(ctx context.Context, vendorID, productID uuid.UUID) ([]catalog.Offer, error) {
	if r == nil || r.DB == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := r.DB.Query(ctx, `SELECT `+offerColumns+` FROM vendor_offers
WHERE vendor_id = $1 AND product_id = $2 ORDER BY created_at, id`, vendorID, productID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOffer)
}
