package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/catalog"
	"github.com/noah-isme/magiccart-api/internal/money"
	"github.com/noah-isme/magiccart-api/internal/obs"
	"github.com/noah-isme/magiccart-api/internal/shipping"
	"github.com/noah-isme/magiccart-api/internal/tax"
)

// PricedOffer is a vendor offer with landed cost and discount computed.
type PricedOffer struct {
	VendorID         uuid.UUID        `json:"vendorId"`
	VendorName       string           `json:"vendorName"`
	VendorRating     *decimal.Decimal `json:"vendorRating"`
	VendorLogoURL    *string          `json:"vendorLogoUrl"`
	OfferID          uuid.UUID        `json:"offerId"`
	BasePrice        decimal.Decimal  `json:"basePrice"`
	ShippingEstimate decimal.Decimal  `json:"shippingEstimate"`
	TaxEstimate      decimal.Decimal  `json:"taxEstimate"`
	TotalCost        decimal.Decimal  `json:"totalCostEstimate"`
	DeliveryDays     int              `json:"deliveryDays"`
	InventoryCount   *int             `json:"inventoryCount"`
	DiscountPercent  decimal.Decimal  `json:"currentDiscountPercentFromMsrp"`
	Incentives       []string         `json:"incentives,omitempty"`
}

// Aggregator loads eligible offers for a product and prices each one.
type Aggregator struct {
	products catalog.ProductLookup
	vendors  catalog.VendorLookup
	offers   catalog.OfferLookup
	tax      tax.Policy
	shipping shipping.Policy
	logger   zerolog.Logger
	now      func() time.Time
}

// AggregatorConfig groups Aggregator dependencies.
type AggregatorConfig struct {
	Products catalog.ProductLookup
	Vendors  catalog.VendorLookup
	Offers   catalog.OfferLookup
	Tax      tax.Policy
	Shipping shipping.Policy
	Logger   zerolog.Logger
	Now      func() time.Time
}

// NewAggregator constructs an Aggregator.
func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	switch {
	case cfg.Products == nil:
		return nil, errors.New("pricing: product lookup is required")
	case cfg.Vendors == nil:
		return nil, errors.New("pricing: vendor lookup is required")
	case cfg.Offers == nil:
		return nil, errors.New("pricing: offer lookup is required")
	case cfg.Tax == nil:
		return nil, errors.New("pricing: tax policy is required")
	case cfg.Shipping == nil:
		return nil, errors.New("pricing: shipping policy is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		products: cfg.Products,
		vendors:  cfg.Vendors,
		offers:   cfg.Offers,
		tax:      cfg.Tax,
		shipping: cfg.Shipping,
		logger:   cfg.Logger,
		now:      now,
	}, nil
}

// ListPricedOffers resolves the product and prices every eligible offer for it.
// Offers whose vendor cannot be resolved are dropped. The result is unsorted and
// the shipping map holds the last estimate computed per vendor.
func (a *Aggregator) ListPricedOffers(ctx context.Context, productID uuid.UUID, location string) (catalog.Product, []PricedOffer, map[uuid.UUID]shipping.Detail, error) {
	product, err := a.products.GetProduct(ctx, productID)
	if err != nil {
		return catalog.Product{}, nil, nil, fmt.Errorf("get product %s: %w", productID, err)
	}

	raw, err := a.offers.GetEligibleOffers(ctx, productID, a.now())
	if err != nil {
		return catalog.Product{}, nil, nil, fmt.Errorf("eligible offers: %w", err)
	}
	shippingByVendor := make(map[uuid.UUID]shipping.Detail)
	if len(raw) == 0 {
		a.logger.Info().Str("product_id", productID.String()).Msg("no eligible offers")
		return product, []PricedOffer{}, shippingByVendor, nil
	}

	vendorIDs := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, offer := range raw {
		if _, ok := seen[offer.VendorID]; ok {
			continue
		}
		seen[offer.VendorID] = struct{}{}
		vendorIDs = append(vendorIDs, offer.VendorID)
	}
	vendors, err := a.vendors.GetVendorsByIDs(ctx, vendorIDs)
	if err != nil {
		return catalog.Product{}, nil, nil, fmt.Errorf("resolve vendors: %w", err)
	}

	priced := make([]PricedOffer, 0, len(raw))
	for _, offer := range raw {
		vendor, ok := vendors[offer.VendorID]
		if !ok {
			a.logger.Warn().
				Str("vendor_id", offer.VendorID.String()).
				Str("offer_id", offer.ID.String()).
				Msg("vendor missing for offer, skipping")
			obs.IncCounter(obs.OffersSkippedTotal, "vendor_missing")
			continue
		}
		taxAmount, _ := a.tax.CalculateTax(offer.BasePrice, location)
		ship := a.shipping.CalculateShipping(vendor.ID, product.ID, location)
		shippingByVendor[vendor.ID] = ship

		total := money.Sum(offer.BasePrice, taxAmount, ship.Cost)
		priced = append(priced, PricedOffer{
			VendorID:         vendor.ID,
			VendorName:       vendor.Name,
			VendorRating:     vendor.Rating,
			VendorLogoURL:    vendor.LogoURL,
			OfferID:          offer.ID,
			BasePrice:        offer.BasePrice,
			ShippingEstimate: ship.Cost,
			TaxEstimate:      taxAmount,
			TotalCost:        total,
			DeliveryDays:     ship.EstimatedDeliveryDays,
			InventoryCount:   offer.InventoryCount,
			DiscountPercent:  money.PercentOff(product.MSRP, total),
		})
	}
	return product, priced, shippingByVendor, nil
}
