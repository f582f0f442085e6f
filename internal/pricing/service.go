package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/catalog"
	"github.com/noah-isme/magiccart-api/internal/common"
	"github.com/noah-isme/magiccart-api/internal/money"
	"github.com/noah-isme/magiccart-api/internal/obs"
	"github.com/noah-isme/magiccart-api/internal/rules"
	"github.com/noah-isme/magiccart-api/internal/tax"
)

// RuleSelector picks the rules applicable to one vendor for a product.
type RuleSelector interface {
	SelectApplicable(ctx context.Context, vendorID, productID uuid.UUID, category string) ([]rules.VendorRule, error)
}

// Request carries the bidding-rules query.
type Request struct {
	ProductID                uuid.UUID
	Location                 string
	RequestedDiscountPercent *decimal.Decimal
	BundleProductIDs         []uuid.UUID
}

// Service assembles pricing responses.
type Service struct {
	aggregator      *Aggregator
	selector        RuleSelector
	tax             tax.Policy
	defaultLocation string
	logger          zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Aggregator      *Aggregator
	Selector        RuleSelector
	Tax             tax.Policy
	DefaultLocation string
	Logger          zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Aggregator == nil {
		return nil, errors.New("pricing: aggregator is required")
	}
	if cfg.Selector == nil {
		return nil, errors.New("pricing: rule selector is required")
	}
	if cfg.Tax == nil {
		return nil, errors.New("pricing: tax policy is required")
	}
	return &Service{
		aggregator:      cfg.Aggregator,
		selector:        cfg.Selector,
		tax:             cfg.Tax,
		defaultLocation: strings.TrimSpace(cfg.DefaultLocation),
		logger:          cfg.Logger,
	}, nil
}

// GetBiddingRules prices every eligible offer for the product and attaches the
// rules each vendor may use to counter.
func (s *Service) GetBiddingRules(ctx context.Context, req Request) (PricingResponse, error) {
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = s.defaultLocation
	}
	evt := s.logger.Debug().Str("product_id", req.ProductID.String()).Str("location", location)
	if req.RequestedDiscountPercent != nil {
		evt = evt.Str("requested_discount_percent", req.RequestedDiscountPercent.String())
	}
	if len(req.BundleProductIDs) > 0 {
		evt = evt.Int("bundle_candidates", len(req.BundleProductIDs))
	}
	if session := obs.SessionIDFromContext(ctx); session != "" {
		evt = evt.Str("session_id", session)
	}
	evt.Msg("bidding rules requested")

	product, offers, shippingByVendor, err := s.aggregator.ListPricedOffers(ctx, req.ProductID, location)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			obs.IncCounter(obs.PricingRequestsTotal, "not_found")
			return PricingResponse{}, common.NotFound("product not found", err)
		}
		obs.IncCounter(obs.PricingRequestsTotal, "error")
		return PricingResponse{}, err
	}

	rulesByVendor := make(map[uuid.UUID][]rules.VendorRule)
	for _, offer := range offers {
		if _, done := rulesByVendor[offer.VendorID]; done {
			continue
		}
		applicable, err := s.selector.SelectApplicable(ctx, offer.VendorID, product.ID, product.Category)
		if err != nil {
			obs.IncCounter(obs.PricingRequestsTotal, "error")
			return PricingResponse{}, fmt.Errorf("select rules for vendor %s: %w", offer.VendorID, err)
		}
		rulesByVendor[offer.VendorID] = applicable
	}

	_, details := s.tax.CalculateTax(money.One, location)
	resp := BuildResponse(product, offers, rulesByVendor, &details, shippingByVendor)

	obs.IncCounter(obs.PricingRequestsTotal, "ok")
	if obs.PricedOffersPerResponse != nil {
		obs.PricedOffersPerResponse.Observe(float64(len(resp.Offers)))
	}
	return resp, nil
}
