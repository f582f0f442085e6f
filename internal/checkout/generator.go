package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/magiccart-api/internal/catalog"
	"github.com/noah-isme/magiccart-api/internal/money"
	"github.com/noah-isme/magiccart-api/internal/obs"
)

const (
	unknownVendorName  = "the vendor"
	unknownProductName = "this product"
)

// Strategy produces checkout instructions for one integration level.
type Strategy func(vendor catalog.Vendor, product catalog.Product, offer OfferDetails) Instructions

// Generator dispatches on the vendor's integration level. Levels without a
// dedicated strategy degrade to assisted checkout.
type Generator struct {
	strategies map[catalog.IntegrationLevel]Strategy
	logger     zerolog.Logger
}

// NewGenerator returns a Generator with assisted checkout registered and every
// other known level wired to the assisted fallback.
func NewGenerator(logger zerolog.Logger) *Generator {
	g := &Generator{strategies: make(map[catalog.IntegrationLevel]Strategy), logger: logger}
	g.Register(catalog.IntegrationAssisted, Assisted)
	for _, level := range []catalog.IntegrationLevel{
		catalog.IntegrationDeepAPI,
		catalog.IntegrationAffiliateParams,
		catalog.IntegrationCouponCodes,
	} {
		g.Register(level, g.fallback(level))
	}
	return g
}

// Register installs s for level, replacing any previous strategy.
func (g *Generator) Register(level catalog.IntegrationLevel, s Strategy) {
	g.strategies[level] = s
}

// Generate builds instructions for the accepted offer. A nil vendor or product is
// tolerated and replaced with placeholders so callers always get usable guidance.
func (g *Generator) Generate(vendor *catalog.Vendor, product *catalog.Product, offer OfferDetails) Instructions {
	v := PlaceholderVendor(uuid.Nil, catalog.IntegrationAssisted)
	if vendor != nil {
		v = *vendor
	}
	p := PlaceholderProduct(uuid.Nil)
	if product != nil {
		p = *product
	}
	strategy, ok := g.strategies[v.IntegrationLevel]
	if !ok {
		strategy = g.fallback(v.IntegrationLevel)
	}
	return strategy(v, p, offer)
}

// PlaceholderVendor stands in for a vendor that could not be resolved.
func PlaceholderVendor(id uuid.UUID, level catalog.IntegrationLevel) catalog.Vendor {
	return catalog.Vendor{ID: id, Name: unknownVendorName, IntegrationLevel: level}
}

// PlaceholderProduct stands in for a product that could not be resolved.
func PlaceholderProduct(id uuid.UUID) catalog.Product {
	return catalog.Product{ID: id, Name: unknownProductName}
}

func (g *Generator) fallback(level catalog.IntegrationLevel) Strategy {
	return func(vendor catalog.Vendor, product catalog.Product, offer OfferDetails) Instructions {
		g.logger.Info().
			Str("vendor", vendor.Name).
			Str("integration_level", string(level)).
			Msg("integration level not implemented, falling back to assisted checkout")
		obs.IncCounter(obs.CheckoutFallbackTotal, string(level))
		return Assisted(vendor, product, offer)
	}
}

// Assisted walks the shopper through adding the product to the vendor's cart and
// checking the price by hand.
func Assisted(vendor catalog.Vendor, product catalog.Product, offer OfferDetails) Instructions {
	price := money.Format2(offer.TotalCost.Decimal)
	support := ""
	if vendor.SupportContact != nil && *vendor.SupportContact != "" {
		support = fmt.Sprintf(" (%s)", *vendor.SupportContact)
	}
	return Instructions{
		Method:             catalog.IntegrationAssisted,
		PrimaryRedirectURL: vendor.ProductURL(product.ID),
		DisplayMessage:     fmt.Sprintf("You negotiated a price of $%s for '%s' with %s.", price, product.Name, vendor.Name),
		Steps: []InstructionStep{
			{Step: 1, Description: fmt.Sprintf("You will be redirected to %s.", vendor.Name)},
			{Step: 2, Description: fmt.Sprintf("Add '%s' to your cart.", product.Name)},
			{Step: 3, Description: fmt.Sprintf("IMPORTANT: Verify the price in your cart matches $%s before payment.", price)},
			{Step: 4, Description: fmt.Sprintf("If the price does not match, please contact %s support%s or look for alternative offers.", vendor.Name, support)},
		},
		SupportContact: vendor.SupportContact,
		PriceGuarantee: GuaranteeManualVerification,
	}
}
