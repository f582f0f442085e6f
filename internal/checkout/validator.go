package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/analytics"
	"github.com/noah-isme/magiccart-api/internal/catalog"
	"github.com/noah-isme/magiccart-api/internal/common"
	"github.com/noah-isme/magiccart-api/internal/obs"
)

const validSelectionMessage = "Offer selection logged. Proceed to checkout."

// SelectionRecorder receives validated selections for analytics.
type SelectionRecorder interface {
	RecordSelection(ctx context.Context, evt analytics.SelectionEvent) error
}

// Validator checks a shopper's final selection and produces checkout guidance.
// Unknown products or vendors do not fail the request; the result is flagged
// invalid and still carries instructions.
type Validator struct {
	products     catalog.ProductLookup
	vendors      catalog.VendorLookup
	offers       catalog.OfferLookup
	generator    *Generator
	recorder     SelectionRecorder
	defaultLevel catalog.IntegrationLevel
	logger       zerolog.Logger
	now          func() time.Time
}

// ValidatorConfig groups Validator dependencies. Recorder is optional.
type ValidatorConfig struct {
	Products                catalog.ProductLookup
	Vendors                 catalog.VendorLookup
	Offers                  catalog.OfferLookup
	Generator               *Generator
	Recorder                SelectionRecorder
	DefaultIntegrationLevel catalog.IntegrationLevel
	Logger                  zerolog.Logger
	Now                     func() time.Time
}

// NewValidator constructs a Validator.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	switch {
	case cfg.Products == nil:
		return nil, errors.New("checkout: product lookup is required")
	case cfg.Vendors == nil:
		return nil, errors.New("checkout: vendor lookup is required")
	case cfg.Offers == nil:
		return nil, errors.New("checkout: offer lookup is required")
	}
	gen := cfg.Generator
	if gen == nil {
		gen = NewGenerator(cfg.Logger)
	}
	level := cfg.DefaultIntegrationLevel
	if level == "" {
		level = catalog.IntegrationAssisted
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Validator{
		products:     cfg.Products,
		vendors:      cfg.Vendors,
		offers:       cfg.Offers,
		generator:    gen,
		recorder:     cfg.Recorder,
		defaultLevel: level,
		logger:       cfg.Logger,
		now:          now,
	}, nil
}

// ValidateSelection checks that the selected vendor and product exist, derives the
// baseline price, and generates checkout instructions. The confirmed price is the
// client's total in every case.
func (v *Validator) ValidateSelection(ctx context.Context, req SelectionRequest) (ValidationResult, error) {
	log := v.logger.With().
		Str("session_id", req.SessionID).
		Str("product_id", req.ProductID.String()).
		Str("vendor_id", req.SelectedVendorID.String()).
		Logger()

	if req.FinalOffer == nil || !req.FinalOffer.TotalCost.Valid {
		return ValidationResult{}, common.BadRequest("finalOfferDetails.totalCost", "final offer total cost is required", nil)
	}
	offer := *req.FinalOffer

	vendor, vendorFound, err := v.lookupVendor(ctx, req.SelectedVendorID)
	if err != nil {
		obs.IncCounter(obs.SelectionValidationsTotal, "error")
		return ValidationResult{}, fmt.Errorf("get vendor: %w", err)
	}
	product, productFound, err := v.lookupProduct(ctx, req.ProductID)
	if err != nil {
		obs.IncCounter(obs.SelectionValidationsTotal, "error")
		return ValidationResult{}, fmt.Errorf("get product: %w", err)
	}

	var result ValidationResult
	if !vendorFound || !productFound {
		if !vendorFound {
			vendor = PlaceholderVendor(req.SelectedVendorID, v.defaultLevel)
		}
		if !productFound {
			product = PlaceholderProduct(req.ProductID)
		}
		instructions := v.generator.Generate(&vendor, &product, offer)
		instructions.DisplayMessage = fmt.Sprintf("Error: Could not fully validate this offer. Proceed with caution to %s.", instructions.PrimaryRedirectURL)
		instructions.PriceGuarantee = GuaranteeManualVerification
		result = ValidationResult{
			IsValid:             false,
			Message:             fmt.Sprintf("Validation failed: %s not found. Please double-check the offer.", missingLabel(vendorFound, productFound)),
			Instructions:        instructions,
			ConfirmedFinalPrice: offer.TotalCost.Decimal,
		}
		log.Warn().Bool("vendor_found", vendorFound).Bool("product_found", productFound).Msg("selection failed validation")
		obs.IncCounter(obs.SelectionValidationsTotal, "invalid")
	} else {
		baseline, err := v.baselinePrice(ctx, req.SelectedVendorID, req.ProductID)
		if err != nil {
			obs.IncCounter(obs.SelectionValidationsTotal, "error")
			return ValidationResult{}, err
		}
		instructions := v.generator.Generate(&vendor, &product, offer)
		result = ValidationResult{
			IsValid:                           true,
			Message:                           validSelectionMessage,
			Instructions:                      instructions,
			ConfirmedFinalPrice:               offer.TotalCost.Decimal,
			OriginalVendorPriceBeforeDiscount: baseline,
		}
		log.Info().Str("method", string(instructions.Method)).Msg("selection validated")
		obs.IncCounter(obs.SelectionValidationsTotal, "valid")
	}

	v.record(ctx, req, result)
	return result, nil
}

// lookupVendor checks existence before loading the vendor. A vendor removed
// between the two calls counts as missing.
func (v *Validator) lookupVendor(ctx context.Context, id uuid.UUID) (catalog.Vendor, bool, error) {
	ok, err := v.vendors.VendorExists(ctx, id)
	if err != nil || !ok {
		return catalog.Vendor{}, false, err
	}
	vendor, err := v.vendors.GetVendor(ctx, id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return catalog.Vendor{}, false, nil
	case err != nil:
		return catalog.Vendor{}, false, err
	}
	return vendor, true, nil
}

func (v *Validator) lookupProduct(ctx context.Context, id uuid.UUID) (catalog.Product, bool, error) {
	ok, err := v.products.ProductExists(ctx, id)
	if err != nil || !ok {
		return catalog.Product{}, false, err
	}
	product, err := v.products.GetProduct(ctx, id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return catalog.Product{}, false, nil
	case err != nil:
		return catalog.Product{}, false, err
	}
	return product, true, nil
}

// baselinePrice returns the lowest base price among the vendor's currently
// eligible offers for the product, or nil when there is none.
func (v *Validator) baselinePrice(ctx context.Context, vendorID, productID uuid.UUID) (*decimal.Decimal, error) {
	offers, err := v.offers.GetOffers(ctx, vendorID, productID)
	if err != nil {
		return nil, fmt.Errorf("vendor offers: %w", err)
	}
	var best *decimal.Decimal
	for _, offer := range catalog.FilterEligible(offers, v.now()) {
		if best == nil || offer.BasePrice.LessThan(*best) {
			price := offer.BasePrice
			best = &price
		}
	}
	return best, nil
}

func (v *Validator) record(ctx context.Context, req SelectionRequest, result ValidationResult) {
	if v.recorder == nil {
		return
	}
	evt := analytics.SelectionEvent{
		SessionID:       req.SessionID,
		ProductID:       req.ProductID,
		VendorID:        req.SelectedVendorID,
		Valid:           result.IsValid,
		FinalTotal:      result.ConfirmedFinalPrice,
		BaselinePrice:   result.OriginalVendorPriceBeforeDiscount,
		DiscountPercent: req.FinalOffer.DiscountPercent,
		AppliedRuleIDs:  req.FinalOffer.AppliedRuleIDs,
		RoundsCount:     len(req.BiddingRounds),
		CheckoutMethod:  string(result.Instructions.Method),
		RecordedAt:      v.now().UTC(),
	}
	for _, round := range req.BiddingRounds {
		evt.OffersConsidered += round.OffersConsidered
	}
	if req.UserLocation != nil {
		evt.UserLocation = strings.TrimSpace(*req.UserLocation)
	}
	if err := v.recorder.RecordSelection(ctx, evt); err != nil {
		v.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("record selection")
	}
}

func missingLabel(vendorFound, productFound bool) string {
	switch {
	case !vendorFound && !productFound:
		return "Product and Vendor"
	case !vendorFound:
		return "Vendor"
	default:
		return "Product"
	}
}
