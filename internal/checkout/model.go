package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/catalog"
)

// PriceGuaranteeLevel states how firmly the negotiated price is backed by the vendor.
type PriceGuaranteeLevel string

const (
	GuaranteeGuaranteed         PriceGuaranteeLevel = "GUARANTEED"
	GuaranteeLikely             PriceGuaranteeLevel = "LIKELY"
	GuaranteeManualVerification PriceGuaranteeLevel = "MANUAL_VERIFICATION"
)

// OfferDetails is the offer the shopper accepted, as computed by the client.
// TotalCost must be present; the other amounts default to zero.
type OfferDetails struct {
	TotalCost       decimal.NullDecimal `json:"totalCost" validate:"required,decimal_nonneg"`
	BasePrice       decimal.Decimal     `json:"basePrice" validate:"decimal_nonneg"`
	ShippingCost    decimal.Decimal     `json:"shippingCost" validate:"decimal_nonneg"`
	TaxAmount       decimal.Decimal     `json:"taxAmount" validate:"decimal_nonneg"`
	DiscountPercent decimal.Decimal     `json:"discountPercent"`
	DeliveryDays    int                 `json:"deliveryDays" validate:"gte=0"`
	AppliedRuleIDs  []uuid.UUID         `json:"appliedRuleIds"`
	Incentives      []string            `json:"incentives" validate:"omitempty,dive,max=64"`
}

// RoundSummary audits one bidding round of the session.
type RoundSummary struct {
	RoundNumber          int        `json:"roundNumber" validate:"gte=1"`
	UserSelectedVendorID *uuid.UUID `json:"userSelectedVendorId"`
	OffersConsidered     int        `json:"offersConsideredCount" validate:"gte=0"`
}

// SelectionRequest is the body of POST /api/v1/validate-selection.
type SelectionRequest struct {
	SessionID        string         `json:"sessionId" validate:"required,max=128"`
	ProductID        uuid.UUID      `json:"productId" validate:"required"`
	SelectedVendorID uuid.UUID      `json:"selectedVendorId" validate:"required"`
	FinalOffer       *OfferDetails  `json:"finalOfferDetails" validate:"required"`
	UserLocation     *string        `json:"userLocation" validate:"omitempty,max=64"`
	BiddingRounds    []RoundSummary `json:"biddingRoundsAudit" validate:"omitempty,dive"`
}

// InstructionStep is one ordered checkout step shown to the shopper.
type InstructionStep struct {
	Step        int     `json:"step"`
	Description string  `json:"description"`
	ActionURL   *string `json:"actionUrl,omitempty"`
}

// Instructions tell the client how to complete the purchase with the vendor.
type Instructions struct {
	Method             catalog.IntegrationLevel `json:"method"`
	PrimaryRedirectURL string                   `json:"primaryRedirectUrl"`
	CouponCode         *string                  `json:"couponCode,omitempty"`
	DisplayMessage     string                   `json:"displayMessageToUser"`
	Steps              []InstructionStep        `json:"detailedInstructions"`
	SupportContact     *string                  `json:"supportContact,omitempty"`
	PriceGuarantee     PriceGuaranteeLevel      `json:"priceGuaranteeLevel"`
}

// ValidationResult is the outcome of validating a selection.
type ValidationResult struct {
	IsValid                           bool             `json:"isValid"`
	Message                           string           `json:"message"`
	Instructions                      Instructions     `json:"checkoutInstructions"`
	ConfirmedFinalPrice               decimal.Decimal  `json:"confirmedFinalPrice"`
	OriginalVendorPriceBeforeDiscount *decimal.Decimal `json:"originalVendorPriceBeforeDiscount"`
}
