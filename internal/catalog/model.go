package catalog

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntegrationLevel describes how deeply a vendor is integrated for checkout.
type IntegrationLevel string

const (
	IntegrationDeepAPI         IntegrationLevel = "DEEP_API"
	IntegrationAffiliateParams IntegrationLevel = "AFFILIATE_PARAMS"
	IntegrationCouponCodes     IntegrationLevel = "COUPON_CODES"
	IntegrationAssisted        IntegrationLevel = "ASSISTED"
)

// ParseIntegrationLevel normalises a stored or configured integration level.
// Unknown values map to ASSISTED.
func ParseIntegrationLevel(value string) IntegrationLevel {
	switch lvl := IntegrationLevel(strings.ToUpper(strings.TrimSpace(value))); lvl {
	case IntegrationDeepAPI, IntegrationAffiliateParams, IntegrationCouponCodes, IntegrationAssisted:
		return lvl
	default:
		return IntegrationAssisted
	}
}

// VendorStatus is the lifecycle state of a vendor account.
type VendorStatus string

const (
	VendorActive    VendorStatus = "ACTIVE"
	VendorInactive  VendorStatus = "INACTIVE"
	VendorSuspended VendorStatus = "SUSPENDED"
)

const productIDPlaceholder = "{productId}"

// Product is a catalog entry shoppers negotiate on.
type Product struct {
	ID             uuid.UUID       `json:"productId"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	Model          string          `json:"model"`
	Category       string          `json:"category"`
	MSRP           decimal.Decimal `json:"msrp"`
	Specifications json.RawMessage `json:"specifications,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Vendor is a merchant that publishes offers and counter-offer rules.
type Vendor struct {
	ID                 uuid.UUID        `json:"vendorId"`
	Name               string           `json:"name"`
	Rating             *decimal.Decimal `json:"rating,omitempty"`
	LogoURL            *string          `json:"logoUrl,omitempty"`
	IntegrationLevel   IntegrationLevel `json:"integrationLevel"`
	Status             VendorStatus     `json:"status"`
	ProductURLTemplate *string          `json:"productUrlTemplate,omitempty"`
	SupportContact     *string          `json:"supportContact,omitempty"`
	AffiliateBaseURL   *string          `json:"affiliateBaseUrl,omitempty"`
	APIEndpoint        *string          `json:"apiEndpoint,omitempty"`
	CouponAPIEndpoint  *string          `json:"couponApiEndpoint,omitempty"`
}

// ProductURL builds the vendor's product page URL for productID. Vendors without
// a template get a generic search URL.
func (v Vendor) ProductURL(productID uuid.UUID) string {
	if v.ProductURLTemplate != nil && strings.TrimSpace(*v.ProductURLTemplate) != "" {
		return strings.ReplaceAll(*v.ProductURLTemplate, productIDPlaceholder, productID.String())
	}
	return "https://defaultsearch.com?query=" + url.QueryEscape(v.Name) + "+" + productID.String()
}

// Offer is a raw vendor offer for a product.
type Offer struct {
	ID             uuid.UUID       `json:"offerId"`
	VendorID       uuid.UUID       `json:"vendorId"`
	ProductID      uuid.UUID       `json:"productId"`
	BasePrice      decimal.Decimal `json:"basePrice"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	TaxRate        decimal.Decimal `json:"taxRateApplicable"`
	DeliveryDays   int             `json:"deliveryDays"`
	InventoryCount *int            `json:"inventoryCount,omitempty"`
	ValidFrom      time.Time       `json:"validFrom"`
	ValidUntil     *time.Time      `json:"validUntil,omitempty"`
	Active         bool            `json:"isActive"`
}

// Eligible reports whether the offer is active and inside its validity window at now.
// A nil ValidUntil is unbounded.
func (o Offer) Eligible(now time.Time) bool {
	if !o.Active {
		return false
	}
	if o.ValidFrom.After(now) {
		return false
	}
	if o.ValidUntil != nil && o.ValidUntil.Before(now) {
		return false
	}
	return true
}

// FilterEligible keeps the offers eligible at now, preserving order.
func FilterEligible(offers []Offer, now time.Time) []Offer {
	out := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if o.Eligible(now) {
			out = append(out, o)
		}
	}
	return out
}
