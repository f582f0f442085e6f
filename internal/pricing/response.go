package pricing

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/catalog"
	"github.com/noah-isme/magiccart-api/internal/rules"
	"github.com/noah-isme/magiccart-api/internal/shipping"
	"github.com/noah-isme/magiccart-api/internal/tax"
)

// PricingResponse is the payload returned to the extension for a product.
type PricingResponse struct {
	ProductID        uuid.UUID                     `json:"productId"`
	ProductName      string                        `json:"productName"`
	ProductMSRP      decimal.Decimal               `json:"productMsrp"`
	ProductCategory  string                        `json:"productCategory"`
	Offers           []PricedOffer                 `json:"qualifyingVendorsAndOffers"`
	Rules            []rules.VendorRule            `json:"vendorRules"`
	TaxDetails       *tax.Details                  `json:"taxDetails"`
	ShippingByVendor map[uuid.UUID]shipping.Detail `json:"shippingDetailsByVendor"`
}

// BuildResponse ranks offers by ascending total cost and flattens the per-vendor
// rules into one list without duplicate rule ids. Inputs are not modified.
func BuildResponse(
	product catalog.Product,
	offers []PricedOffer,
	rulesByVendor map[uuid.UUID][]rules.VendorRule,
	taxDetails *tax.Details,
	shippingByVendor map[uuid.UUID]shipping.Detail,
) PricingResponse {
	ranked := make([]PricedOffer, len(offers))
	copy(ranked, offers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalCost.LessThan(ranked[j].TotalCost)
	})

	vendorOrder := make([]uuid.UUID, 0, len(rulesByVendor))
	visited := make(map[uuid.UUID]struct{}, len(rulesByVendor))
	for _, offer := range ranked {
		if _, ok := visited[offer.VendorID]; ok {
			continue
		}
		visited[offer.VendorID] = struct{}{}
		vendorOrder = append(vendorOrder, offer.VendorID)
	}
	rest := make([]uuid.UUID, 0)
	for vendorID := range rulesByVendor {
		if _, ok := visited[vendorID]; !ok {
			rest = append(rest, vendorID)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		return bytes.Compare(rest[i][:], rest[j][:]) < 0
	})
	vendorOrder = append(vendorOrder, rest...)

	flat := make([]rules.VendorRule, 0)
	seenRules := make(map[uuid.UUID]struct{})
	for _, vendorID := range vendorOrder {
		for _, rule := range rulesByVendor[vendorID] {
			if _, dup := seenRules[rule.ID]; dup {
				continue
			}
			seenRules[rule.ID] = struct{}{}
			flat = append(flat, rule)
		}
	}

	shippingOut := make(map[uuid.UUID]shipping.Detail, len(shippingByVendor))
	for vendorID, detail := range shippingByVendor {
		shippingOut[vendorID] = detail
	}

	return PricingResponse{
		ProductID:        product.ID,
		ProductName:      product.Name,
		ProductMSRP:      product.MSRP,
		ProductCategory:  product.Category,
		Offers:           ranked,
		Rules:            flat,
		TaxDetails:       taxDetails,
		ShippingByVendor: shippingOut,
	}
}
