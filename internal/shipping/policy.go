package shipping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/money"
)

// Detail is a shipping estimate for one vendor.
type Detail struct {
	Cost                  decimal.Decimal `json:"cost"`
	EstimatedDeliveryDays int             `json:"estimatedDeliveryDays"`
	Note                  string          `json:"note"`
}

// Policy estimates shipping for a vendor/product pair delivered to location.
type Policy interface {
	CalculateShipping(vendorID, productID uuid.UUID, location string) Detail
}

const flatRateNote = "Standard shipping estimate."

// FlatRate charges the same cost and delivery time for every vendor and destination.
type FlatRate struct {
	Cost decimal.Decimal
	Days int
}

// NewFlatRate constructs a FlatRate policy; the cost is rounded to cents.
func NewFlatRate(cost decimal.Decimal, days int) FlatRate {
	if days < 0 {
		days = 0
	}
	return FlatRate{Cost: money.Round2(cost), Days: days}
}

// CalculateShipping implements Policy.
func (f FlatRate) CalculateShipping(_, _ uuid.UUID, _ string) Detail {
	return Detail{Cost: f.Cost, EstimatedDeliveryDays: f.Days, Note: flatRateNote}
}
