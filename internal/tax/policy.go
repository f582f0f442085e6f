package tax

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/money"
)

// Details describes how tax was estimated for a location.
type Details struct {
	Location string          `json:"location"`
	Rate     decimal.Decimal `json:"rate"`
	Note     string          `json:"note"`
}

// Policy estimates sales tax on a base amount.
type Policy interface {
	CalculateTax(base decimal.Decimal, location string) (decimal.Decimal, Details)
}

const estimateNote = "Estimated sales tax."

// DefaultLocationRate applies Rate only when the buyer is at DefaultLocation and
// charges nothing elsewhere.
type DefaultLocationRate struct {
	Rate            decimal.Decimal
	DefaultLocation string
}

// CalculateTax implements Policy. The amount is rounded to cents.
func (p DefaultLocationRate) CalculateTax(base decimal.Decimal, location string) (decimal.Decimal, Details) {
	location = strings.TrimSpace(location)
	rate := money.Zero
	if location != "" && location == p.DefaultLocation {
		rate = p.Rate
	}
	label := location
	if label == "" {
		label = "N/A"
	}
	return money.MulRate(base, rate), Details{Location: label, Rate: rate, Note: estimateNote}
}
