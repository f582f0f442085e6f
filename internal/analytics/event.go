package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SelectionEvent records one validated offer selection from a bidding session.
type SelectionEvent struct {
	SessionID        string           `json:"sessionId"`
	ProductID        uuid.UUID        `json:"productId"`
	VendorID         uuid.UUID        `json:"vendorId"`
	Valid            bool             `json:"valid"`
	FinalTotal       decimal.Decimal  `json:"finalTotal"`
	BaselinePrice    *decimal.Decimal `json:"baselinePrice,omitempty"`
	DiscountPercent  decimal.Decimal  `json:"discountPercent"`
	AppliedRuleIDs   []uuid.UUID      `json:"appliedRuleIds,omitempty"`
	RoundsCount      int              `json:"roundsCount"`
	OffersConsidered int              `json:"offersConsidered"`
	UserLocation     string           `json:"userLocation,omitempty"`
	CheckoutMethod   string           `json:"checkoutMethod"`
	RecordedAt       time.Time        `json:"recordedAt"`
}
