package rules

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Applicability scopes which products a vendor rule covers.
type Applicability string

const (
	ApplicabilityCategory         Applicability = "CATEGORY"
	ApplicabilitySpecificProducts Applicability = "SPECIFIC_PRODUCTS"
	ApplicabilityBundle           Applicability = "BUNDLE"
	ApplicabilityVendorWide       Applicability = "VENDOR_WIDE"
)

// Valid reports whether a is a known applicability type.
func (a Applicability) Valid() bool {
	switch a {
	case ApplicabilityCategory, ApplicabilitySpecificProducts, ApplicabilityBundle, ApplicabilityVendorWide:
		return true
	}
	return false
}

// ActionType is the counter-offer a vendor makes when a trigger fires.
type ActionType string

const (
	ActionMatchTotalCost  ActionType = "MATCH_TOTAL_COST"
	ActionBeatTotalCostBy ActionType = "BEAT_TOTAL_COST_BY"
	ActionMatchPrice      ActionType = "MATCH_PRICE"
	ActionBeatAnyOffer    ActionType = "BEAT_ANY_OFFER"
)

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	switch a {
	case ActionMatchTotalCost, ActionBeatTotalCostBy, ActionMatchPrice, ActionBeatAnyOffer:
		return true
	}
	return false
}

// TriggerCondition describes when a rule may fire. Absent fields match anything.
type TriggerCondition struct {
	BeatenByAmount           *DecimalRange `json:"beatenByAmount,omitempty"`
	CurrentRound             *IntRange     `json:"currentRound,omitempty"`
	CompetitorRating         *DecimalRange `json:"competitorRating,omitempty"`
	InventoryLevel           *IntRange     `json:"inventoryLevel,omitempty"`
	ProductCategory          *string       `json:"productCategory,omitempty"`
	RequiredBundleProductIDs []uuid.UUID   `json:"requiredBundleProductIds,omitempty"`
}

// CounterAction is what the vendor offers once the trigger matches.
type CounterAction struct {
	Action             ActionType       `json:"action"`
	Modifier           *decimal.Decimal `json:"modifier,omitempty"`
	Amount             *decimal.Decimal `json:"amount,omitempty"`
	MaxDiscountPercent *decimal.Decimal `json:"maxDiscountPercent,omitempty"`
}

// VendorRule is a merchant-defined counter-offer rule as served to clients.
type VendorRule struct {
	ID                 uuid.UUID        `json:"ruleId"`
	VendorID           uuid.UUID        `json:"vendorId"`
	Name               string           `json:"ruleName"`
	Applicability      Applicability    `json:"-"`
	ApplicableCategory *string          `json:"-"`
	Trigger            TriggerCondition `json:"triggerCondition"`
	Counter            CounterAction    `json:"counterAction"`
	Incentives         map[string]bool  `json:"additionalIncentives,omitempty"`
	ReasonTemplate     *string          `json:"displayTemplateForCounterReason,omitempty"`
	MaxUsagePerSession *int             `json:"maxUsagePerSession,omitempty"`
	Priority           int              `json:"priority"`
	ContentHash        string           `json:"ruleHash"`
	Active             bool             `json:"-"`
}
