package rules

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DecimalRange is an inclusive range; a nil bound is open.
type DecimalRange struct {
	Min *decimal.Decimal `json:"min,omitempty"`
	Max *decimal.Decimal `json:"max,omitempty"`
}

// Contains reports whether v lies inside r. A nil range contains everything.
func (r *DecimalRange) Contains(v decimal.Decimal) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && v.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && v.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// IntRange is an inclusive integer range; a nil bound is open.
type IntRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// Contains reports whether v lies inside r. A nil range contains everything.
func (r *IntRange) Contains(v int) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// TriggerContext is the negotiation state a trigger is checked against.
// Optional facts left nil fail any predicate that needs them.
type TriggerContext struct {
	BeatenBy         decimal.Decimal
	Round            int
	CompetitorRating *decimal.Decimal
	InventoryLevel   *int
	ProductCategory  string
	CartProductIDs   []uuid.UUID
}

// Matches reports whether every predicate present on t holds for ctx.
// Pricing responses ship triggers unevaluated for the client to check; Matches
// is for admin and seeder tooling that previews a rule against a scenario.
func (t TriggerCondition) Matches(ctx TriggerContext) bool {
	if !t.BeatenByAmount.Contains(ctx.BeatenBy) {
		return false
	}
	if !t.CurrentRound.Contains(ctx.Round) {
		return false
	}
	if t.CompetitorRating != nil {
		if ctx.CompetitorRating == nil || !t.CompetitorRating.Contains(*ctx.CompetitorRating) {
			return false
		}
	}
	if t.InventoryLevel != nil {
		if ctx.InventoryLevel == nil || !t.InventoryLevel.Contains(*ctx.InventoryLevel) {
			return false
		}
	}
	if t.ProductCategory != nil && *t.ProductCategory != ctx.ProductCategory {
		return false
	}
	if len(t.RequiredBundleProductIDs) > 0 {
		inCart := make(map[uuid.UUID]struct{}, len(ctx.CartProductIDs))
		for _, id := range ctx.CartProductIDs {
			inCart[id] = struct{}{}
		}
		for _, id := range t.RequiredBundleProductIDs {
			if _, ok := inCart[id]; !ok {
				return false
			}
		}
	}
	return true
}
