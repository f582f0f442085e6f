package rules

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/noah-isme/magiccart-api/internal/common"
)

type hashInput struct {
	Applicability      Applicability    `json:"applicability"`
	ApplicableCategory *string          `json:"applicableCategory,omitempty"`
	Trigger            TriggerCondition `json:"trigger"`
	Counter            CounterAction    `json:"counter"`
	Incentives         map[string]bool  `json:"incentives,omitempty"`
	Priority           int              `json:"priority"`
}

// ContentHash returns the sha256 of the canonical JSON form of the rule's
// behavioural content. Identity, name and vendor are excluded so two rules
// that behave the same hash the same.
func ContentHash(rule VendorRule) (string, error) {
	raw, err := json.Marshal(hashInput{
		Applicability:      rule.Applicability,
		ApplicableCategory: rule.ApplicableCategory,
		Trigger:            rule.Trigger,
		Counter:            rule.Counter,
		Incentives:         rule.Incentives,
		Priority:           rule.Priority,
	})
	if err != nil {
		return "", fmt.Errorf("marshal rule content: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize rule content: %w", err)
	}
	return common.Sha256HexBytes(canonical), nil
}
