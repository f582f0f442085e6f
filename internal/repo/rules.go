package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/magiccart-api/internal/rules"
)

const ruleColumns = `r.id, r.vendor_id, r.name, r.applicability, r.applicable_category, r.trigger_condition,
r.counter_action, r.incentives, r.reason_template, r.max_usage_per_session, r.priority, r.content_hash, r.is_active`

// RulesRepo reads vendor rules. Every query returns active rules only, highest priority first.
type RulesRepo struct {
	DB DBTX
}

// NewRulesRepo constructs a RulesRepo.
func NewRulesRepo(db DBTX) *RulesRepo {
	return &RulesRepo{DB: db}
}

func scanRule(row scanner) (rules.VendorRule, error) {
	var (
		rule                      rules.VendorRule
		applicability             string
		trigger, counter, incents []byte
	)
	if err := row.Scan(&rule.ID, &rule.VendorID, &rule.Name, &applicability, &rule.ApplicableCategory, &trigger,
		&counter, &incents, &rule.ReasonTemplate, &rule.MaxUsagePerSession, &rule.Priority, &rule.ContentHash, &rule.Active); err != nil {
		return rules.VendorRule{}, err
	}
	rule.Applicability = rules.Applicability(applicability)
	if len(trigger) > 0 {
		if err := json.Unmarshal(trigger, &rule.Trigger); err != nil {
			return rules.VendorRule{}, fmt.Errorf("decode trigger of rule %s: %w", rule.ID, err)
		}
	}
	if err := json.Unmarshal(counter, &rule.Counter); err != nil {
		return rules.VendorRule{}, fmt.Errorf("decode counter action of rule %s: %w", rule.ID, err)
	}
	if len(incents) > 0 {
		if err := json.Unmarshal(incents, &rule.Incentives); err != nil {
			return rules.VendorRule{}, fmt.Errorf("decode incentives of rule %s: %w", rule.ID, err)
		}
	}
	return rule, nil
}

func (r *RulesRepo) list(ctx context.Context, query string, args ...any) ([]rules.VendorRule, error) {
	if r == nil || r.DB == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRule)
}

// GetVendorAndCategoryRules implements rules.Lookup.
func (r *RulesRepo) GetVendorAndCategoryRules(ctx context.Context, vendorID uuid.UUID, category string) ([]rules.VendorRule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM vendor_rules r
WHERE r.vendor_id = $1 AND r.is_active
  AND (r.applicability = 'VENDOR_WIDE' OR (r.applicability = 'CATEGORY' AND r.applicable_category = $2))
ORDER BY r.priority DESC, r.created_at, r.id`, vendorID, category)
}

// GetSpecificProductRules implements rules.Lookup.
func (r *RulesRepo) GetSpecificProductRules(ctx context.Context, vendorID, productID uuid.UUID) ([]rules.VendorRule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM vendor_rules r
JOIN vendor_rule_products rp ON rp.rule_id = r.id
WHERE r.vendor_id = $1 AND rp.product_id = $2 AND r.is_active AND r.applicability = 'SPECIFIC_PRODUCTS'
ORDER BY r.priority DESC, r.created_at, r.id`, vendorID, productID)
}

// GetBundleRules implements rules.Lookup.
func (r *RulesRepo) GetBundleRules(ctx context.Context, vendorID uuid.UUID) ([]rules.VendorRule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM vendor_rules r
WHERE r.vendor_id = $1 AND r.is_active AND r.applicability = 'BUNDLE'
ORDER BY r.priority DESC, r.created_at, r.id`, vendorID)
}
