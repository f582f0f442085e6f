package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/catalog"
	"github.com/noah-isme/magiccart-api/internal/money"
	"github.com/noah-isme/magiccart-api/internal/obs"
	"github.com/noah-isme/magiccart-api/internal/rules"
)

// seedNamespace derives stable ids so re-running the seeder upserts instead of duplicating.
var seedNamespace = uuid.MustParse("3b0c5f0e-8f8a-4a55-9d0a-5f2b1c7e9a41")

func seedID(kind, name string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+name))
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on environment variables")
	}
	decimal.MarshalJSONWithoutQuotes = true
	logger := obs.NewLogger("console", "info").With().Str("tool", "seeder").Logger()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if err := seedProducts(ctx, tx, logger); err != nil {
			return err
		}
		if err := seedVendors(ctx, tx, logger); err != nil {
			return err
		}
		if err := seedOffers(ctx, tx, logger); err != nil {
			return err
		}
		return seedRules(ctx, tx, logger)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}
	logger.Info().Msg("seeding completed successfully")
}

type productSeed struct {
	Name, Brand, Model, Category string
	MSRP                         string
	Specs                        map[string]any
}

var products = []productSeed{
	{"Aurora Noise-Cancelling Headphones", "Aurora", "NC-700", "audio", "349.99", map[string]any{"color": "black", "wireless": true}},
	{"Aurora Carry Case", "Aurora", "CC-1", "accessories", "29.99", nil},
	{"Pixelwave 27\" 4K Monitor", "Pixelwave", "PW27K", "monitors", "429.00", map[string]any{"panel": "IPS", "refreshHz": 144}},
	{"Stride Running Shoes", "Stride", "SR-2", "footwear", "120.00", map[string]any{"sizes": []int{8, 9, 10, 11}}},
	{"Brewmaster Espresso Machine", "Brewmaster", "BM-X", "kitchen", "599.00", nil},
}

type vendorSeed struct {
	Name, Level, Template, Support string
	Rating                         string
}

var vendors = []vendorSeed{
	{"ShopFast", "ASSISTED", "https://shopfast.example/p/{productId}", "support@shopfast.example", "4.60"},
	{"MegaMart", "DEEP_API", "https://megamart.example/item/{productId}", "help@megamart.example", "4.20"},
	{"BargainBin", "COUPON_CODES", "", "", "3.80"},
	{"ClickDeals", "AFFILIATE_PARAMS", "https://clickdeals.example/go?pid={productId}", "care@clickdeals.example", ""},
}

func seedProducts(ctx context.Context, tx pgx.Tx, logger zerolog.Logger) error {
	for _, p := range products {
		var specs []byte
		if p.Specs != nil {
			raw, err := json.Marshal(p.Specs)
			if err != nil {
				return err
			}
			specs = raw
		}
		_, err := tx.Exec(ctx, `INSERT INTO products (id, name, brand, model, category, msrp, specifications)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, brand = EXCLUDED.brand, model = EXCLUDED.model,
  category = EXCLUDED.category, msrp = EXCLUDED.msrp, specifications = EXCLUDED.specifications, updated_at = now()`,
			seedID("product", p.Name), p.Name, p.Brand, p.Model, p.Category, money.MustParse(p.MSRP), specs)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
	}
	logger.Info().Int("count", len(products)).Msg("products seeded")
	return nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func seedVendors(ctx context.Context, tx pgx.Tx, logger zerolog.Logger) error {
	for _, v := range vendors {
		var rating *decimal.Decimal
		if v.Rating != "" {
			rating = money.Ptr(money.MustParse(v.Rating))
		}
		_, err := tx.Exec(ctx, `INSERT INTO vendors (id, name, rating, integration_level, status, product_url_template, support_contact)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET rating = EXCLUDED.rating, integration_level = EXCLUDED.integration_level,
  product_url_template = EXCLUDED.product_url_template, support_contact = EXCLUDED.support_contact, updated_at = now()`,
			seedID("vendor", v.Name), v.Name, rating, string(catalog.ParseIntegrationLevel(v.Level)),
			string(catalog.VendorActive), nullable(v.Template), nullable(v.Support))
		if err != nil {
			return fmt.Errorf("upsert vendor %s: %w", v.Name, err)
		}
	}
	logger.Info().Int("count", len(vendors)).Msg("vendors seeded")
	return nil
}

// seedOffers gives every vendor an offer on every product, priced a few
// percent under MSRP with a vendor-specific spread.
func seedOffers(ctx context.Context, tx pgx.Tx, logger zerolog.Logger) error {
	count := 0
	validFrom := time.Now().UTC().Add(-24 * time.Hour)
	for vi, v := range vendors {
		for pi, p := range products {
			msrp := money.MustParse(p.MSRP)
			factor := decimal.NewFromInt(int64(95 - 3*vi - pi%3)).Div(decimal.NewFromInt(100))
			base := money.Round2(msrp.Mul(factor))
			inventory := 5 + 7*vi + pi
			_, err := tx.Exec(ctx, `INSERT INTO vendor_offers (id, vendor_id, product_id, base_price, shipping_cost, tax_rate,
  delivery_days, inventory_count, valid_from, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
ON CONFLICT (id) DO UPDATE SET base_price = EXCLUDED.base_price, inventory_count = EXCLUDED.inventory_count,
  valid_from = EXCLUDED.valid_from, is_active = TRUE`,
				seedID("offer", v.Name+"/"+p.Name), seedID("vendor", v.Name), seedID("product", p.Name),
				base, money.MustParse("5.00"), money.MustParse("0.07"), 2+vi, inventory, validFrom)
			if err != nil {
				return fmt.Errorf("upsert offer %s/%s: %w", v.Name, p.Name, err)
			}
			count++
		}
	}
	logger.Info().Int("count", count).Msg("offers seeded")
	return nil
}

type ruleSeed struct {
	Vendor   string
	Rule     rules.VendorRule
	Products []string
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func ruleSeeds() []ruleSeed {
	return []ruleSeed{
		{
			Vendor: "ShopFast",
			Rule: rules.VendorRule{
				Name:          "Beat any competitor by $5",
				Applicability: rules.ApplicabilityVendorWide,
				Trigger: rules.TriggerCondition{
					BeatenByAmount: &rules.DecimalRange{Min: money.Ptr(money.MustParse("0.01")), Max: money.Ptr(money.MustParse("50"))},
					CurrentRound:   &rules.IntRange{Max: intPtr(3)},
				},
				Counter:            rules.CounterAction{Action: rules.ActionBeatTotalCostBy, Amount: money.Ptr(money.MustParse("5")), MaxDiscountPercent: money.Ptr(money.MustParse("20"))},
				Incentives:         map[string]bool{"freeReturns": true},
				ReasonTemplate:     strPtr("{vendorName} beats {competitorName} by {amount}!"),
				MaxUsagePerSession: intPtr(2),
				Priority:           10,
			},
		},
		{
			Vendor: "MegaMart",
			Rule: rules.VendorRule{
				Name:               "Match audio prices",
				Applicability:      rules.ApplicabilityCategory,
				ApplicableCategory: strPtr("audio"),
				Trigger:            rules.TriggerCondition{CompetitorRating: &rules.DecimalRange{Min: money.Ptr(money.MustParse("4.0"))}},
				Counter:            rules.CounterAction{Action: rules.ActionMatchTotalCost},
				Priority:           5,
			},
		},
		{
			Vendor: "MegaMart",
			Rule: rules.VendorRule{
				Name:          "Monitor clearance",
				Applicability: rules.ApplicabilitySpecificProducts,
				Trigger:       rules.TriggerCondition{InventoryLevel: &rules.IntRange{Min: intPtr(10)}},
				Counter:       rules.CounterAction{Action: rules.ActionBeatAnyOffer, Modifier: money.Ptr(money.MustParse("0.98"))},
				Incentives:    map[string]bool{"extendedWarranty": true},
				Priority:      8,
			},
			Products: []string{"Pixelwave 27\" 4K Monitor"},
		},
		{
			Vendor: "BargainBin",
			Rule: rules.VendorRule{
				Name:          "Headphones + case bundle",
				Applicability: rules.ApplicabilityBundle,
				Trigger: rules.TriggerCondition{RequiredBundleProductIDs: []uuid.UUID{
					seedID("product", "Aurora Noise-Cancelling Headphones"),
					seedID("product", "Aurora Carry Case"),
				}},
				Counter:  rules.CounterAction{Action: rules.ActionMatchPrice, MaxDiscountPercent: money.Ptr(money.MustParse("15"))},
				Priority: 3,
			},
		},
	}
}

func seedRules(ctx context.Context, tx pgx.Tx, logger zerolog.Logger) error {
	seeds := ruleSeeds()
	for _, s := range seeds {
		rule := s.Rule
		rule.ID = seedID("rule", s.Vendor+"/"+rule.Name)
		rule.VendorID = seedID("vendor", s.Vendor)
		hash, err := rules.ContentHash(rule)
		if err != nil {
			return err
		}
		trigger, err := json.Marshal(rule.Trigger)
		if err != nil {
			return err
		}
		counter, err := json.Marshal(rule.Counter)
		if err != nil {
			return err
		}
		var incentives []byte
		if len(rule.Incentives) > 0 {
			if incentives, err = json.Marshal(rule.Incentives); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `INSERT INTO vendor_rules (id, vendor_id, name, applicability, applicable_category,
  trigger_condition, counter_action, incentives, reason_template, max_usage_per_session, priority, content_hash, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
ON CONFLICT (id) DO UPDATE SET applicability = EXCLUDED.applicability, applicable_category = EXCLUDED.applicable_category,
  trigger_condition = EXCLUDED.trigger_condition, counter_action = EXCLUDED.counter_action, incentives = EXCLUDED.incentives,
  reason_template = EXCLUDED.reason_template, max_usage_per_session = EXCLUDED.max_usage_per_session,
  priority = EXCLUDED.priority, content_hash = EXCLUDED.content_hash, updated_at = now()`,
			rule.ID, rule.VendorID, rule.Name, string(rule.Applicability), rule.ApplicableCategory,
			trigger, counter, incentives, rule.ReasonTemplate, rule.MaxUsagePerSession, rule.Priority, hash)
		if err != nil {
			return fmt.Errorf("upsert rule %s: %w", rule.Name, err)
		}
		for _, product := range s.Products {
			if _, err := tx.Exec(ctx, `INSERT INTO vendor_rule_products (rule_id, product_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`, rule.ID, seedID("product", product)); err != nil {
				return fmt.Errorf("link rule %s to %s: %w", rule.Name, product, err)
			}
		}
	}
	logger.Info().Int("count", len(seeds)).Msg("rules seeded")
	return nil
}
