package rules

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	general  []VendorRule
	specific []VendorRule
	bundle   []VendorRule
	err      error
}

func (f fakeLookup) GetVendorAndCategoryRules(context.Context, uuid.UUID, string) ([]VendorRule, error) {
	return f.general, f.err
}

func (f fakeLookup) GetSpecificProductRules(context.Context, uuid.UUID, uuid.UUID) ([]VendorRule, error) {
	return f.specific, nil
}

func (f fakeLookup) GetBundleRules(context.Context, uuid.UUID) ([]VendorRule, error) {
	return f.bundle, nil
}

func rule(name string, priority int) VendorRule {
	return VendorRule{ID: uuid.New(), Name: name, Priority: priority, Active: true}
}

func names(rs []VendorRule) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Name)
	}
	return out
}

func TestSelectApplicableDedupesAndSorts(t *testing.T) {
	shared := rule("shared", 5)
	low := rule("low", 1)
	high := rule("high", 10)
	tieA := rule("tie-a", 5)
	inactive := rule("inactive", 99)
	inactive.Active = false

	sel, err := NewSelector(fakeLookup{
		general:  []VendorRule{low, shared},
		specific: []VendorRule{shared, high, inactive},
		bundle:   []VendorRule{tieA},
	})
	require.NoError(t, err)

	got, err := sel.SelectApplicable(context.Background(), uuid.New(), uuid.New(), "audio")
	require.NoError(t, err)
	require.Equal(t, []string{"high", "shared", "tie-a", "low"}, names(got))
}

func TestSelectApplicableEmpty(t *testing.T) {
	sel, err := NewSelector(fakeLookup{})
	require.NoError(t, err)
	got, err := sel.SelectApplicable(context.Background(), uuid.New(), uuid.New(), "")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSelectApplicablePropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	sel, err := NewSelector(fakeLookup{err: boom})
	require.NoError(t, err)
	_, err = sel.SelectApplicable(context.Background(), uuid.New(), uuid.New(), "audio")
	require.ErrorIs(t, err, boom)
}

func TestNewSelectorRequiresLookup(t *testing.T) {
	_, err := NewSelector(nil)
	require.Error(t, err)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(v int) *int { return &v }

func TestRangeContains(t *testing.T) {
	r := &DecimalRange{Min: dec("5"), Max: dec("20")}
	require.True(t, r.Contains(decimal.RequireFromString("5")))
	require.True(t, r.Contains(decimal.RequireFromString("20.00")))
	require.False(t, r.Contains(decimal.RequireFromString("4.99")))
	require.False(t, r.Contains(decimal.RequireFromString("20.01")))

	var open *DecimalRange
	require.True(t, open.Contains(decimal.RequireFromString("-1000")))

	lower := &IntRange{Min: intp(2)}
	require.True(t, lower.Contains(2))
	require.True(t, lower.Contains(1000))
	require.False(t, lower.Contains(1))
}

func TestTriggerMatches(t *testing.T) {
	bundleA, bundleB := uuid.New(), uuid.New()
	audio := "audio"
	trig := TriggerCondition{
		BeatenByAmount:           &DecimalRange{Min: dec("5"), Max: dec("20")},
		CurrentRound:             &IntRange{Min: intp(2)},
		CompetitorRating:         &DecimalRange{Max: dec("4.5")},
		ProductCategory:          &audio,
		RequiredBundleProductIDs: []uuid.UUID{bundleA, bundleB},
	}
	ctx := TriggerContext{
		BeatenBy:         decimal.RequireFromString("12.50"),
		Round:            3,
		CompetitorRating: dec("4.2"),
		ProductCategory:  "audio",
		CartProductIDs:   []uuid.UUID{bundleB, uuid.New(), bundleA},
	}
	require.True(t, trig.Matches(ctx))

	noRating := ctx
	noRating.CompetitorRating = nil
	require.False(t, trig.Matches(noRating))

	early := ctx
	early.Round = 1
	require.False(t, trig.Matches(early))

	missingBundle := ctx
	missingBundle.CartProductIDs = []uuid.UUID{bundleA}
	require.False(t, trig.Matches(missingBundle))

	require.True(t, TriggerCondition{}.Matches(TriggerContext{}))
}

func TestTriggerConditionJSON(t *testing.T) {
	raw := `{"beatenByAmount":{"min":5,"max":20},"currentRound":{"min":2},"productCategory":"audio"}`
	var trig TriggerCondition
	require.NoError(t, json.Unmarshal([]byte(raw), &trig))
	require.NotNil(t, trig.BeatenByAmount)
	require.True(t, trig.BeatenByAmount.Min.Equal(decimal.NewFromInt(5)))
	require.Equal(t, 2, *trig.CurrentRound.Min)
	require.Nil(t, trig.CurrentRound.Max)
	require.Nil(t, trig.InventoryLevel)
	require.Equal(t, "audio", *trig.ProductCategory)
}

func TestContentHashIgnoresIdentity(t *testing.T) {
	base := VendorRule{
		ID:            uuid.New(),
		VendorID:      uuid.New(),
		Name:          "beat by five",
		Applicability: ApplicabilityVendorWide,
		Trigger:       TriggerCondition{CurrentRound: &IntRange{Min: intp(1)}},
		Counter:       CounterAction{Action: ActionBeatTotalCostBy, Amount: dec("5.00")},
		Incentives:    map[string]bool{"freeShipping": true, "giftWrap": false},
		Priority:      10,
	}
	other := base
	other.ID = uuid.New()
	other.Name = "renamed"
	other.Incentives = map[string]bool{"giftWrap": false, "freeShipping": true}

	h1, err := ContentHash(base)
	require.NoError(t, err)
	h2, err := ContentHash(other)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)

	changed := base
	changed.Priority = 11
	h3, err := ContentHash(changed)
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestEnumValidity(t *testing.T) {
	require.True(t, ActionBeatAnyOffer.Valid())
	require.False(t, ActionType("GIVE_AWAY").Valid())
	require.True(t, ApplicabilityBundle.Valid())
	require.False(t, Applicability("GLOBAL").Valid())
}
