// Package money provides fixed-point helpers for currency amounts, rates and
// percentages. Amounts are carried as decimal.Decimal and never as float64.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// CurrencyPlaces is the scale used for currency amounts.
	CurrencyPlaces int32 = 2
	// RatioPlaces is the scale used for intermediate ratios before final rounding.
	RatioPlaces int32 = 4
)

var (
	// Zero is the zero amount.
	Zero = decimal.Zero
	// Hundred converts ratios to percentages.
	Hundred = decimal.NewFromInt(100)
	// One is the nominal unit price used for informational tax lookups.
	One = decimal.NewFromInt(1)
)

// Round2 rounds to currency scale, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Round4 rounds to ratio scale, half away from zero.
func Round4(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatioPlaces)
}

// Sum adds the given amounts and rounds the result to currency scale.
func Sum(parts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(p)
	}
	return Round2(total)
}

// MulRate applies a rate (0.07 for 7%) to an amount and rounds to currency scale.
func MulRate(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate))
}

// PercentOff reports how far actual sits below reference as a percentage with two
// decimals. The ratio is rounded to four places first. A non-positive reference
// yields zero; an actual above reference yields a negative percentage.
func PercentOff(reference, actual decimal.Decimal) decimal.Decimal {
	if !reference.IsPositive() {
		return decimal.Zero
	}
	ratio := reference.Sub(actual).DivRound(reference, RatioPlaces)
	return Round2(ratio.Mul(Hundred))
}

// Equal compares two amounts numerically, ignoring trailing zeros.
func Equal(a, b decimal.Decimal) bool {
	return a.Equal(b)
}

// Format2 renders an amount with exactly two decimals.
func Format2(d decimal.Decimal) string {
	return d.StringFixed(CurrencyPlaces)
}

// Parse reads a decimal amount. Empty input is rejected.
func Parse(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("money: empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: parse %q: %w", value, err)
	}
	return d, nil
}

// MustParse is Parse for constants and fixtures.
func MustParse(value string) decimal.Decimal {
	d, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return d
}

// Ptr returns a pointer to d, for optional fields.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
