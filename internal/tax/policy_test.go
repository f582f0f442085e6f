package tax

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/magiccart-api/internal/money"
)

func TestDefaultLocationRate(t *testing.T) {
	p := DefaultLocationRate{Rate: money.MustParse("0.07"), DefaultLocation: "US_DEFAULT"}

	amount, details := p.CalculateTax(money.MustParse("80.00"), "US_DEFAULT")
	require.Equal(t, "5.60", money.Format2(amount))
	require.Equal(t, "US_DEFAULT", details.Location)
	require.True(t, money.Equal(money.MustParse("0.07"), details.Rate))
	require.Equal(t, "Estimated sales tax.", details.Note)

	amount, details = p.CalculateTax(money.MustParse("80.00"), "CA_TORONTO")
	require.True(t, amount.IsZero())
	require.True(t, details.Rate.IsZero())
	require.Equal(t, "CA_TORONTO", details.Location)

	_, details = p.CalculateTax(money.MustParse("1"), "  ")
	require.Equal(t, "N/A", details.Location)
}

func TestDefaultLocationRateRoundsHalfUp(t *testing.T) {
	p := DefaultLocationRate{Rate: money.MustParse("0.07"), DefaultLocation: "US_DEFAULT"}
	amount, _ := p.CalculateTax(money.MustParse("0.50"), "US_DEFAULT")
	require.Equal(t, "0.04", money.Format2(amount))
}
