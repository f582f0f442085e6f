package shipping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/magiccart-api/internal/money"
)

func TestFlatRate(t *testing.T) {
	p := NewFlatRate(money.MustParse("4.995"), 3)
	d := p.CalculateShipping(uuid.New(), uuid.New(), "US_DEFAULT")
	require.Equal(t, "5.00", money.Format2(d.Cost))
	require.Equal(t, 3, d.EstimatedDeliveryDays)
	require.Equal(t, "Standard shipping estimate.", d.Note)

	other := p.CalculateShipping(uuid.New(), uuid.New(), "")
	require.Equal(t, d, other)
}

func TestFlatRateClampsDays(t *testing.T) {
	p := NewFlatRate(money.MustParse("0"), -2)
	require.Equal(t, 0, p.CalculateShipping(uuid.Nil, uuid.Nil, "x").EstimatedDeliveryDays)
}
