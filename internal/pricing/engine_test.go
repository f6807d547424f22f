package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/backend-canteen/internal/pricing"
)

func TestComputeSumsLineSubtotals(t *testing.T) {
	summary := pricing.Compute([]pricing.Line{
		{Qty: 2, UnitPrice: 5000},
		{Qty: 1, UnitPrice: 2000},
	})
	require.Equal(t, pricing.Money(12000), summary.Subtotal)
	require.Equal(t, pricing.Money(12000), summary.Total)
}

func TestComputeEmptyCart(t *testing.T) {
	summary := pricing.Compute(nil)
	require.Zero(t, summary.Subtotal)
	require.Zero(t, summary.Total)
}

func TestComputeIgnoresNonPositiveQty(t *testing.T) {
	summary := pricing.Compute([]pricing.Line{
		{Qty: 0, UnitPrice: 5000},
		{Qty: -1, UnitPrice: 5000},
		{Qty: 3, UnitPrice: 1000},
	})
	require.Equal(t, pricing.Money(3000), summary.Total)
}
