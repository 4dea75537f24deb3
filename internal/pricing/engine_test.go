package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPriceIsExactProduct(t *testing.T) {
	cases := []struct {
		base, multiplier, want string
	}{
		{"80", "1", "80"},
		{"60", "0.5", "30"},
		{"150", "0.25", "37.5"},
		{"99.99", "0.333", "33.29667"},
		{"120", "2", "240"},
	}
	for _, tc := range cases {
		got := Price(dec(tc.base), dec(tc.multiplier))
		require.True(t, got.Equal(dec(tc.want)), "price(%s, %s) = %s", tc.base, tc.multiplier, got)
	}
}

func TestTotal(t *testing.T) {
	total := Total([]Line{
		{Qty: 1, FinalPrice: Price(dec("80"), dec("1"))},
		{Qty: 1, FinalPrice: Price(dec("60"), dec("0.5"))},
	})
	require.True(t, total.Equal(dec("110")))

	strawberries := Price(dec("150"), dec("0.25"))
	require.True(t, LineTotal(strawberries, 3).Equal(dec("112.5")))
	require.True(t, Total([]Line{{Qty: 3, FinalPrice: strawberries}}).Equal(dec("112.5")))

	require.True(t, Total(nil).IsZero())
	require.True(t, LineTotal(dec("10"), 0).IsZero())
}

func TestDisplayRoundsOnlyForRendering(t *testing.T) {
	p := Price(dec("99.99"), dec("0.333"))
	require.Equal(t, "33.30", Display(p))
	require.Equal(t, "33.29667", p.String())
	require.Equal(t, "112.50", Display(dec("112.5")))
}
