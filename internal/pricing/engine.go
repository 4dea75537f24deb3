package pricing

import (
	"github.com/shopspring/decimal"
)

// Line describes a priced line used for totals.
type Line struct {
	Qty        int
	FinalPrice decimal.Decimal
}

// Price returns the price of one selected unit: base * multiplier.
// The result keeps full precision; rounding happens only in Display.
func Price(base, multiplier decimal.Decimal) decimal.Decimal {
	return base.Mul(multiplier)
}

// LineTotal returns finalPrice * qty. Non-positive quantities contribute zero.
func LineTotal(finalPrice decimal.Decimal, qty int) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return finalPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// Total folds the lines into a single amount.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(LineTotal(l.FinalPrice, l.Qty))
	}
	return total
}

// Display rounds an amount to the currency's minor unit for rendering.
func Display(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
