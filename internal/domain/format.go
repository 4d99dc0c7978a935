package domain

import "github.com/shopspring/decimal"

// FormatQty renders a quantity without trailing zeros ("-4", "2.5").
func FormatQty(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

// FormatMoney renders an amount with two decimals.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
