package util

import "github.com/shopspring/decimal"

// RoundFloat rounds v half away from zero to the given number of decimal places.
func RoundFloat(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// PercentChange returns ((to-from)/from)*100 without rounding, or 0 when from is 0.
// The arithmetic runs in decimal so inputs such as 100.01 and 100 give exactly 0.01.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	base := decimal.NewFromFloat(from)
	f, _ := decimal.NewFromFloat(to).Sub(base).Div(base).Mul(decimal.NewFromInt(100)).Float64()
	return f
}
