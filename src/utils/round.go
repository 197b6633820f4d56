package utils

import "github.com/shopspring/decimal"

// RoundFloat rounds v half away from zero to the given number of decimal places.
func RoundFloat(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
