package models

import "github.com/shopspring/decimal"

// SumPrices adds prices with decimal arithmetic so that totals such as
// 0.1+0.2 come out exact. The sum is not rounded; callers round for display.
func SumPrices(prices ...float64) float64 {
	total := decimal.Zero
	for _, p := range prices {
		total = total.Add(decimal.NewFromFloat(p))
	}
	return total.InexactFloat64()
}
