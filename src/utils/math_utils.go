package utils

import "github.com/shopspring/decimal"

var half = decimal.New(5, -1)

// RoundHalfUp rounds d to places fraction digits, resolving ties towards
// positive infinity.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

// SumDecimals adds up values.
func SumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
