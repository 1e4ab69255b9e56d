package normalize

import "github.com/shopspring/decimal"

// Cents rounds a reais amount to two decimal places, half away from zero.
func Cents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// OptCents is Cents for nullable amounts.
func OptCents(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := Cents(*v)
	return &c
}
