package catalog

import (
	"fmt"
	"math"
)

// Money is an amount in sen (1/100 of a ringgit).
type Money int64

// MoneyFromFloat converts a ringgit amount such as 14.75 to Money, rounding to the nearest sen.
func MoneyFromFloat(rm float64) Money {
	return Money(math.Round(rm * 100))
}

// Times returns m multiplied by qty.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// String renders m the way prices appear in orders, e.g. "RM29.50".
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%sRM%d.%02d", sign, int64(m)/100, int64(m)%100)
}
