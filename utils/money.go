package utils

import "math"

// RoundHalfEven rounds a monetary amount to the given number of decimal
// places using banker's rounding (round half to even), the rounding mode
// used for all VAT and total computations.
func RoundHalfEven(value float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.RoundToEven(value*shift) / shift
}
