package model

// Money is a currency amount in integer minor units (e.g. cents).
// All aggregation happens on int64; rounding to display units is the
// caller's concern.
type Money int64

// Quantity is a measured amount in thousandths of a unit, so fractional
// quantities (2.5 m³ = 2500) stay exact across aggregation.
type Quantity int64

// quantityScale is the implied denominator of Quantity.
const quantityScale = 1000

// MaterialCost computes quantity × rate, rounding half-up on the single
// scale division.
func MaterialCost(qty Quantity, rate Money) Money {
	return Money((int64(qty)*int64(rate) + quantityScale/2) / quantityScale)
}

// LaborCost computes staff × hours × hourly rate. The hours × rate product
// is rounded first so the integer staff multiplier stays exact.
func LaborCost(staff int64, hours Quantity, rate Money) Money {
	return Money(staff) * MaterialCost(hours, rate)
}

// Variance reports (actual − estimated) / estimated as a ratio.
// ok is false when there is no baseline (estimated == 0).
func Variance(estimated, actual Money) (ratio float64, ok bool) {
	if estimated == 0 {
		return 0, false
	}
	return float64(actual-estimated) / float64(estimated), true
}
