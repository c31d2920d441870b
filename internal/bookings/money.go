package bookings

import "math"

// RoundMoney rounds to two decimal places (one minor currency unit).
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// SplitEqual divides total into n shares that sum exactly to the rounded
// total. The leftover minor units from rounding go to the first share, which
// by convention is the organiser's.
func SplitEqual(total float64, n int) []float64 {
	if n <= 0 {
		return nil
	}

	totalCents := int64(math.Round(total * 100))
	base := totalCents / int64(n)
	remainder := totalCents % int64(n)

	shares := make([]float64, n)
	for i := range shares {
		cents := base
		if i == 0 {
			cents += remainder
		}
		shares[i] = float64(cents) / 100
	}
	return shares
}

// sumShares adds player amounts for invariant checks.
func sumShares(players []BookingPlayer) float64 {
	var cents int64
	for i := range players {
		cents += int64(math.Round(players[i].AmountDue * 100))
	}
	return float64(cents) / 100
}

// withinMinorUnit reports whether two amounts differ by at most one cent,
// the tolerance allowed for split rounding.
func withinMinorUnit(a, b float64) bool {
	return math.Abs(a-b) <= 0.01+1e-9
}
