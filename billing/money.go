package billing

import "math"

// Round2 rounds a monetary amount to the cent, half up. Every calculator
// rounds at the point of calculation so aggregate totals reconcile exactly.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
