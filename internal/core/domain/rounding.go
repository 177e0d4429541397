package domain

import (
	"math"
	"time"
)

// RoundHalfUp rounds x to the nearest integer, halves away from zero towards +inf.
// Negative inputs (clock skew) clamp to 0.
func RoundHalfUp(x float64) int {
	if x <= 0 || math.IsNaN(x) {
		return 0
	}
	return int(math.Floor(x + 0.5))
}

// RoundTo rounds x to the given number of decimals
func RoundTo(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// WholeMinutes converts d to whole minutes, round-half-up, clamped at 0
func WholeMinutes(d time.Duration) int {
	return RoundHalfUp(d.Minutes())
}

// WholeSeconds converts d to whole seconds, round-half-up, clamped at 0
func WholeSeconds(d time.Duration) int {
	return RoundHalfUp(d.Seconds())
}
