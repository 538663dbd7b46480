package common

import "math"

// Clamp limits v to the closed range [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}
