package common

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"volume_over", 1.5, 0, 1, 1},
		{"volume_under", -0.2, 0, 1, 0},
		{"volume_inside", 0.4, 0, 1, 0.4},
		{"pitch_low", 0.1, 0.5, 2, 0.5},
		{"pitch_high", 3.0, 0.5, 2, 2},
		{"edge_low", 0.5, 0.5, 2, 0.5},
		{"edge_high", 2, 0.5, 2, 2},
		{"nan_volume", math.NaN(), 0, 1, 0},
		{"nan_pitch", math.NaN(), 0.5, 2, 0.5},
		{"pos_inf", math.Inf(1), 0, 1, 1},
		{"neg_inf", math.Inf(-1), 0.5, 2, 0.5},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Clamp(c.v, c.lo, c.hi); got != c.want {
				t.Fatalf("Clamp(%v, %v, %v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
			}
		})
	}
}
