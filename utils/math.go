package utils

import (
	"math"
)

// POW is an integer power with unrolled small exponents
func POW(x float64, p int) (y float64) {
	if p > 8 || p < -8 {
		return math.Pow(x, float64(p))
	}
	var flipped bool
	if p < 0 {
		p = -p
		flipped = true
	}
	y = 1
	for ; p > 0; p-- {
		y *= x
	}
	if flipped {
		y = 1. / y
	}
	return
}

// FactorialRatio returns a!/b! for non-negative a and b
func FactorialRatio(a, b int) (r float64) {
	r = 1
	switch {
	case a > b:
		for k := b + 1; k <= a; k++ {
			r *= float64(k)
		}
	case b > a:
		for k := a + 1; k <= b; k++ {
			r /= float64(k)
		}
	}
	return
}

// IsSortedAscending is true when every entry is strictly larger than the one before
func IsSortedAscending(x []float64) bool {
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return false
		}
	}
	return true
}
