package quadrature

import (
	"math"

	"github.com/notargets/gosn/utils"
)

// AssociatedLegendre evaluates P_l^m(x), including the Condon-Shortley phase
func AssociatedLegendre(ell, m int, x float64) float64 {
	if m < 0 || m > ell {
		return 0
	}
	Pmm := 1.
	if m > 0 {
		somx2 := math.Sqrt((1. - x) * (1. + x))
		fact := 1.
		for i := 1; i <= m; i++ {
			Pmm *= -fact * somx2
			fact += 2.
		}
	}
	if ell == m {
		return Pmm
	}
	Pmmp1 := x * (2.*float64(m) + 1.) * Pmm
	if ell == m+1 {
		return Pmmp1
	}
	var Pll float64
	for l := m + 2; l <= ell; l++ {
		Pll = (x*(2.*float64(l)-1.)*Pmmp1 - float64(l+m-1)*Pmm) / float64(l-m)
		Pmm, Pmmp1 = Pmmp1, Pll
	}
	return Pll
}

// Ylm is the real spherical harmonic of degree ell and order m at azimuthal
// angle phi and polar angle theta. Negative m selects the sine harmonics.
// The normalization gives each harmonic a squared integral of 4pi/(2l+1)
// over the unit sphere.
func Ylm(ell, m int, phi, theta float64) float64 {
	am := m
	if am < 0 {
		am = -am
	}
	Plm := AssociatedLegendre(ell, am, math.Cos(theta))
	if m == 0 {
		return Plm
	}
	norm := utils.POW(-1, am) * math.Sqrt(2.*utils.FactorialRatio(ell-am, ell+am))
	if m < 0 {
		return norm * Plm * math.Sin(float64(am)*phi)
	}
	return norm * Plm * math.Cos(float64(am)*phi)
}
