package quadrature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/types"
)

type productAngles struct {
	azimuthal, polar []float64
}

// NewProductCustom builds a product quadrature from azimuthal and polar
// angles (radians). Direction i*Np+j pairs azimuthal angle i with polar
// angle j and has weight weights[i*Np+j].
func NewProductCustom(azimuthal, polar, weights []float64) (q *Quadrature, err error) {
	return assembleProduct("ProductCustom", azimuthal, polar, weights)
}

// NewProductGaussLegendre is the 1D quadrature with 2*Nphemi Gauss-Legendre
// polar directions, weights summing to 2.
func NewProductGaussLegendre(Nphemi int) (q *Quadrature, err error) {
	if Nphemi < 1 {
		err = fmt.Errorf("%w: invalid polar count %d", types.ErrConfiguration, Nphemi)
		return
	}
	glPolar := GaussLegendre(2 * Nphemi)
	polar := make([]float64, glPolar.Len())
	for j, x := range glPolar.Abscissae {
		polar[j] = math.Pi - math.Acos(x)
	}
	return assembleProduct("ProductGaussLegendre", []float64{0}, polar, glPolar.Weights)
}

// NewProductGaussLegendreLegendre uses 4*Na Gauss-Legendre azimuthal and
// 2*Np Gauss-Legendre polar angles, weights summing to 4pi.
func NewProductGaussLegendreLegendre(Na, Np int) (q *Quadrature, err error) {
	if Na < 1 || Np < 1 {
		err = fmt.Errorf("%w: invalid azimuthal/polar counts %d/%d", types.ErrConfiguration, Na, Np)
		return
	}
	var (
		glPolar = GaussLegendre(2 * Np)
		glAzimu = GaussLegendre(4 * Na)
		azimu   = make([]float64, glAzimu.Len())
		polar   = make([]float64, glPolar.Len())
		weights []float64
	)
	for i, x := range glAzimu.Abscissae {
		azimu[i] = math.Pi*x + math.Pi
	}
	for j, x := range glPolar.Abscissae {
		polar[j] = math.Pi - math.Acos(x)
	}
	for i := range azimu {
		for j := range polar {
			weights = append(weights, math.Pi*glAzimu.Weights[i]*glPolar.Weights[j])
		}
	}
	return assembleProduct("ProductGaussLegendreLegendre", azimu, polar, weights)
}

// NewProductGaussLegendreChebyshev uses 4*Na equally spaced azimuthal and
// 2*Np Gauss-Legendre polar angles, weights summing to 4pi.
func NewProductGaussLegendreChebyshev(Na, Np int) (q *Quadrature, err error) {
	if Na < 1 || Np < 1 {
		err = fmt.Errorf("%w: invalid azimuthal/polar counts %d/%d", types.ErrConfiguration, Na, Np)
		return
	}
	var (
		glPolar = GaussLegendre(2 * Np)
		gcAzimu = GaussChebyshev(4 * Na)
		Naz     = 4 * Na
		azimu   = make([]float64, Naz)
		polar   = make([]float64, glPolar.Len())
		weights []float64
	)
	for i := range azimu {
		azimu[i] = math.Pi * float64(2*(i+1)-1) / float64(Naz)
	}
	for j, x := range glPolar.Abscissae {
		polar[j] = math.Pi - math.Acos(x)
	}
	for i := range azimu {
		for j := range polar {
			weights = append(weights, 2*gcAzimu.Weights[i]*glPolar.Weights[j])
		}
	}
	return assembleProduct("ProductGaussLegendreChebyshev", azimu, polar, weights)
}

func assembleProduct(name string, azimuthal, polar, weights []float64) (q *Quadrature, err error) {
	var (
		Na = len(azimuthal)
		Np = len(polar)
	)
	if Na == 0 || Np == 0 {
		err = fmt.Errorf("%w: %s has an empty angle set", types.ErrConfiguration, name)
		return
	}
	if len(weights) != Na*Np {
		err = fmt.Errorf("%w: %s has %d weights for %d azimuthal x %d polar angles",
			types.ErrConfiguration, name, len(weights), Na, Np)
		return
	}
	q = &Quadrature{
		Name:    name,
		System:  types.Cartesian,
		product: &productAngles{azimuthal: append([]float64(nil), azimuthal...), polar: append([]float64(nil), polar...)},
	}
	levels := make([][]int, Np)
	for i := 0; i < Na; i++ {
		for j := 0; j < Np; j++ {
			d := i*Np + j
			levels[j] = append(levels[j], d)
			phi, theta := azimuthal[i], polar[j]
			q.Directions = append(q.Directions, Direction{
				Index:  d,
				Weight: weights[d],
				Omega: r3.Vec{
					X: math.Sin(theta) * math.Cos(phi),
					Y: math.Sin(theta) * math.Sin(phi),
					Z: math.Cos(theta),
				},
				Phi:   phi,
				Theta: theta,
			})
		}
	}
	for _, dirs := range levels {
		q.Levels = append(q.Levels, newPolarLevel(dirs))
	}
	q.finalize()
	return
}

// OptimizeForPolarSymmetry drops every direction pointing below the xy
// plane. A positive normalization rescales the remaining weights to sum to
// it. Must be called before the operators are built.
func (q *Quadrature) OptimizeForPolarSymmetry(normalization float64) (err error) {
	if q.product == nil {
		return fmt.Errorf("%w: quadrature %q is not a product quadrature", types.ErrConfiguration, q.Name)
	}
	if q.ops != nil {
		return fmt.Errorf("%w: quadrature %q already has operators", types.ErrConfiguration, q.Name)
	}
	var (
		Np       = len(q.product.polar)
		newPolar []float64
		polarMap []int
		weights  []float64
		sum      float64
	)
	for j, theta := range q.product.polar {
		if theta < math.Pi/2 {
			newPolar = append(newPolar, theta)
			polarMap = append(polarMap, j)
		}
	}
	for i := range q.product.azimuthal {
		for _, j := range polarMap {
			w := q.Directions[i*Np+j].Weight
			weights = append(weights, w)
			sum += w
		}
	}
	if normalization > 0 && sum > 0 {
		for k := range weights {
			weights[k] *= normalization / sum
		}
	}
	var qn *Quadrature
	if qn, err = assembleProduct(q.Name, q.product.azimuthal, newPolar, weights); err != nil {
		return
	}
	*q = *qn
	return
}
