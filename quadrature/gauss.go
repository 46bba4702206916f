package quadrature

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gosn/types"
)

// Rule is a one dimensional quadrature on [-1,1]
type Rule struct {
	Abscissae []float64
	Weights   []float64
}

func NewRule(abscissae, weights []float64) (r Rule, err error) {
	if len(abscissae) != len(weights) {
		err = fmt.Errorf("%w: %d abscissae and %d weights", types.ErrConfiguration,
			len(abscissae), len(weights))
		return
	}
	r = Rule{
		Abscissae: append([]float64(nil), abscissae...),
		Weights:   append([]float64(nil), weights...),
	}
	return
}

func (r Rule) Len() int { return len(r.Weights) }

func (r Rule) Sum() float64 { return floats.Sum(r.Weights) }

// Normalized returns a copy of the rule with weights scaled to sum to target
func (r Rule) Normalized(target float64) (R Rule, err error) {
	sum := r.Sum()
	if math.Abs(sum) == 0 {
		err = fmt.Errorf("%w: quadrature weights sum to zero", types.ErrConfiguration)
		return
	}
	R, _ = NewRule(r.Abscissae, r.Weights)
	if fac := target / sum; math.Abs(fac-1) > epsilon {
		floats.Scale(fac, R.Weights)
	}
	return
}

// WithEndpoints returns a copy of the rule with zero weight points added at
// -1 and +1 where the rule does not already start or end there.
func (r Rule) WithEndpoints() (R Rule) {
	R, _ = NewRule(r.Abscissae, r.Weights)
	n := R.Len()
	if n == 0 {
		return
	}
	if math.Abs(R.Weights[0]) > epsilon && math.Abs(R.Abscissae[0]+1) > epsilon {
		R.Abscissae = append([]float64{-1}, R.Abscissae...)
		R.Weights = append([]float64{0}, R.Weights...)
	}
	n = R.Len()
	if math.Abs(R.Weights[n-1]) > epsilon && math.Abs(R.Abscissae[n-1]-1) > epsilon {
		R.Abscissae = append(R.Abscissae, 1)
		R.Weights = append(R.Weights, 0)
	}
	return
}

// Integrate applies the rule to f mapped onto [a,b]
func (r Rule) Integrate(a, b float64, f func(x float64) float64) (sum float64) {
	half, mid := 0.5*(b-a), 0.5*(b+a)
	for i, x := range r.Abscissae {
		sum += r.Weights[i] * f(mid+half*x)
	}
	return half * sum
}

const epsilon = 2.220446049250313e-16

// GaussLegendre returns the N point Gauss-Legendre rule with ascending abscissae
func GaussLegendre(N int) (r Rule) {
	x, w := JacobiGQ(0, 0, N-1)
	r, _ = NewRule(x, w)
	return
}

// GaussChebyshev returns the N point Gauss-Chebyshev rule of the first
// kind, ascending, with weights pi/N.
func GaussChebyshev(N int) (r Rule) {
	r = Rule{Abscissae: make([]float64, N), Weights: make([]float64, N)}
	for k := 0; k < N; k++ {
		// descending cosines, stored from the back
		r.Abscissae[N-1-k] = math.Cos(float64(2*k+1) * math.Pi / float64(2*N))
		r.Weights[k] = math.Pi / float64(N)
	}
	return
}

// JacobiGQ computes the N+1 point Gauss quadrature for the Jacobi weight
// (1-x)^alpha (1+x)^beta from the eigen-decomposition of the recurrence
// matrix (Golub-Welsch). Abscissae are returned in ascending order.
func JacobiGQ(alpha, beta float64, N int) (x, w []float64) {
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w = []float64{2.}
		return
	}
	var (
		h1 = make([]float64, N+1)
		JJ = mat.NewSymDense(N+1, nil)
	)
	for i := range h1 {
		h1[i] = 2*float64(i) + alpha + beta
	}
	fac := -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		if i == 0 && alpha+beta < 10*epsilon {
			continue
		}
		JJ.SetSym(i, i, fac/(h1[i]*(h1[i]+2.)))
	}
	for i := 0; i < N; i++ {
		ip1 := float64(i + 1)
		val := h1[i]
		d1 := 2. / (val + 2.) *
			math.Sqrt(ip1*(ip1+alpha+beta)*(ip1+alpha)*(ip1+beta)/((val+1.)*(val+3.)))
		JJ.SetSym(i, i+1, d1)
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(nil)
	var VVr mat.Dense
	eig.VectorsTo(&VVr)
	w = make([]float64, N+1)
	g0 := gamma0(alpha, beta)
	for i := range w {
		v := VVr.At(0, i)
		w[i] = v * v * g0
	}
	sortRule(x, w)
	return
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	return math.Gamma(alpha+1.) * math.Gamma(beta+1.) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

func sortRule(x, w []float64) {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	xs, ws := make([]float64, len(x)), make([]float64, len(w))
	for i, k := range idx {
		xs[i], ws[i] = x[k], w[k]
	}
	copy(x, xs)
	copy(w, ws)
}
