package fem

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/utils"
)

// UnitCellMatrices are the volume and surface integrals of the
// discontinuous linear basis functions of one cell, weighted by the
// coordinate system's volume element.
type UnitCellMatrices struct {
	NumNodes int
	// Gradient[i][j] = int w b_i grad(b_j)
	Gradient [][]r3.Vec
	// Mass[i][j] = int w b_i b_j
	Mass *mat.Dense
	// SurfaceMass[f][i][j] = int_f w b_i b_j
	SurfaceMass []*mat.Dense
	// SecondaryMass is the mass matrix with the radial weight one power
	// lower, nil in Cartesian geometry
	SecondaryMass *mat.Dense
	// IntV[i] = int w b_i, IntS[f][i] = int_f w b_i
	IntV []float64
	IntS [][]float64
}

// radial weight powers of the primary and secondary volume elements
func weightPowers(cs types.CoordinateSystem) (p, p2 int) {
	switch cs {
	case types.Cylindrical:
		return 1, 0
	case types.Spherical:
		return 2, 1
	}
	return 0, 0
}

// axis1D holds the integrals of the two linear functions along one axis
type axis1D struct {
	M, D, M2 [2][2]float64
	S        [2]float64 // weight at the low and high vertex
	V        [2]float64
}

var gl = quadrature.GaussLegendre(4)

func newAxis1D(lo, hi float64, p, p2 int) (ax axis1D) {
	var (
		h     = hi - lo
		basis = func(i int, x float64) float64 {
			if i == 0 {
				return (hi - x) / h
			}
			return (x - lo) / h
		}
		dbasis = [2]float64{-1 / h, 1 / h}
	)
	for i := 0; i < 2; i++ {
		ax.V[i] = gl.Integrate(lo, hi, func(x float64) float64 {
			return utils.POW(x, p) * basis(i, x)
		})
		for j := 0; j < 2; j++ {
			ax.M[i][j] = gl.Integrate(lo, hi, func(x float64) float64 {
				return utils.POW(x, p) * basis(i, x) * basis(j, x)
			})
			ax.M2[i][j] = gl.Integrate(lo, hi, func(x float64) float64 {
				return utils.POW(x, p2) * basis(i, x) * basis(j, x)
			})
			ax.D[i][j] = gl.Integrate(lo, hi, func(x float64) float64 {
				return utils.POW(x, p) * basis(i, x) * dbasis[j]
			})
		}
	}
	ax.S = [2]float64{utils.POW(lo, p), utils.POW(hi, p)}
	return
}

func unitVec(a int) (v r3.Vec) {
	switch a {
	case 0:
		v.X = 1
	case 1:
		v.Y = 1
	default:
		v.Z = 1
	}
	return
}

// NewOrthogonalCell computes the matrices of an axis-aligned box cell whose
// nodes and faces follow the orthogonal mesh numbering: node bit p selects
// the low or high vertex along axes[p], face 2p+s is side s of axes[p].
func NewOrthogonalCell(c *mesh.Cell, axes []int, cs types.CoordinateSystem, dimension int) (um UnitCellMatrices) {
	var (
		nd     = len(axes)
		n      = 1 << nd
		ra     = mesh.RadialAxis(dimension)
		ax1    = make([]axis1D, nd)
		bit    = func(I, p int) int { return I >> p & 1 }
		pw, p2 = weightPowers(cs)
	)
	for p, a := range axes {
		lo, hi := component(c.Lo, a), component(c.Hi, a)
		if cs.IsCurvilinear() && a == ra {
			ax1[p] = newAxis1D(lo, hi, pw, p2)
		} else {
			ax1[p] = newAxis1D(lo, hi, 0, 0)
		}
	}
	// product of the mass factors over all axis positions but skip
	prodM := func(I, J, skip int) (v float64) {
		v = 1
		for p := 0; p < nd; p++ {
			if p != skip {
				v *= ax1[p].M[bit(I, p)][bit(J, p)]
			}
		}
		return
	}
	prodV := func(I, skip int) (v float64) {
		v = 1
		for p := 0; p < nd; p++ {
			if p != skip {
				v *= ax1[p].V[bit(I, p)]
			}
		}
		return
	}
	um = UnitCellMatrices{
		NumNodes:    n,
		Gradient:    make([][]r3.Vec, n),
		Mass:        mat.NewDense(n, n, nil),
		SurfaceMass: make([]*mat.Dense, 2*nd),
		IntV:        make([]float64, n),
		IntS:        make([][]float64, 2*nd),
	}
	for I := 0; I < n; I++ {
		um.Gradient[I] = make([]r3.Vec, n)
		um.IntV[I] = prodV(I, -1)
		for J := 0; J < n; J++ {
			um.Mass.Set(I, J, prodM(I, J, -1))
			for p, a := range axes {
				g := ax1[p].D[bit(I, p)][bit(J, p)] * prodM(I, J, p)
				um.Gradient[I][J] = r3.Add(um.Gradient[I][J], r3.Scale(g, unitVec(a)))
			}
		}
	}
	for p := range axes {
		for s := 0; s < 2; s++ {
			f := 2*p + s
			um.SurfaceMass[f] = mat.NewDense(n, n, nil)
			um.IntS[f] = make([]float64, n)
			for I := 0; I < n; I++ {
				if bit(I, p) != s {
					continue
				}
				um.IntS[f][I] = ax1[p].S[s] * prodV(I, p)
				for J := 0; J < n; J++ {
					if bit(J, p) == s {
						um.SurfaceMass[f].Set(I, J, ax1[p].S[s]*prodM(I, J, p))
					}
				}
			}
		}
	}
	if cs.IsCurvilinear() {
		um.SecondaryMass = mat.NewDense(n, n, nil)
		for p, a := range axes {
			if a != ra {
				continue
			}
			for I := 0; I < n; I++ {
				for J := 0; J < n; J++ {
					um.SecondaryMass.Set(I, J, ax1[p].M2[bit(I, p)][bit(J, p)]*prodM(I, J, p))
				}
			}
		}
	}
	return
}

func component(v r3.Vec, a int) float64 {
	switch a {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

// Build computes the matrices of every cell of an orthogonal mesh
func Build(m *mesh.Mesh, cs types.CoordinateSystem) (ucm []UnitCellMatrices, err error) {
	if !m.Orthogonal {
		err = fmt.Errorf("%w: cell matrices need an orthogonal mesh", types.ErrConfiguration)
		return
	}
	ucm = make([]UnitCellMatrices, len(m.Cells))
	for id := range m.Cells {
		ucm[id] = NewOrthogonalCell(&m.Cells[id], m.Axes, cs, m.Dimension)
	}
	return
}
