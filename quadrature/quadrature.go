package quadrature

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/types"
)

// Direction is one discrete ordinate
type Direction struct {
	Index  int
	Weight float64
	Omega  r3.Vec
	Phi    float64 // azimuthal abscissa
	Theta  float64 // polar abscissa
}

// MomentIndex is the harmonic (degree, order) of flux moment Index
type MomentIndex struct {
	Index int
	Ell   int
	M     int
}

// PolarLevel is an ordered sequence of directions. In curvilinear
// geometry the sequence is swept from its start to its final direction and
// each direction carries the angular differencing factors; in Cartesian
// geometry the factors keep their defaults (1, 0).
type PolarLevel struct {
	Directions        []int
	DiamondDifference []float64
	StreamingOperator []float64
}

func newPolarLevel(dirs []int) PolarLevel {
	pl := PolarLevel{
		Directions:        dirs,
		DiamondDifference: make([]float64, len(dirs)),
		StreamingOperator: make([]float64, len(dirs)),
	}
	for i := range dirs {
		pl.DiamondDifference[i] = 1
	}
	return pl
}

func (pl PolarLevel) Start() int { return pl.Directions[0] }

func (pl PolarLevel) Final() int { return pl.Directions[len(pl.Directions)-1] }

// Operators are the moment-to-discrete and discrete-to-moment maps, both
// stored as moments x directions.
type Operators struct {
	ScatteringOrder int
	Dimension       int
	MomentMap       []MomentIndex
	M2D             *mat.Dense
	D2M             *mat.Dense
}

func (op *Operators) NumMoments() int { return len(op.MomentMap) }

// Quadrature holds the directions of an angular quadrature, its polar
// levels and, once built, its moment operators.
type Quadrature struct {
	Name       string
	System     types.CoordinateSystem
	Directions []Direction
	Levels     []PolarLevel
	// levelOf[d] is {level, position in level}
	levelOf [][2]int
	ops     *Operators
	product *productAngles
}

func (q *Quadrature) NumDirections() int { return len(q.Directions) }

func (q *Quadrature) Weights() (w []float64) {
	w = make([]float64, len(q.Directions))
	for d, dir := range q.Directions {
		w[d] = dir.Weight
	}
	return
}

func (q *Quadrature) WeightSum() float64 { return floats.Sum(q.Weights()) }

// LevelOf returns the level holding direction d and d's position in it
func (q *Quadrature) LevelOf(d int) (level, pos int) {
	return q.levelOf[d][0], q.levelOf[d][1]
}

func (q *Quadrature) finalize() {
	q.levelOf = make([][2]int, len(q.Directions))
	for l, pl := range q.Levels {
		for p, d := range pl.Directions {
			q.levelOf[d] = [2]int{l, p}
		}
	}
}

// Operators returns the operators built by BuildOperators
func (q *Quadrature) Operators() (op *Operators, err error) {
	if q.ops == nil {
		err = fmt.Errorf("%w: operators of quadrature %q not yet built", types.ErrConfiguration, q.Name)
		return
	}
	return q.ops, nil
}

// HarmonicIndices lists the (l, m) moments a quadrature in this coordinate
// system and dimension carries, up to scatteringOrder.
func HarmonicIndices(cs types.CoordinateSystem, scatteringOrder, dimension int) (mm []MomentIndex, err error) {
	add := func(ell, m int) { mm = append(mm, MomentIndex{Index: len(mm), Ell: ell, M: m}) }
	if scatteringOrder < 0 {
		err = fmt.Errorf("%w: negative scattering order %d", types.ErrConfiguration, scatteringOrder)
		return
	}
	switch cs {
	case types.Cartesian:
		switch dimension {
		case 1:
			for ell := 0; ell <= scatteringOrder; ell++ {
				add(ell, 0)
			}
		case 2:
			for ell := 0; ell <= scatteringOrder; ell++ {
				for m := -ell; m <= ell; m += 2 {
					add(ell, m)
				}
			}
		case 3:
			for ell := 0; ell <= scatteringOrder; ell++ {
				for m := -ell; m <= ell; m++ {
					add(ell, m)
				}
			}
		default:
			err = fmt.Errorf("%w: invalid dimension %d", types.ErrConfiguration, dimension)
		}
	case types.Cylindrical:
		switch dimension {
		case 1:
			for ell := 0; ell <= scatteringOrder; ell++ {
				for m := 0; m <= ell; m++ {
					if (ell+m)%2 == 0 {
						add(ell, m)
					}
				}
			}
		case 2:
			for ell := 0; ell <= scatteringOrder; ell++ {
				for m := 0; m <= ell; m++ {
					add(ell, m)
				}
			}
		default:
			err = fmt.Errorf("%w: invalid dimension %d for cylindrical quadrature",
				types.ErrConfiguration, dimension)
		}
	case types.Spherical:
		if dimension != 1 {
			err = fmt.Errorf("%w: invalid dimension %d for spherical quadrature",
				types.ErrConfiguration, dimension)
			return
		}
		for ell := 0; ell <= scatteringOrder; ell++ {
			add(ell, 0)
		}
	default:
		err = fmt.Errorf("%w: unknown coordinate system %v", types.ErrConfiguration, cs)
	}
	return
}

// BuildOperators computes M2D and D2M for the scattering order and
// dimension. M2D is normalized by the weight sum, so D2M x M2D^T is the
// identity for harmonics the quadrature integrates exactly.
func (q *Quadrature) BuildOperators(scatteringOrder, dimension int) (op *Operators, err error) {
	var mm []MomentIndex
	if mm, err = HarmonicIndices(q.System, scatteringOrder, dimension); err != nil {
		return
	}
	var (
		Nd  = q.NumDirections()
		Nm  = len(mm)
		W   = q.WeightSum()
		M2D = mat.NewDense(Nm, Nd, nil)
		D2M = mat.NewDense(Nm, Nd, nil)
	)
	if Nd == 0 || W <= 0 {
		err = fmt.Errorf("%w: quadrature %q has no weight", types.ErrConfiguration, q.Name)
		return
	}
	for _, mi := range mm {
		fac := float64(2*mi.Ell+1) / W
		for d, dir := range q.Directions {
			y := Ylm(mi.Ell, mi.M, dir.Phi, dir.Theta)
			M2D.Set(mi.Index, d, fac*y)
			D2M.Set(mi.Index, d, dir.Weight*y)
		}
	}
	op = &Operators{
		ScatteringOrder: scatteringOrder,
		Dimension:       dimension,
		MomentMap:       mm,
		M2D:             M2D,
		D2M:             D2M,
	}
	q.ops = op
	return
}
