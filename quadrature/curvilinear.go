package quadrature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/utils"
)

const (
	polarSum     = 2.
	azimuthalSum = math.Pi
)

// NewCylindrical builds the curvilinear product quadrature for cylindrical
// geometry from one polar rule and one azimuthal rule per polar point, all
// on [-1,1]. Each polar point is a level whose directions are swept in
// ascending azimuthal cosine. The radial direction cosine lies on the mesh
// axis that carries the radius: z for 1D meshes, x for 2D (r,z) meshes.
func NewCylindrical(polar Rule, azimuthal []Rule, dimension int) (q *Quadrature, err error) {
	if polar.Len() != len(azimuthal) {
		err = fmt.Errorf("%w: number of azimuthal quadratures (%d) does not match polar points (%d)",
			types.ErrConfiguration, len(azimuthal), polar.Len())
		return
	}
	if polar.Len() == 0 {
		err = fmt.Errorf("%w: invalid polar quadrature size 0", types.ErrConfiguration)
		return
	}
	for _, az := range azimuthal {
		if az.Len() == 0 {
			err = fmt.Errorf("%w: invalid azimuthal quadrature size 0", types.ErrConfiguration)
			return
		}
	}
	if dimension != 1 && dimension != 2 {
		err = fmt.Errorf("%w: invalid dimension %d for cylindrical quadrature", types.ErrConfiguration, dimension)
		return
	}
	if polar, err = polar.Normalized(polarSum); err != nil {
		return
	}
	azi := make([]Rule, len(azimuthal))
	for p, az := range azimuthal {
		if az, err = az.Normalized(azimuthalSum); err != nil {
			return
		}
		if !utils.IsSortedAscending(az.Abscissae) {
			err = fmt.Errorf("%w: azimuthal quadrature abscissae not in ascending order", types.ErrConfiguration)
			return
		}
		azi[p] = az.WithEndpoints()
	}

	q = &Quadrature{Name: "Cylindrical", System: types.Cylindrical}
	for p := range azi {
		var (
			polW   = polar.Weights[p]
			polAbs = polar.Abscissae[p]
			polCom = math.Sqrt(1 - polAbs*polAbs)
			level  []int
		)
		for k, aziAbs := range azi[p].Abscissae {
			aziCom := math.Sqrt(1 - aziAbs*aziAbs)
			omega := r3.Vec{X: polCom * aziAbs, Y: polAbs, Z: polCom * aziCom}
			if dimension == 1 {
				omega = r3.Vec{X: polCom * aziCom, Y: polAbs, Z: polCom * aziAbs}
			}
			d := len(q.Directions)
			q.Directions = append(q.Directions, Direction{
				Index:  d,
				Weight: polW * azi[p].Weights[k],
				Omega:  omega,
				Phi:    math.Acos(aziAbs),
				Theta:  math.Acos(polAbs),
			})
			level = append(level, d)
		}
		q.Levels = append(q.Levels, newPolarLevel(level))
	}
	q.finalize()
	q.parametrizeCylindrical()
	if err = q.checkDiamondDifference(); err != nil {
		q = nil
	}
	return
}

// NewCylindricalUniform uses the same azimuthal rule on every polar level
func NewCylindricalUniform(polar, azimuthal Rule, dimension int) (q *Quadrature, err error) {
	azi := make([]Rule, polar.Len())
	for p := range azi {
		azi[p] = azimuthal
	}
	return NewCylindrical(polar, azi, dimension)
}

// radialCosine is the direction cosine along the radius
func (q *Quadrature) radialCosine(d int) float64 {
	dir := q.Directions[d]
	switch q.System {
	case types.Cylindrical:
		return math.Sin(dir.Theta) * math.Cos(dir.Phi)
	case types.Spherical:
		return math.Cos(dir.Theta)
	}
	return dir.Omega.X
}

func (q *Quadrature) parametrizeCylindrical() {
	for l := range q.Levels {
		var (
			pl        = &q.Levels[l]
			sumW      float64
			alpha     float64
			phiIntf   = q.Directions[pl.Start()].Phi
			muIntf    = [2]float64{math.Cos(phiIntf), math.Cos(phiIntf)}
			nDirLevel = len(pl.Directions)
		)
		for _, d := range pl.Directions {
			sumW += q.Directions[d].Weight
		}
		piSumW := math.Pi / sumW
		for k := 1; k < nDirLevel-1; k++ {
			var (
				d   = pl.Directions[k]
				w   = q.Directions[d].Weight
				muR = q.radialCosine(d)
			)
			alpha -= w * muR
			phiIntf -= w * piSumW
			muIntf[0], muIntf[1] = muIntf[1], math.Cos(phiIntf)
			mu := math.Cos(q.Directions[d].Phi)
			tau := (mu - muIntf[0]) / (muIntf[1] - muIntf[0])
			pl.DiamondDifference[k] = tau
			pl.StreamingOperator[k] = alpha/(w*tau) + muR
		}
	}
}

// NewSpherical builds the 1D spherical quadrature from an ascending polar
// rule on [-1,1]. All directions form one level swept from mu = -1 to
// mu = +1, the radial cosine lies on z.
func NewSpherical(polar Rule) (q *Quadrature, err error) {
	if polar.Len() == 0 {
		err = fmt.Errorf("%w: invalid polar quadrature size 0", types.ErrConfiguration)
		return
	}
	if polar, err = polar.Normalized(polarSum); err != nil {
		return
	}
	if !utils.IsSortedAscending(polar.Abscissae) {
		err = fmt.Errorf("%w: polar quadrature abscissae not in ascending order", types.ErrConfiguration)
		return
	}
	polar = polar.WithEndpoints()
	q = &Quadrature{Name: "Spherical", System: types.Spherical}
	var level []int
	for p, polAbs := range polar.Abscissae {
		polCom := math.Sqrt(1 - polAbs*polAbs)
		q.Directions = append(q.Directions, Direction{
			Index:  p,
			Weight: polar.Weights[p],
			Omega:  r3.Vec{X: polCom, Y: 0, Z: polAbs},
			Phi:    0,
			Theta:  math.Acos(polAbs),
		})
		level = append(level, p)
	}
	q.Levels = []PolarLevel{newPolarLevel(level)}
	q.finalize()
	q.parametrizeSpherical()
	if err = q.checkDiamondDifference(); err != nil {
		q = nil
	}
	return
}

func (q *Quadrature) parametrizeSpherical() {
	var (
		pl     = &q.Levels[0]
		alpha  float64
		mu0    = q.radialCosine(pl.Start())
		muIntf = [2]float64{mu0, mu0}
	)
	for k := 1; k < len(pl.Directions)-1; k++ {
		var (
			d  = pl.Directions[k]
			w  = q.Directions[d].Weight
			mu = q.radialCosine(d)
		)
		alpha -= w * mu
		muIntf[0] = muIntf[1]
		muIntf[1] += w
		tau := (mu - muIntf[0]) / (muIntf[1] - muIntf[0])
		pl.DiamondDifference[k] = tau
		pl.StreamingOperator[k] = 2 * (alpha/(w*tau) + mu)
	}
}

// checkDiamondDifference requires every interior level factor in (0,1]
func (q *Quadrature) checkDiamondDifference() error {
	for l, pl := range q.Levels {
		for k := 1; k < len(pl.Directions)-1; k++ {
			if tau := pl.DiamondDifference[k]; !(tau > 0 && tau <= 1+epsilon) {
				return fmt.Errorf("%w: %s quadrature level %d direction %d has diamond difference factor %.6g outside (0,1]",
					types.ErrConfiguration, q.Name, l, pl.Directions[k], tau)
			}
		}
	}
	return nil
}
