package quadrature

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/notargets/gosn/types"
)

type Family uint8

const (
	FamilyGaussLegendre Family = iota
	FamilyGaussLegendreLegendre
	FamilyGaussLegendreChebyshev
)

func (f Family) String() string {
	switch f {
	case FamilyGaussLegendre:
		return "GaussLegendre"
	case FamilyGaussLegendreLegendre:
		return "GaussLegendreLegendre"
	case FamilyGaussLegendreChebyshev:
		return "GaussLegendreChebyshev"
	}
	return "Unknown"
}

var FamilyNameMap = map[string]Family{
	"gl":                       FamilyGaussLegendre,
	"gauss-legendre":           FamilyGaussLegendre,
	"gll":                      FamilyGaussLegendreLegendre,
	"gauss-legendre-legendre":  FamilyGaussLegendreLegendre,
	"glc":                      FamilyGaussLegendreChebyshev,
	"gauss-legendre-chebyshev": FamilyGaussLegendreChebyshev,
}

func ParseFamily(name string) (f Family, err error) {
	var ok bool
	if f, ok = FamilyNameMap[strings.ToLower(strings.TrimSpace(name))]; !ok {
		err = fmt.Errorf("%w: unknown quadrature family %q", types.ErrConfiguration, name)
	}
	return
}

// Spec describes a quadrature to build.
//
// Cartesian: FamilyGaussLegendre uses 2*NPolar directions (1D); the Legendre and
// Chebyshev families use 4*NAzimuthal x 2*NPolar directions.
// Cylindrical: NPolar Gauss-Legendre polar points, each with an NAzimuthal
// point azimuthal rule of the family's second kind (Legendre or Chebyshev).
// Legendre azimuthal rules whose level factors leave (0,1] are rejected.
// Spherical: NPolar Gauss-Legendre points.
type Spec struct {
	Family           Family
	CoordinateSystem types.CoordinateSystem
	Dimension        int
	ScatteringOrder  int
	NPolar           int
	NAzimuthal       int
	// PolarSymmetry keeps only upward directions (2D Cartesian)
	PolarSymmetry bool
}

func (s Spec) build() (q *Quadrature, err error) {
	switch s.CoordinateSystem {
	case types.Cartesian:
		switch s.Family {
		case FamilyGaussLegendre:
			q, err = NewProductGaussLegendre(s.NPolar)
		case FamilyGaussLegendreLegendre:
			q, err = NewProductGaussLegendreLegendre(s.NAzimuthal, s.NPolar)
		case FamilyGaussLegendreChebyshev:
			q, err = NewProductGaussLegendreChebyshev(s.NAzimuthal, s.NPolar)
		default:
			err = fmt.Errorf("%w: unknown quadrature family %v", types.ErrConfiguration, s.Family)
		}
		if err == nil && s.PolarSymmetry {
			err = q.OptimizeForPolarSymmetry(4 * math.Pi)
		}
	case types.Cylindrical:
		if s.NPolar < 1 || s.NAzimuthal < 1 {
			err = fmt.Errorf("%w: invalid polar/azimuthal counts %d/%d",
				types.ErrConfiguration, s.NPolar, s.NAzimuthal)
			return
		}
		azimuthal := GaussChebyshev(s.NAzimuthal)
		if s.Family == FamilyGaussLegendreLegendre {
			azimuthal = GaussLegendre(s.NAzimuthal)
		}
		q, err = NewCylindricalUniform(GaussLegendre(s.NPolar), azimuthal, s.Dimension)
	case types.Spherical:
		if s.NPolar < 1 {
			err = fmt.Errorf("%w: invalid polar count %d", types.ErrConfiguration, s.NPolar)
			return
		}
		q, err = NewSpherical(GaussLegendre(s.NPolar))
	default:
		err = fmt.Errorf("%w: unknown coordinate system %v", types.ErrConfiguration, s.CoordinateSystem)
	}
	return
}

type Handle int

// Registry builds quadratures with their operators and hands out handles
type Registry struct {
	mu      sync.RWMutex
	entries []*Quadrature
	logger  *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

func (r *Registry) Register(spec Spec) (h Handle, err error) {
	var q *Quadrature
	if q, err = spec.build(); err != nil {
		return -1, err
	}
	if _, err = q.BuildOperators(spec.ScatteringOrder, spec.Dimension); err != nil {
		return -1, err
	}
	return r.Add(q), nil
}

// Add registers an already built quadrature
func (r *Registry) Add(q *Quadrature) (h Handle) {
	r.mu.Lock()
	h = Handle(len(r.entries))
	r.entries = append(r.entries, q)
	r.mu.Unlock()
	r.logger.Debug("quadrature registered",
		zap.Int("handle", int(h)),
		zap.String("name", q.Name),
		zap.Stringer("system", q.System),
		zap.Int("directions", q.NumDirections()),
		zap.Int("levels", len(q.Levels)),
		zap.Float64("weightSum", q.WeightSum()))
	return
}

func (r *Registry) Get(h Handle) (q *Quadrature, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h < 0 || int(h) >= len(r.entries) {
		err = fmt.Errorf("%w: unknown quadrature handle %d", types.ErrConfiguration, h)
		return
	}
	return r.entries[h], nil
}

func (r *Registry) Operators(h Handle) (op *Operators, err error) {
	var q *Quadrature
	if q, err = r.Get(h); err != nil {
		return
	}
	return q.Operators()
}
