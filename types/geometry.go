package types

import (
	"fmt"
	"strings"
)

// CoordinateSystem selects the geometry-specific terms of the transport
// operator. It travels with the angular quadrature and is dispatched once,
// at sweep setup, to a geometry strategy.
type CoordinateSystem uint8

const (
	Cartesian CoordinateSystem = iota
	Cylindrical
	Spherical
)

func (cs CoordinateSystem) String() string {
	switch cs {
	case Cartesian:
		return "Cartesian"
	case Cylindrical:
		return "Cylindrical"
	case Spherical:
		return "Spherical"
	}
	return "Unknown"
}

// IsCurvilinear is true when the streaming operator carries an angular
// redistribution term.
func (cs CoordinateSystem) IsCurvilinear() bool {
	return cs == Cylindrical || cs == Spherical
}

var CoordinateSystemNameMap = map[string]CoordinateSystem{
	"cartesian":   Cartesian,
	"slab":        Cartesian,
	"xyz":         Cartesian,
	"cylindrical": Cylindrical,
	"rz":          Cylindrical,
	"spherical":   Spherical,
}

func ParseCoordinateSystem(name string) (cs CoordinateSystem, err error) {
	var ok bool
	if cs, ok = CoordinateSystemNameMap[strings.ToLower(strings.TrimSpace(name))]; !ok {
		err = fmt.Errorf("%w: unknown coordinate system %q", ErrConfiguration, name)
	}
	return
}

// AngleAggregation groups directions that are swept together.
type AngleAggregation uint8

const (
	// AggregateSingle sweeps each direction on its own
	AggregateSingle AngleAggregation = iota
	// AggregatePolar sweeps a polar sequence of directions together
	AggregatePolar
	// AggregateAzimuthal sweeps the azimuthal directions of one polar level together
	AggregateAzimuthal
)

func (aa AngleAggregation) String() string {
	switch aa {
	case AggregateSingle:
		return "Single"
	case AggregatePolar:
		return "Polar"
	case AggregateAzimuthal:
		return "Azimuthal"
	}
	return "Unknown"
}

var AngleAggregationNameMap = map[string]AngleAggregation{
	"single":    AggregateSingle,
	"polar":     AggregatePolar,
	"azimuthal": AggregateAzimuthal,
}

func ParseAngleAggregation(name string) (aa AngleAggregation, err error) {
	var ok bool
	if aa, ok = AngleAggregationNameMap[strings.ToLower(strings.TrimSpace(name))]; !ok {
		err = fmt.Errorf("%w: unknown angle aggregation %q", ErrConfiguration, name)
	}
	return
}

// CompatibleAggregation reports whether the aggregation can be used with
// the coordinate system. Curvilinear sweeps must visit whole polar levels in
// sequence.
func CompatibleAggregation(cs CoordinateSystem, aa AngleAggregation) bool {
	switch cs {
	case Cylindrical:
		return aa == AggregateAzimuthal
	case Spherical:
		return aa == AggregatePolar
	}
	return true
}
