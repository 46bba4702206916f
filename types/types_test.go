package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	{ // Coordinate systems, case and whitespace insensitive
		cs, err := ParseCoordinateSystem(" RZ ")
		require.NoError(t, err)
		assert.Equal(t, Cylindrical, cs)
		cs, err = ParseCoordinateSystem("Slab")
		require.NoError(t, err)
		assert.Equal(t, Cartesian, cs)
		assert.False(t, cs.IsCurvilinear())
		assert.True(t, Spherical.IsCurvilinear())
		_, err = ParseCoordinateSystem("toroidal")
		assert.ErrorIs(t, err, ErrConfiguration)
	}
	{ // Boundary types
		bt, err := ParseBoundaryType("Mirror")
		require.NoError(t, err)
		assert.Equal(t, BoundaryReflecting, bt)
		bt, err = ParseBoundaryType("incident")
		require.NoError(t, err)
		assert.Equal(t, BoundaryIsotropic, bt)
		_, err = ParseBoundaryType("periodic")
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Equal(t, "Unknown", BoundaryType(42).String())
	}
	{ // Every name in the maps parses back to its value
		for name, bt := range BoundaryNameMap {
			got, err := ParseBoundaryType(name)
			require.NoError(t, err)
			assert.Equal(t, bt, got)
		}
		for name, aa := range AngleAggregationNameMap {
			got, err := ParseAngleAggregation(name)
			require.NoError(t, err)
			assert.Equal(t, aa, got)
		}
	}
}

func TestCompatibleAggregation(t *testing.T) {
	for _, aa := range []AngleAggregation{AggregateSingle, AggregatePolar, AggregateAzimuthal} {
		assert.True(t, CompatibleAggregation(Cartesian, aa), aa.String())
	}
	assert.True(t, CompatibleAggregation(Cylindrical, AggregateAzimuthal))
	assert.False(t, CompatibleAggregation(Cylindrical, AggregatePolar))
	assert.False(t, CompatibleAggregation(Cylindrical, AggregateSingle))
	assert.True(t, CompatibleAggregation(Spherical, AggregatePolar))
	assert.False(t, CompatibleAggregation(Spherical, AggregateAzimuthal))
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("cell 3: %w", ErrNumericalDegeneracy)
	assert.True(t, errors.Is(err, ErrNumericalDegeneracy))
	assert.False(t, errors.Is(err, ErrTopology))
	assert.NotEqual(t, ErrConfiguration.Error(), ErrTopology.Error())
}
